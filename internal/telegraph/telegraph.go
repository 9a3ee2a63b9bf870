package telegraph

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// Daemon is the main bot process. It connects to a chat platform via an
// Adapter and pumps inbound events through a Router to a Handler.
type Daemon struct {
	adapter     Adapter
	handler     Handler
	command     string
	description string
	out         io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter            Adapter
	Handler            Handler
	Command            string    // slash command registered on connect; empty skips
	CommandDescription string    // shown next to Command in the platform UI
	Out                io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("telegraph: handler is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:     opts.Adapter,
		handler:     opts.Handler,
		command:     opts.Command,
		description: opts.CommandDescription,
		out:         out,
	}, nil
}

// Run connects the adapter, registers the command, and blocks until the
// context is cancelled or the adapter closes its inbound channel. Queued
// events are drained before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Bot connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}

	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	if d.command != "" {
		if err := d.adapter.RegisterCommand(ctx, d.command, d.description); err != nil {
			log.Printf("telegraph: register command /%s: %v", d.command, err)
		}
	}

	router, err := NewRouter(RouterOpts{
		Handler:   d.handler,
		BotUserID: botUserID,
		Out:       d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: listen: %w", err)
	}

	fmt.Fprintf(d.out, "Bot online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Bot shutting down...\n")
			router.Close()
			if err := d.adapter.Close(); err != nil {
				log.Printf("telegraph: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Bot stopped\n")
			return nil

		case ev, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Bot inbound channel closed\n")
				router.Close()
				return nil
			}
			router.Dispatch(ctx, ev)
		}
	}
}
