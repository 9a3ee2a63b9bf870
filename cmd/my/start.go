package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/memeyard/internal/config"
	"github.com/zulandar/memeyard/internal/conversation"
	"github.com/zulandar/memeyard/internal/dashboard"
	"github.com/zulandar/memeyard/internal/db"
	"github.com/zulandar/memeyard/internal/digest"
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/telegraph"
	discordadapter "github.com/zulandar/memeyard/internal/telegraph/discord"
	slackadapter "github.com/zulandar/memeyard/internal/telegraph/slack"
)

func newStartCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the chat bot",
		Long:  "Connects to the configured chat platform and runs the moderation conversation. Also serves the dashboard and the scheduled digest when enabled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, &flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runStart(cmd *cobra.Command, flags *configFlags) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, st, err := flags.openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)
	fmt.Fprintf(out, "Database ready (%s)\n", cfg.Database.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	sessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return err
	}
	if c, ok := sessions.(io.Closer); ok {
		defer c.Close()
	}
	fmt.Fprintf(out, "Session store: %s\n", cfg.Session.Backend)

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	engine, err := conversation.NewEngine(conversation.EngineOpts{
		Queue:            st,
		Sessions:         sessions,
		Sender:           adapter,
		BroadcastChannel: cfg.BroadcastChannel,
		Command:          cfg.Command,
	})
	if err != nil {
		return err
	}

	daemon, err := telegraph.NewDaemon(telegraph.DaemonOpts{
		Adapter:            adapter,
		Handler:            engine,
		Command:            cfg.Command,
		CommandDescription: conversation.DefaultCommandDescription,
		Out:                out,
	})
	if err != nil {
		return err
	}

	if cfg.HTTP.On() {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{Store: st, Port: cfg.HTTP.Port, Out: out})
			if err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	if cfg.Digest.Enabled {
		sched, err := digest.New(digest.Opts{
			Source:  st,
			Sender:  adapter,
			Channel: cfg.Digest.Channel,
			Cron:    cfg.Digest.Cron,
			Out:     out,
		})
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	return daemon.Run(ctx)
}

// openSessions builds the configured conversation state store.
func openSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		return session.NewRedisStore(ctx, cfg.RedisURL, cfg.TTL())
	case "memory", "":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("session: unsupported backend %q", cfg.Backend)
	}
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (telegraph.Adapter, error) {
	switch cfg.Platform {
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken: cfg.Discord.BotToken,
			GuildID:  cfg.Discord.GuildID,
		})
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken: cfg.Slack.AppToken,
			BotToken: cfg.Slack.BotToken,
		})
	default:
		return nil, fmt.Errorf("telegraph: unsupported platform %q", cfg.Platform)
	}
}
