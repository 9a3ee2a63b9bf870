// Package digest posts a periodic summary of the moderation queue to a
// review channel so managers know when there is work waiting.
package digest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/memeyard/internal/conversation"
	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// Opts holds parameters for creating a Scheduler.
type Opts struct {
	Source  moderation.CountSource
	Sender  telegraph.Sender
	Channel string
	Cron    string           // 5-field cron expression
	Now     func() time.Time // defaults to time.Now
	Out     io.Writer        // defaults to os.Stdout
}

// Scheduler posts the queue digest on a cron schedule.
type Scheduler struct {
	source  moderation.CountSource
	sender  telegraph.Sender
	channel string
	sched   cron.Schedule
	now     func() time.Time
	out     io.Writer
}

// New creates a Scheduler from the given options.
func New(opts Opts) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("digest: source is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("digest: sender is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("digest: channel is required")
	}
	sched, err := cronParser.Parse(opts.Cron)
	if err != nil {
		return nil, fmt.Errorf("digest: parse cron %q: %w", opts.Cron, err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Scheduler{
		source:  opts.Source,
		sender:  opts.Sender,
		channel: opts.Channel,
		sched:   sched,
		now:     now,
		out:     out,
	}, nil
}

// Run fires the digest on schedule until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	d := nextCronDuration(s.sched, s.now())
	if d == 0 {
		return
	}
	fmt.Fprintf(s.out, "Digest scheduled, next in %s\n", d.Round(time.Second))
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.Fire(ctx); err != nil {
				log.Printf("digest: %v", err)
			}
			d := nextCronDuration(s.sched, s.now())
			if d == 0 {
				return
			}
			timer.Reset(d)
		}
	}
}

// Fire builds and posts one digest. It reports whether anything was sent;
// nothing is sent when no submission is waiting.
func (s *Scheduler) Fire(ctx context.Context) (bool, error) {
	card, err := Build(s.source, s.now())
	if err != nil {
		return false, err
	}
	if card == nil {
		return false, nil
	}
	if _, err := s.sender.Send(ctx, telegraph.OutboundMessage{
		ChatID: s.channel,
		Cards:  []telegraph.Card{*card},
	}); err != nil {
		return false, fmt.Errorf("digest: send to %s: %w", s.channel, err)
	}
	return true, nil
}

// Build renders the global queue counts as a card. It returns nil when no
// submission awaits review or publishing.
func Build(src moderation.CountSource, now time.Time) (*telegraph.Card, error) {
	counts, err := src.CountByStatus("")
	if err != nil {
		return nil, fmt.Errorf("digest: count submissions: %w", err)
	}
	pending := counts.Get(models.StatusUploaded)
	approved := counts.Get(models.StatusApproved)
	if pending == 0 && approved == 0 {
		return nil, nil
	}

	color := telegraph.ColorInfo
	if pending > 0 {
		color = telegraph.ColorWarning
	}
	return &telegraph.Card{
		Title:  "Moderation queue",
		Body:   fmt.Sprintf("%d awaiting review, %d approved and not yet published", pending, approved),
		Color:  color,
		Fields: conversation.CountFields(counts),
		Footer: now.UTC().Format(conversation.TimeLayout),
	}, nil
}
