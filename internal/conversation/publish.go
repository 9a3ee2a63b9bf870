package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/store"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// ErrPublishFailed is returned when a publish could not be completed. No
// submission is marked posted when sending fails.
var ErrPublishFailed = errors.New("conversation: publish failed")

// PublisherOpts holds parameters for creating a Publisher.
type PublisherOpts struct {
	Queue   Queue
	Sender  telegraph.Sender
	Channel string // broadcast destination
}

// Publisher sends the approved submissions to the broadcast channel.
type Publisher struct {
	queue   Queue
	sender  telegraph.Sender
	channel string
}

// NewPublisher creates a Publisher from the given options.
func NewPublisher(opts PublisherOpts) (*Publisher, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("conversation: publisher: queue is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("conversation: publisher: sender is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("conversation: publisher: broadcast channel is required")
	}
	return &Publisher{queue: opts.Queue, sender: opts.Sender, channel: opts.Channel}, nil
}

// Approved returns every approved submission, oldest first.
func (p *Publisher) Approved() ([]models.Submission, error) {
	return p.queue.FindSubmissions(store.SubmissionQuery{
		Status: models.StatusApproved,
		Sort:   moderation.SortOldest,
	})
}

// Publish re-reads the approved set, sends it to the broadcast channel in
// groups, and marks exactly that set posted. It returns how many
// submissions were marked. Any send failure leaves every status untouched.
func (p *Publisher) Publish(ctx context.Context) (int64, error) {
	subs, err := p.Approved()
	if err != nil {
		publishTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if len(subs) == 0 {
		publishTotal.WithLabelValues("empty").Inc()
		return 0, nil
	}
	if err := SendGroups(ctx, p.sender, p.channel, subs); err != nil {
		publishTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	ids := make([]string, len(subs))
	for i := range subs {
		ids[i] = subs[i].ID
	}
	n, err := p.queue.UpdateStatusByIDs(ids, models.StatusPosted)
	if err != nil {
		publishTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("%w: mark posted: %w", ErrPublishFailed, err)
	}
	publishTotal.WithLabelValues("posted").Inc()
	return n, nil
}

// SendGroups sends submissions to a chat as media groups of at most
// moderation.MaxGroupSize items. It stops at the first failed group.
func SendGroups(ctx context.Context, sender telegraph.Sender, chatID string, subs []models.Submission) error {
	for i, group := range moderation.Batches(subs, moderation.MaxGroupSize) {
		items := make([]telegraph.MediaItem, len(group))
		for j := range group {
			items[j] = telegraph.MediaItem{URL: group[j].Link, Caption: groupCaption(&group[j])}
		}
		if err := sender.SendMediaGroup(ctx, chatID, items); err != nil {
			return fmt.Errorf("send group %d to %s: %w", i+1, chatID, err)
		}
	}
	return nil
}

var (
	publishKeyboard        = [][]string{{PhrasePublish, PhraseClearApproved}, {PhraseExit}}
	confirmPublishKeyboard = [][]string{{PhraseConfirmPublish, PhraseCancelPublish}}
	confirmClearKeyboard   = [][]string{{PhraseConfirmClear, PhraseCancelClear}}
)

func enterPublish(t *turn) error {
	if ok, err := requireManager(t); !ok {
		return err
	}
	subs, err := t.engine.publisher.Approved()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return t.say("No approved submissions", exitKeyboard)
	}
	if err := t.say("Post preview:", publishKeyboard); err != nil {
		return err
	}
	return SendGroups(t.ctx, t.engine.sender, t.ev.ChatID, subs)
}

// ask records which destructive action awaits an answer and asks for it.
func ask(t *turn, c session.Confirmation, question string, kb [][]string) error {
	t.publish().Pending = c
	if err := t.save(); err != nil {
		return err
	}
	return t.say(question, kb)
}

func askPublish(t *turn) error {
	return ask(t, session.ConfirmPublish,
		"Do you really want to publish the submissions?\nThis cannot be undone", confirmPublishKeyboard)
}

func askClear(t *turn) error {
	return ask(t, session.ConfirmClear,
		"Do you really want to clear the approved list?\nThe submissions will return to the review queue", confirmClearKeyboard)
}

// cancelConfirmation returns to the publish view if c was being asked.
func cancelConfirmation(c session.Confirmation) handlerFunc {
	return func(t *turn) error {
		if t.publish().Pending != c {
			return nil
		}
		return t.enter(session.ScenePublishBatch)
	}
}

func confirmPublish(t *turn) error {
	if t.publish().Pending != session.ConfirmPublish {
		return nil
	}
	n, err := t.engine.publisher.Publish(t.ctx)
	if err != nil {
		log.Printf("conversation: user %s: %v", t.ev.UserID, err)
		if err := t.say("Failed to publish submissions", nil); err != nil {
			return err
		}
		return t.enter(session.SceneMenu)
	}
	log.Printf("conversation: user %s published %d submissions", t.ev.UserID, n)
	msg := "Submissions published"
	if n == 0 {
		msg = "No approved submissions"
	}
	if err := t.say(msg, nil); err != nil {
		return err
	}
	return t.enter(session.SceneMenu)
}

func confirmClear(t *turn) error {
	if t.publish().Pending != session.ConfirmClear {
		return nil
	}
	n, err := t.engine.queue.UpdateStatusWhere(models.StatusApproved, models.StatusUploaded)
	if err != nil {
		return err
	}
	log.Printf("conversation: user %s returned %d approved submissions to review", t.ev.UserID, n)
	if err := t.say("Approved list cleared", nil); err != nil {
		return err
	}
	return t.enter(session.SceneMenu)
}
