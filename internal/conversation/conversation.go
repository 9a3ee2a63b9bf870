// Package conversation runs the bot's per-user state machine. Each inbound
// event is routed to the scene the user's session is in, and scenes move the
// user between each other by entering a new scene.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/store"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// Queue is the slice of the submission store the conversation needs.
type Queue interface {
	moderation.CountSource
	UpsertUser(id string) (*models.User, error)
	FindUser(id string) (*models.User, error)
	SetDisplayName(id, name string) error
	CreateSubmission(userID, link string) (*models.Submission, error)
	FindSubmissions(q store.SubmissionQuery) ([]models.Submission, error)
	UpdateStatus(id string, to models.Status) (bool, error)
	UpdateStatusByIDs(ids []string, to models.Status) (int64, error)
	UpdateStatusWhere(from, to models.Status) (int64, error)
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Queue            Queue
	Sessions         session.Store
	Sender           telegraph.Sender
	BroadcastChannel string
	Command          string     // reset command; defaults to DefaultCommand
	Rand             *rand.Rand // review picks; defaults to a time-seeded source
}

// Engine is the conversation router. It implements telegraph.Handler and
// expects events for one user to arrive one at a time.
type Engine struct {
	queue     Queue
	sessions  session.Store
	sender    telegraph.Sender
	publisher *Publisher
	command   string
	scenes    registry

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates an Engine from the given options.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("conversation: queue is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("conversation: session store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("conversation: sender is required")
	}
	pub, err := NewPublisher(PublisherOpts{
		Queue:   opts.Queue,
		Sender:  opts.Sender,
		Channel: opts.BroadcastChannel,
	})
	if err != nil {
		return nil, err
	}

	command := strings.TrimPrefix(opts.Command, "/")
	if command == "" {
		command = DefaultCommand
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{
		queue:     opts.Queue,
		sessions:  opts.Sessions,
		sender:    opts.Sender,
		publisher: pub,
		command:   command,
		scenes:    newRegistry(),
		rng:       rng,
	}, nil
}

// Handle processes one inbound event. Failures abort the turn and are logged.
func (e *Engine) Handle(ctx context.Context, ev telegraph.Event) {
	if ev.UserID == "" {
		return
	}
	eventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	if err := e.handle(ctx, ev); err != nil {
		log.Printf("conversation: user %s: turn aborted: %v", ev.UserID, err)
	}
}

func (e *Engine) handle(ctx context.Context, ev telegraph.Event) error {
	sess, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("conversation: load session: %w", err)
	}
	t := &turn{ctx: ctx, engine: e, ev: ev, sess: sess}

	// A user without a usable session starts at the menu. The event that
	// created the session is not processed further.
	if sess == nil || e.scenes[sess.Scene] == nil {
		if _, err := e.queue.UpsertUser(ev.UserID); err != nil {
			return fmt.Errorf("conversation: upsert user: %w", err)
		}
		return t.enter(session.SceneMenu)
	}

	if ev.Kind == telegraph.EventCommand {
		if strings.TrimPrefix(ev.Text, "/") != e.command || sess.Scene == session.SceneMenu {
			return nil
		}
		return t.enter(session.SceneMenu)
	}

	h := e.scenes.lookup(sess.Scene, ev)
	if h == nil {
		return nil
	}
	return h(t)
}

// pick chooses a review candidate.
func (e *Engine) pick(cands []models.Submission) *models.Submission {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return moderation.Pick(cands, e.rng)
}

// turn is the context of handling one event.
type turn struct {
	ctx    context.Context
	engine *Engine
	ev     telegraph.Event
	sess   *session.Session
	user   *models.User
}

// enter moves the user to a scene with fresh scratch state and runs the
// scene's entry action.
func (t *turn) enter(name session.Scene) error {
	sc, ok := t.engine.scenes[name]
	if !ok {
		return fmt.Errorf("conversation: unknown scene %q", name)
	}
	t.sess = session.New(t.ev.UserID, name)
	if err := t.save(); err != nil {
		return err
	}
	transitionsTotal.WithLabelValues(string(name)).Inc()
	log.Printf("conversation: user %s entered %s", t.ev.UserID, name)
	if sc.enter == nil {
		return nil
	}
	return sc.enter(t)
}

func (t *turn) save() error {
	if err := t.engine.sessions.Put(t.ctx, t.sess); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

// loadUser returns the acting user, creating the record if it vanished.
func (t *turn) loadUser() (*models.User, error) {
	if t.user != nil {
		return t.user, nil
	}
	u, err := t.engine.queue.FindUser(t.ev.UserID)
	if errors.Is(err, store.ErrNotFound) {
		u, err = t.engine.queue.UpsertUser(t.ev.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load user: %w", err)
	}
	t.user = u
	return u, nil
}

// reload drops the cached user so the next loadUser reads fresh data.
func (t *turn) reload() {
	t.user = nil
}

func (t *turn) reply(msg telegraph.OutboundMessage) (telegraph.MessageRef, error) {
	msg.ChatID = t.ev.ChatID
	ref, err := t.engine.sender.Send(t.ctx, msg)
	if err != nil {
		return ref, fmt.Errorf("conversation: send: %w", err)
	}
	return ref, nil
}

// say sends text with an optional reply keyboard.
func (t *turn) say(text string, keyboard [][]string) error {
	_, err := t.reply(telegraph.OutboundMessage{Text: text, Keyboard: keyboard})
	return err
}

// review returns the review scratch state, creating it if missing.
func (t *turn) review() *session.ReviewState {
	if t.sess.Review == nil {
		t.sess.Review = &session.ReviewState{Skipped: []string{}}
	}
	return t.sess.Review
}

// publish returns the publish scratch state, creating it if missing.
func (t *turn) publish() *session.PublishState {
	if t.sess.Publish == nil {
		t.sess.Publish = &session.PublishState{}
	}
	return t.sess.Publish
}
