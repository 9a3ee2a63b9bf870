package telegraph

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Handler processes one inbound event. Calls for the same user never
// overlap when delivered through a Router.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, ev Event)

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev Event) { f(ctx, ev) }

// Router fans inbound events out to per-user queues. Each queue is drained
// by its own goroutine, so events from one user are handled strictly in
// arrival order while different users proceed in parallel.
type Router struct {
	handler   Handler
	botUserID string
	out       io.Writer

	mu     sync.Mutex
	queues map[string]*userQueue
	closed bool
	wg     sync.WaitGroup
}

type userQueue struct {
	pending []Event
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Handler   Handler
	BotUserID string    // bot's user ID for self-message filtering
	Out       io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("telegraph: router: handler is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		handler:   opts.Handler,
		botUserID: opts.BotUserID,
		out:       out,
		queues:    make(map[string]*userQueue),
	}, nil
}

// Dispatch queues ev for its user and returns immediately. Events without
// a user, from the bot itself, or arriving after Close are dropped.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	if ev.UserID == "" {
		fmt.Fprintf(r.out, "telegraph: router: drop %s event without user\n", ev.Kind)
		return
	}
	if r.botUserID != "" && ev.UserID == r.botUserID {
		return
	}

	fmt.Fprintf(r.out, "telegraph: router: recv [user=%s kind=%s] %q\n",
		ev.UserID, ev.Kind, truncate(strings.TrimSpace(ev.Text), 80))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	q, running := r.queues[ev.UserID]
	if !running {
		q = &userQueue{}
		r.queues[ev.UserID] = q
	}
	q.pending = append(q.pending, ev)
	if !running {
		r.wg.Add(1)
		go r.drain(ctx, ev.UserID, q)
	}
}

// drain handles queued events for one user until the queue is empty, then
// forgets the queue so idle users hold no goroutine.
func (r *Router) drain(ctx context.Context, userID string, q *userQueue) {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		if len(q.pending) == 0 {
			delete(r.queues, userID)
			r.mu.Unlock()
			return
		}
		ev := q.pending[0]
		q.pending = q.pending[1:]
		r.mu.Unlock()

		r.handler.Handle(ctx, ev)
	}
}

// Active returns the number of users with queued or in-flight events.
func (r *Router) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Close stops accepting events and waits for queued ones to finish.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
