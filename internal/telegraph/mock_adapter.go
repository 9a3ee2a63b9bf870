package telegraph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter implements Adapter for testing. It records every outbound
// call and lets tests inject inbound events via SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan Event
	sent      []OutboundMessage
	edits     []MockEdit
	groups    []MockGroup
	commands  map[string]string
	botUserID string
	msgSeq    int

	// failures
	sendErr     error
	editErr     error
	groupErr    error
	groupFailAt int    // 1-based call index that fails; 0 = every call
	groupChat   string // only fail groups sent to this chat ("" = any)
	groupCalls  int
}

// MockEdit records one Edit call.
type MockEdit struct {
	Ref MessageRef
	Msg OutboundMessage
}

// MockGroup records one successful SendMediaGroup call.
type MockGroup struct {
	ChatID string
	Items  []MediaItem
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound:  make(chan Event, 100),
		commands: make(map[string]string),
	}
}

// BotUserID returns the configured bot user ID (implements BotUserIDer).
func (m *MockAdapter) BotUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID
}

// SetBotUserID sets the bot user ID for testing.
func (m *MockAdapter) SetBotUserID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = id
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound event channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message.
func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return MessageRef{}, fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return MessageRef{}, m.sendErr
	}
	m.sent = append(m.sent, msg)
	m.msgSeq++
	return MessageRef{ChatID: msg.ChatID, MessageID: fmt.Sprintf("msg-%d", m.msgSeq)}, nil
}

// Edit records the edit.
func (m *MockAdapter) Edit(ctx context.Context, ref MessageRef, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, MockEdit{Ref: ref, Msg: msg})
	return nil
}

// SendMediaGroup records the group, or fails as configured by FailMediaGroup.
func (m *MockAdapter) SendMediaGroup(ctx context.Context, chatID string, items []MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if len(items) == 0 || len(items) > MaxMediaGroup {
		return fmt.Errorf("mock adapter: media group of %d items", len(items))
	}
	if m.groupErr != nil && (m.groupChat == "" || m.groupChat == chatID) {
		m.groupCalls++
		if m.groupFailAt == 0 || m.groupFailAt == m.groupCalls {
			return m.groupErr
		}
	}
	cp := make([]MediaItem, len(items))
	copy(cp, items)
	m.groups = append(m.groups, MockGroup{ChatID: chatID, Items: cp})
	return nil
}

// ImageLink returns the image URL, or a synthetic link built from Ref.
func (m *MockAdapter) ImageLink(ctx context.Context, img Image) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	if img.Ref == "" {
		return "", fmt.Errorf("mock adapter: image has no reference")
	}
	return "https://files.example/" + img.Ref, nil
}

// RegisterCommand records the command.
func (m *MockAdapter) RegisterCommand(ctx context.Context, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[name] = description
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// SimulateInbound sends an event into the inbound channel as if it came
// from the chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateInbound(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.inbound <- ev
}

// FailSend makes every Send return err (nil restores success).
func (m *MockAdapter) FailSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// FailEdit makes every Edit return err (nil restores success).
func (m *MockAdapter) FailEdit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editErr = err
}

// FailMediaGroup makes SendMediaGroup to chatID ("" = any chat) return err
// on its nth matching call (0 = every call). A nil err restores success.
func (m *MockAdapter) FailMediaGroup(chatID string, nth int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupErr = err
	m.groupChat = chatID
	m.groupFailAt = nth
	m.groupCalls = 0
}

// LastSent returns the most recently sent outbound message.
// Returns zero value and false if no messages have been sent.
func (m *MockAdapter) LastSent() (OutboundMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return OutboundMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of outbound messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent outbound messages.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Edits returns a copy of all recorded edits.
func (m *MockAdapter) Edits() []MockEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEdit, len(m.edits))
	copy(out, m.edits)
	return out
}

// Groups returns the media groups sent to chatID ("" = all).
func (m *MockAdapter) Groups(chatID string) []MockGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockGroup
	for _, g := range m.groups {
		if chatID == "" || g.ChatID == chatID {
			out = append(out, g)
		}
	}
	return out
}

// Commands returns the registered commands and their descriptions.
func (m *MockAdapter) Commands() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.commands))
	for k, v := range m.commands {
		out[k] = v
	}
	return out
}

// Reset forgets everything recorded so far.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.edits = nil
	m.groups = nil
}
