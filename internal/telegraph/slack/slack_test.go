package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu       sync.Mutex
	authResp *slackapi.AuthTestResponse
	authErr  error
	posted   []postedMessage
	postErr  error
	limited  int // PostMessage calls to rate-limit before succeeding
	updated  []updatedMessage
	updErr   error
	shared   []string
	shareErr error
	users    map[string]*slackapi.User
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

type updatedMessage struct {
	channelID string
	ts        string
	options   []slackapi.MsgOption
}

func newMockSlackClient() *mockSlackClient {
	return &mockSlackClient{
		authResp: &slackapi.AuthTestResponse{UserID: "U_BOT_123"},
		users:    make(map[string]*slackapi.User),
	}
}

func (m *mockSlackClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	return m.authResp, m.authErr
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", "", m.postErr
	}
	if m.limited > 0 {
		m.limited--
		return "", "", &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, fmt.Sprintf("1700000000.%06d", len(m.posted)), nil
}

func (m *mockSlackClient) UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return "", "", "", m.updErr
	}
	m.updated = append(m.updated, updatedMessage{channelID: channelID, ts: timestamp, options: options})
	return channelID, timestamp, "", nil
}

func (m *mockSlackClient) GetUserInfo(userID string) (*slackapi.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found: %s", userID)
}

func (m *mockSlackClient) ShareFilePublicURL(fileID string) (*slackapi.File, []slackapi.Comment, *slackapi.Paging, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shareErr != nil {
		return nil, nil, nil, m.shareErr
	}
	m.shared = append(m.shared, fileID)
	return &slackapi.File{
		ID:              fileID,
		URLPrivate:      "https://files.slack.com/files-pri/T1-" + fileID + "/meme.png",
		PermalinkPublic: "https://slack-files.com/T1-" + fileID + "-abc123",
	}, nil, nil, nil
}

func (m *mockSlackClient) postedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

// --- Mock Socket Mode client ---

type mockSocketClient struct {
	events chan socketmode.Event
	acked  []socketmode.Request
	mu     sync.Mutex
	done   chan struct{}
}

func newMockSocketClient() *mockSocketClient {
	return &mockSocketClient{
		events: make(chan socketmode.Event, 100),
		done:   make(chan struct{}),
	}
}

func (m *mockSocketClient) Run() error {
	<-m.done
	return nil
}

func (m *mockSocketClient) EventsChan() chan socketmode.Event {
	return m.events
}

func (m *mockSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, req)
}

func (m *mockSocketClient) ackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acked)
}

// failingSocketClient fails Run a fixed number of times.
type failingSocketClient struct {
	mu        sync.Mutex
	runCalls  int
	failCount int
	events    chan socketmode.Event
}

func (f *failingSocketClient) Run() error {
	f.mu.Lock()
	f.runCalls++
	n := f.runCalls
	f.mu.Unlock()

	if n <= f.failCount {
		return fmt.Errorf("connection failed (attempt %d)", n)
	}
	return nil
}

func (f *failingSocketClient) EventsChan() chan socketmode.Event {
	return f.events
}

func (f *failingSocketClient) Ack(req socketmode.Request, payload ...interface{}) {}

// --- Helpers ---

func newTestAdapter(t *testing.T) (*Adapter, *mockSlackClient, *mockSocketClient) {
	t.Helper()
	client := newMockSlackClient()
	socket := newMockSocketClient()

	a, err := New(AdapterOpts{Client: client, Socket: socket})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
		close(socket.done)
	})
	return a, client, socket
}

func listen(t *testing.T, a *Adapter) <-chan telegraph.Event {
	t.Helper()
	ch, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ch
}

func recv(t *testing.T, ch <-chan telegraph.Event) telegraph.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for inbound event")
	}
	return telegraph.Event{}
}

func expectNone(t *testing.T, ch <-chan telegraph.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func messageEvent(ev *slackevents.MessageEvent, envelope string) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: ev},
		},
		Request: &socketmode.Request{EnvelopeID: envelope},
	}
}

// --- New / Connect tests ---

func TestNew_RequiresBotToken(t *testing.T) {
	_, err := New(AdapterOpts{AppToken: "xapp-test"})
	if err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestNew_RequiresAppToken(t *testing.T) {
	_, err := New(AdapterOpts{BotToken: "xoxb-test"})
	if err == nil {
		t.Fatal("expected error for missing app token")
	}
}

func TestConnect_Success(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if a.BotUserID() != "U_BOT_123" {
		t.Errorf("bot user ID = %q, want U_BOT_123", a.BotUserID())
	}
}

func TestConnect_AuthError(t *testing.T) {
	client := newMockSlackClient()
	client.authErr = fmt.Errorf("invalid token")

	a, _ := New(AdapterOpts{Client: client, Socket: newMockSocketClient()})
	err := a.Connect(context.Background())
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !strings.Contains(err.Error(), "auth test") {
		t.Errorf("error = %q, want auth test error", err.Error())
	}
}

func TestConnect_AlreadyClosed(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	a.Close()
	if err := a.Connect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestListen_NotConnected(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if _, err := a.Listen(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- Inbound tests ---

func TestListen_DirectMessage(t *testing.T) {
	a, client, socket := newTestAdapter(t)
	client.users["U_ALICE"] = &slackapi.User{ID: "U_ALICE", Profile: slackapi.UserProfile{DisplayName: "alice"}}
	ch := listen(t, a)

	socket.events <- messageEvent(&slackevents.MessageEvent{
		User:        "U_ALICE",
		Channel:     "D1",
		ChannelType: "im",
		Text:        "Upload submission",
		TimeStamp:   "1700000000.000001",
	}, "env-1")

	ev := recv(t, ch)
	if ev.Platform != "slack" || ev.Kind != telegraph.EventText {
		t.Errorf("event = %+v", ev)
	}
	if ev.ChatID != "D1" || ev.UserID != "U_ALICE" || ev.UserName != "alice" || ev.Text != "Upload submission" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp.Unix() != 1700000000 {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
	if socket.ackedCount() != 1 {
		t.Errorf("acked = %d, want 1", socket.ackedCount())
	}
}

func TestListen_FileShare(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)

	socket.events <- messageEvent(&slackevents.MessageEvent{
		User:        "U_ALICE",
		Channel:     "D1",
		ChannelType: "im",
		SubType:     "file_share",
		TimeStamp:   "1700000000.000002",
		Files: []slackevents.File{
			{ID: "F1", Mimetype: "image/png", URLPrivate: "https://files/F1", OriginalW: 800, OriginalH: 600},
			{ID: "F2", Mimetype: "application/pdf", URLPrivate: "https://files/F2"},
		},
	}, "env-2")

	ev := recv(t, ch)
	if ev.Kind != telegraph.EventImage {
		t.Fatalf("kind = %s, want image", ev.Kind)
	}
	if len(ev.Images) != 1 || ev.Images[0].Ref != "F1" || ev.Images[0].Width != 800 {
		t.Errorf("images = %+v", ev.Images)
	}
}

func TestHandleMessage_Filters(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	ch := listen(t, a)

	for _, ev := range []*slackevents.MessageEvent{
		{User: "U_BOT_123", Channel: "D1", ChannelType: "im", Text: "self"},
		{User: "U_X", BotID: "B1", Channel: "D1", ChannelType: "im", Text: "bot"},
		{User: "U_X", SubType: "message_changed", Channel: "D1", ChannelType: "im"},
		{User: "U_X", Channel: "C1", ChannelType: "channel", Text: "channel chatter"},
		{Channel: "D1", ChannelType: "im", Text: "no user"},
	} {
		a.handleMessage(ev)
	}
	expectNone(t, ch)
}

func interaction(actionID, value string) socketmode.Event {
	cb := slackapi.InteractionCallback{
		Type: slackapi.InteractionTypeBlockActions,
		User: slackapi.User{ID: "U_ALICE", Name: "alice"},
		Channel: slackapi.Channel{GroupConversation: slackapi.GroupConversation{
			Conversation: slackapi.Conversation{ID: "D1"},
		}},
		Message: slackapi.Message{Msg: slackapi.Msg{Timestamp: "1700000000.000009"}},
		ActionCallback: slackapi.ActionCallbacks{BlockActions: []*slackapi.BlockAction{
			{ActionID: actionID, Value: value},
		}},
	}
	return socketmode.Event{
		Type:    socketmode.EventTypeInteractive,
		Data:    cb,
		Request: &socketmode.Request{EnvelopeID: "env-i"},
	}
}

func TestInteraction_KeyboardPhrase(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)

	socket.events <- interaction("say:0:1", "Approve")

	ev := recv(t, ch)
	if ev.Kind != telegraph.EventText || ev.Text != "Approve" || ev.ChatID != "D1" {
		t.Errorf("event = %+v", ev)
	}
	if socket.ackedCount() != 1 {
		t.Errorf("interaction not acked")
	}
}

func TestInteraction_InlineAction(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)

	socket.events <- interaction("act:refresh", "refresh")

	ev := recv(t, ch)
	if ev.Kind != telegraph.EventAction || ev.Text != "refresh" || ev.MessageID != "1700000000.000009" {
		t.Errorf("event = %+v", ev)
	}
}

func TestInteraction_UnknownAction(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)

	socket.events <- interaction("other", "x")
	expectNone(t, ch)
}

func TestSlashCommand(t *testing.T) {
	a, _, socket := newTestAdapter(t)
	ch := listen(t, a)

	socket.events <- socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Data:    slackapi.SlashCommand{Command: "/menu", UserID: "U_ALICE", UserName: "alice", ChannelID: "D1"},
		Request: &socketmode.Request{EnvelopeID: "env-s"},
	}

	ev := recv(t, ch)
	if ev.Kind != telegraph.EventCommand || ev.Text != "menu" || ev.UserID != "U_ALICE" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHandleSocketEvent_ConnectionEvents(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	for _, typ := range []socketmode.EventType{
		socketmode.EventTypeConnecting,
		socketmode.EventTypeConnected,
		socketmode.EventTypeConnectionError,
		socketmode.EventTypeDisconnect,
	} {
		a.handleSocketEvent(socketmode.Event{Type: typ})
	}
}

// --- Outbound tests ---

func TestSend(t *testing.T) {
	a, client, _ := newTestAdapter(t)

	ref, err := a.Send(context.Background(), telegraph.OutboundMessage{ChatID: "D1", Text: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ref.ChatID != "D1" || ref.MessageID != "1700000000.000001" {
		t.Errorf("ref = %+v", ref)
	}
	if client.postedCount() != 1 {
		t.Errorf("posted = %d", client.postedCount())
	}
}

func TestSend_NoChannel(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if _, err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSend_NotConnected(t *testing.T) {
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if _, err := a.Send(context.Background(), telegraph.OutboundMessage{ChatID: "D1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSend_PostError(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	client.postErr = fmt.Errorf("channel_not_found")
	_, err := a.Send(context.Background(), telegraph.OutboundMessage{ChatID: "D1", Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("err = %v", err)
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	client.limited = 2

	if _, err := a.Send(context.Background(), telegraph.OutboundMessage{ChatID: "D1", Text: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.postedCount() != 1 {
		t.Errorf("posted = %d, want 1", client.postedCount())
	}
}

func TestEdit(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	ref := telegraph.MessageRef{ChatID: "D1", MessageID: "1700000000.000001"}
	if err := a.Edit(context.Background(), ref, telegraph.OutboundMessage{Text: "new"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(client.updated) != 1 || client.updated[0].ts != ref.MessageID || client.updated[0].channelID != "D1" {
		t.Errorf("updated = %+v", client.updated)
	}

	client.updErr = fmt.Errorf("message_not_found")
	if err := a.Edit(context.Background(), ref, telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestSendMediaGroup(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	items := []telegraph.MediaItem{{URL: "https://1"}, {URL: "https://2"}}

	if err := a.SendMediaGroup(context.Background(), "C_BROADCAST", items); err != nil {
		t.Fatalf("send media group: %v", err)
	}
	if client.postedCount() != 1 || client.posted[0].channelID != "C_BROADCAST" {
		t.Errorf("posted = %+v", client.posted)
	}

	if err := a.SendMediaGroup(context.Background(), "C", nil); err == nil {
		t.Error("expected error for empty group")
	}
}

func TestImageLink(t *testing.T) {
	a, client, _ := newTestAdapter(t)

	link, err := a.ImageLink(context.Background(), telegraph.Image{Ref: "F1", URL: "https://files/F1"})
	if err != nil {
		t.Fatalf("image link: %v", err)
	}
	want := "https://files.slack.com/files-pri/T1-F1/meme.png?pub_secret=abc123"
	if link != want {
		t.Errorf("link = %q, want %q", link, want)
	}
	if len(client.shared) != 1 || client.shared[0] != "F1" {
		t.Errorf("shared = %v", client.shared)
	}

	client.shareErr = fmt.Errorf("not_allowed")
	if _, err := a.ImageLink(context.Background(), telegraph.Image{Ref: "F2"}); err == nil {
		t.Error("expected share error")
	}
}

func TestPublicImageURL_Invalid(t *testing.T) {
	for _, f := range []*slackapi.File{
		nil,
		{URLPrivate: "https://x"},
		{URLPrivate: "https://x", PermalinkPublic: "https://slack-files.com/nodash"},
		{URLPrivate: "https://x", PermalinkPublic: "https://slack-files.com/T1-F1-"},
	} {
		if _, err := publicImageURL(f); err == nil {
			t.Errorf("publicImageURL(%+v) should fail", f)
		}
	}
}

func TestRegisterCommand_NoOp(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if err := a.RegisterCommand(context.Background(), "menu", "Back to menu"); err != nil {
		t.Errorf("RegisterCommand: %v", err)
	}
}

// --- Block rendering tests ---

func TestBuildBlocks(t *testing.T) {
	blocks := buildBlocks(telegraph.OutboundMessage{
		Text:     "Review",
		Photo:    &telegraph.MediaItem{URL: "https://img", Caption: "by alice"},
		Inline:   []telegraph.Button{{Label: "Refresh", Action: "refresh"}},
		Keyboard: [][]string{{"Approve", "Skip"}, {"Exit"}},
	})
	if len(blocks) != 5 {
		t.Fatalf("blocks = %d, want 5 (text, image, inline, 2 keyboard rows)", len(blocks))
	}
	if _, ok := blocks[0].(*slackapi.SectionBlock); !ok {
		t.Errorf("block 0 = %T, want section", blocks[0])
	}
	img, ok := blocks[1].(*slackapi.ImageBlock)
	if !ok || img.ImageURL != "https://img" || img.AltText != "by alice" {
		t.Errorf("block 1 = %+v", blocks[1])
	}
	inline := blocks[2].(*slackapi.ActionBlock)
	btn := inline.Elements.ElementSet[0].(*slackapi.ButtonBlockElement)
	if btn.ActionID != "act:refresh" {
		t.Errorf("inline action id = %q", btn.ActionID)
	}
	row := blocks[3].(*slackapi.ActionBlock)
	skip := row.Elements.ElementSet[1].(*slackapi.ButtonBlockElement)
	if skip.ActionID != "say:0:1" || skip.Value != "Skip" {
		t.Errorf("keyboard button = %+v", skip)
	}
}

func TestBuildMessageOptions_WithCards(t *testing.T) {
	opts := buildMessageOptions(telegraph.OutboundMessage{
		Text:  "summary",
		Cards: []telegraph.Card{{Title: "Summary"}},
	})
	// blocks + text + attachments
	if len(opts) != 3 {
		t.Errorf("expected 3 options, got %d", len(opts))
	}
}

func TestFallbackText(t *testing.T) {
	tests := []struct {
		msg  telegraph.OutboundMessage
		want string
	}{
		{telegraph.OutboundMessage{Text: "hi"}, "hi"},
		{telegraph.OutboundMessage{Photo: &telegraph.MediaItem{Caption: "cap"}}, "cap"},
		{telegraph.OutboundMessage{Cards: []telegraph.Card{{Title: "T"}}}, "T"},
		{telegraph.OutboundMessage{}, ""},
	}
	for _, tt := range tests {
		if got := fallbackText(tt.msg); got != tt.want {
			t.Errorf("fallbackText(%+v) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestCardToAttachment(t *testing.T) {
	att := cardToAttachment(telegraph.Card{
		Title:  "Summary",
		Body:   "3 pending",
		Color:  telegraph.ColorInfo,
		Footer: "memeyard",
		Fields: []telegraph.Field{{Name: "Approved", Value: "2", Short: true}},
	})
	if att.Title != "Summary" || att.Text != "3 pending" || att.Color != telegraph.ColorInfo || att.Footer != "memeyard" {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "Approved" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	if got := parseSlackTimestamp("1700000000.123456"); got.Unix() != 1700000000 {
		t.Errorf("parse = %v", got)
	}
	if got := parseSlackTimestamp("garbage"); !got.IsZero() {
		t.Errorf("parse garbage = %v, want zero", got)
	}
}

func TestResolveUserName(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	client.users["U1"] = &slackapi.User{RealName: "Alice Real"}
	client.users["U2"] = &slackapi.User{RealName: "Bob", Profile: slackapi.UserProfile{DisplayName: "bobby"}}

	tests := map[string]string{"U1": "Alice Real", "U2": "bobby", "U3": "U3", "": ""}
	for id, want := range tests {
		if got := a.resolveUserName(id); got != want {
			t.Errorf("resolveUserName(%q) = %q, want %q", id, got, want)
		}
	}
}

// --- Retry / reconnect tests ---

func TestRetryOnRateLimit_NonRateLimitError(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return fmt.Errorf("some other error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("should not retry non-rate-limit errors, calls = %d", calls)
	}
}

func TestRetryOnRateLimit_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("expected %d calls, got %d", maxRetries+1, calls)
	}
}

func TestRetryOnRateLimit_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Second}
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunWithReconnect_RetriesOnError(t *testing.T) {
	socket := &failingSocketClient{failCount: 2, events: make(chan socketmode.Event, 10)}
	a, err := New(AdapterOpts{Client: newMockSlackClient(), Socket: socket})
	if err != nil {
		t.Fatal(err)
	}
	a.baseBackoff = time.Millisecond
	a.maxBackoff = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		a.runWithReconnect(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout: runWithReconnect should finish after retries succeed")
	}

	socket.mu.Lock()
	calls := socket.runCalls
	socket.mu.Unlock()
	if calls != 3 {
		t.Errorf("expected 3 Run() calls (2 failures + 1 success), got %d", calls)
	}
}

func TestRunWithReconnect_GivesUp(t *testing.T) {
	socket := &failingSocketClient{failCount: 100, events: make(chan socketmode.Event, 10)}
	a, _ := New(AdapterOpts{Client: newMockSlackClient(), Socket: socket})
	a.baseBackoff = time.Millisecond
	a.maxBackoff = time.Millisecond
	a.maxReconnect = 3

	a.runWithReconnect(context.Background())

	if socket.runCalls != 3 {
		t.Errorf("runCalls = %d, want 3", socket.runCalls)
	}
}

// --- Verify Adapter interface compliance ---

var _ telegraph.Adapter = (*Adapter)(nil)
var _ telegraph.BotUserIDer = (*Adapter)(nil)
var _ slackClient = (*slackapi.Client)(nil)
