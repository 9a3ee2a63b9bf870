// Package slack implements the telegraph Adapter for Slack using Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/zulandar/memeyard/internal/telegraph"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10

	// Action ID prefixes distinguishing keyboard phrases from inline actions.
	sayPrefix = "say:"
	actPrefix = "act:"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	GetUserInfo(userID string) (*slackapi.User, error)
	ShareFilePublicURL(fileID string) (*slackapi.File, []slackapi.Comment, *slackapi.Paging, error)
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Adapter implements telegraph.Adapter for Slack Socket Mode. Users talk to
// the app in its DM; reply keyboards are rendered as button rows whose
// presses arrive as plain text.
type Adapter struct {
	client       slackClient
	socket       socketClient
	botUserID    string
	appToken     string
	botToken     string
	mu           sync.Mutex
	connected    bool
	closed       bool
	inbound      chan telegraph.Event
	cancelFunc   context.CancelFunc
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxReconnect int
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	AppToken string // xapp-... Slack app-level token for Socket Mode
	BotToken string // xoxb-... Slack bot token
	// For testing: inject mock clients instead of real Slack API.
	Client slackClient
	Socket socketClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}

	return &Adapter{
		client:       opts.Client,
		socket:       opts.Socket,
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		inbound:      make(chan telegraph.Event, 100),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}, nil
}

// Connect verifies the bot token and prepares the Socket Mode client.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real clients if not injected (production path).
	if a.client == nil {
		api := slackapi.New(a.botToken, slackapi.OptionAppLevelToken(a.appToken))
		a.client = api
		a.socket = &realSocketClient{client: socketmode.New(api)}
	}

	// Get bot user ID for self-message filtering.
	auth, err := a.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID

	a.connected = true
	return nil
}

// Listen returns a channel of inbound events. Starts the Socket Mode
// event pump in a background goroutine. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.Event, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("slack: not connected")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel
	a.mu.Unlock()

	go a.runWithReconnect(listenCtx)
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

func (a *Adapter) ensureConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("slack: not connected")
	}
	return nil
}

// Send delivers a message to Slack. Translates OutboundMessage to Block Kit.
// The returned MessageID is the Slack message timestamp.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) (telegraph.MessageRef, error) {
	if err := a.ensureConnected(); err != nil {
		return telegraph.MessageRef{}, err
	}
	if msg.ChatID == "" {
		return telegraph.MessageRef{}, fmt.Errorf("slack: no channel specified")
	}

	options := buildMessageOptions(msg)

	var channel, ts string
	err := retryOnRateLimit(ctx, func() error {
		var postErr error
		channel, ts, postErr = a.client.PostMessage(msg.ChatID, options...)
		return postErr
	})
	if err != nil {
		return telegraph.MessageRef{}, fmt.Errorf("slack: post message: %w", err)
	}
	if channel == "" {
		channel = msg.ChatID
	}
	return telegraph.MessageRef{ChatID: channel, MessageID: ts}, nil
}

// Edit rewrites a posted message in place.
func (a *Adapter) Edit(ctx context.Context, ref telegraph.MessageRef, msg telegraph.OutboundMessage) error {
	if err := a.ensureConnected(); err != nil {
		return err
	}

	options := buildMessageOptions(msg)
	err := retryOnRateLimit(ctx, func() error {
		_, _, _, updErr := a.client.UpdateMessage(ref.ChatID, ref.MessageID, options...)
		return updErr
	})
	if err != nil {
		return fmt.Errorf("slack: update message: %w", err)
	}
	return nil
}

// SendMediaGroup posts the items as image blocks of a single message.
func (a *Adapter) SendMediaGroup(ctx context.Context, chatID string, items []telegraph.MediaItem) error {
	if err := a.ensureConnected(); err != nil {
		return err
	}
	if len(items) == 0 || len(items) > telegraph.MaxMediaGroup {
		return fmt.Errorf("slack: media group of %d items", len(items))
	}

	var blocks []slackapi.Block
	for i, it := range items {
		blocks = append(blocks, imageBlock(it, fmt.Sprintf("media-%d", i)))
	}
	options := []slackapi.MsgOption{
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(fmt.Sprintf("%d images", len(items)), false),
	}

	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := a.client.PostMessage(chatID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post media group: %w", err)
	}
	return nil
}

// ImageLink makes an uploaded file publicly readable and returns a direct
// link to it. Private Slack URLs need the bot token, so they cannot be
// stored and shown later in another channel.
func (a *Adapter) ImageLink(ctx context.Context, img telegraph.Image) (string, error) {
	if err := a.ensureConnected(); err != nil {
		return "", err
	}
	if img.Ref == "" {
		if img.URL != "" {
			return img.URL, nil
		}
		return "", fmt.Errorf("slack: image has no file id")
	}

	var file *slackapi.File
	err := retryOnRateLimit(ctx, func() error {
		var apiErr error
		file, _, _, apiErr = a.client.ShareFilePublicURL(img.Ref)
		return apiErr
	})
	if err != nil {
		return "", fmt.Errorf("slack: share file %s: %w", img.Ref, err)
	}
	link, err := publicImageURL(file)
	if err != nil {
		return "", fmt.Errorf("slack: share file %s: %w", img.Ref, err)
	}
	return link, nil
}

// RegisterCommand is a no-op: Slack slash commands are declared in the app
// manifest, not at runtime.
func (a *Adapter) RegisterCommand(ctx context.Context, name, description string) error {
	log.Printf("slack: slash command /%s must be declared in the app manifest", name)
	return nil
}

// Close shuts down the adapter and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	close(a.inbound)
	return nil
}

// BotUserID returns the bot's Slack user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run() returns an error (e.g., reconnection failure).
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.Run()
		if err == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}

		log.Printf("slack: socket mode disconnected (attempt %d/%d): %v, reconnecting in %v",
			attempt+1, a.maxReconnect, err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	log.Printf("slack: socket mode exhausted %d reconnection attempts, giving up", a.maxReconnect)
}

// pumpEvents reads Socket Mode events and converts them to Events.
func (a *Adapter) pumpEvents(ctx context.Context) {
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(evt)
		}
	}
}

// handleSocketEvent processes a single Socket Mode event.
func (a *Adapter) handleSocketEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		a.ack(evt)
		a.handleEventsAPI(eventsAPIEvent)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slackapi.InteractionCallback)
		if !ok {
			return
		}
		a.ack(evt)
		a.handleInteraction(callback)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slackapi.SlashCommand)
		if !ok {
			return
		}
		a.ack(evt)
		a.handleSlashCommand(cmd)

	case socketmode.EventTypeConnecting:
		log.Printf("slack: connecting to Socket Mode...")

	case socketmode.EventTypeConnected:
		log.Printf("slack: connected to Socket Mode")

	case socketmode.EventTypeConnectionError:
		log.Printf("slack: connection error: %v", evt.Data)

	case socketmode.EventTypeDisconnect:
		log.Printf("slack: server requested disconnect, will reconnect")
	}
}

func (a *Adapter) ack(evt socketmode.Event) {
	if evt.Request != nil {
		a.socket.Ack(*evt.Request)
	}
}

// emit delivers ev unless the adapter has been closed.
func (a *Adapter) emit(ev telegraph.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.inbound <- ev:
	default:
		log.Printf("slack: inbound queue full, dropping %s event from %s", ev.Kind, ev.UserID)
	}
}

// handleEventsAPI processes Events API callbacks.
func (a *Adapter) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
		a.handleMessage(ev)
	}
}

// handleMessage converts a Slack message event to an Event. Only direct
// messages to the app are considered; channel chatter is ignored.
func (a *Adapter) handleMessage(ev *slackevents.MessageEvent) {
	if ev.User == "" || ev.User == a.BotUserID() || ev.BotID != "" {
		return
	}
	// Edits, deletes and joins carry subtypes; file uploads are the one we keep.
	if ev.SubType != "" && ev.SubType != "file_share" {
		return
	}
	if ev.ChannelType != "" && ev.ChannelType != "im" {
		return
	}

	out := telegraph.Event{
		Platform:  "slack",
		Kind:      telegraph.EventText,
		UserID:    ev.User,
		UserName:  a.resolveUserName(ev.User),
		ChatID:    ev.Channel,
		Text:      ev.Text,
		MessageID: ev.TimeStamp,
		Timestamp: parseSlackTimestamp(ev.TimeStamp),
	}
	for _, f := range ev.Files {
		if !strings.HasPrefix(f.Mimetype, "image/") {
			continue
		}
		out.Images = append(out.Images, telegraph.Image{
			Ref:    f.ID,
			URL:    f.URLPrivate,
			Width:  f.OriginalW,
			Height: f.OriginalH,
		})
	}
	if len(out.Images) > 0 {
		out.Kind = telegraph.EventImage
	}
	a.emit(out)
}

// handleInteraction converts a block action (button press) to an Event.
func (a *Adapter) handleInteraction(cb slackapi.InteractionCallback) {
	if cb.Type != slackapi.InteractionTypeBlockActions {
		return
	}
	for _, action := range cb.ActionCallback.BlockActions {
		ev := telegraph.Event{
			Platform:  "slack",
			UserID:    cb.User.ID,
			UserName:  cb.User.Name,
			ChatID:    cb.Channel.ID,
			MessageID: cb.Message.Timestamp,
			Timestamp: time.Now(),
		}
		switch {
		case strings.HasPrefix(action.ActionID, sayPrefix):
			ev.Kind = telegraph.EventText
			ev.Text = action.Value
		case strings.HasPrefix(action.ActionID, actPrefix):
			ev.Kind = telegraph.EventAction
			ev.Text = strings.TrimPrefix(action.ActionID, actPrefix)
		default:
			continue
		}
		a.emit(ev)
	}
}

// handleSlashCommand converts a slash command to an Event.
func (a *Adapter) handleSlashCommand(cmd slackapi.SlashCommand) {
	a.emit(telegraph.Event{
		Platform:  "slack",
		Kind:      telegraph.EventCommand,
		UserID:    cmd.UserID,
		UserName:  cmd.UserName,
		ChatID:    cmd.ChannelID,
		Text:      strings.TrimPrefix(cmd.Command, "/"),
		Timestamp: time.Now(),
	})
}

// resolveUserName looks up a user's display name. Falls back to user ID.
func (a *Adapter) resolveUserName(userID string) string {
	if userID == "" {
		return ""
	}
	user, err := a.client.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	return user.RealName
}

// buildMessageOptions translates an OutboundMessage into Slack MsgOptions.
func buildMessageOptions(msg telegraph.OutboundMessage) []slackapi.MsgOption {
	options := []slackapi.MsgOption{
		slackapi.MsgOptionBlocks(buildBlocks(msg)...),
		// Used for notifications and as fallback for clients without blocks.
		slackapi.MsgOptionText(fallbackText(msg), false),
	}

	if len(msg.Cards) > 0 {
		var attachments []slackapi.Attachment
		for _, c := range msg.Cards {
			attachments = append(attachments, cardToAttachment(c))
		}
		options = append(options, slackapi.MsgOptionAttachments(attachments...))
	}

	return options
}

// buildBlocks renders text, photo, inline buttons and keyboard rows as Block
// Kit blocks. Keyboard buttons carry their phrase as value.
func buildBlocks(msg telegraph.OutboundMessage) []slackapi.Block {
	var blocks []slackapi.Block

	if msg.Text != "" {
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, msg.Text, false, false), nil, nil))
	}
	if msg.Photo != nil {
		blocks = append(blocks, imageBlock(*msg.Photo, "photo"))
	}
	if len(msg.Inline) > 0 {
		var elems []slackapi.BlockElement
		for _, b := range msg.Inline {
			elems = append(elems, slackapi.NewButtonBlockElement(actPrefix+b.Action, b.Action,
				slackapi.NewTextBlockObject(slackapi.PlainTextType, b.Label, false, false)))
		}
		blocks = append(blocks, slackapi.NewActionBlock("inline", elems...))
	}
	for r, row := range msg.Keyboard {
		var elems []slackapi.BlockElement
		for c, phrase := range row {
			if phrase == "" {
				continue
			}
			actionID := fmt.Sprintf("%s%d:%d", sayPrefix, r, c)
			elems = append(elems, slackapi.NewButtonBlockElement(actionID, phrase,
				slackapi.NewTextBlockObject(slackapi.PlainTextType, phrase, false, false)))
		}
		if len(elems) > 0 {
			blocks = append(blocks, slackapi.NewActionBlock(fmt.Sprintf("keyboard-%d", r), elems...))
		}
	}
	return blocks
}

func fallbackText(msg telegraph.OutboundMessage) string {
	switch {
	case msg.Text != "":
		return msg.Text
	case msg.Photo != nil && msg.Photo.Caption != "":
		return msg.Photo.Caption
	case len(msg.Cards) > 0:
		return msg.Cards[0].Title
	}
	return ""
}

// imageBlock renders one photo, using the caption as title and alt text.
func imageBlock(it telegraph.MediaItem, blockID string) *slackapi.ImageBlock {
	alt := it.Caption
	if alt == "" {
		alt = "image"
	}
	var title *slackapi.TextBlockObject
	if it.Caption != "" {
		title = slackapi.NewTextBlockObject(slackapi.PlainTextType, it.Caption, false, false)
	}
	return slackapi.NewImageBlock(it.URL, alt, blockID, title)
}

// cardToAttachment converts a Card to a Slack Attachment.
func cardToAttachment(c telegraph.Card) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    c.Title,
		Text:     c.Body,
		Color:    c.Color,
		Footer:   c.Footer,
		Fallback: c.Title,
	}

	for _, f := range c.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}

	return att
}

// publicImageURL builds a direct link to a publicly shared file. The public
// permalink ends in "-<secret>", which unlocks the private download URL.
func publicImageURL(f *slackapi.File) (string, error) {
	if f == nil || f.URLPrivate == "" || f.PermalinkPublic == "" {
		return "", fmt.Errorf("file has no public permalink")
	}
	i := strings.LastIndex(f.PermalinkPublic, "-")
	if i < 0 || i == len(f.PermalinkPublic)-1 {
		return "", fmt.Errorf("unexpected public permalink %q", f.PermalinkPublic)
	}
	return f.URLPrivate + "?pub_secret=" + f.PermalinkPublic[i+1:], nil
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

// parseSlackTimestamp converts a Slack timestamp (e.g., "1234567890.123456")
// to a time.Time.
func parseSlackTimestamp(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	if len(parts) == 0 {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
