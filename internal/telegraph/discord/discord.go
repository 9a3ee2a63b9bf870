// Package discord implements the telegraph Adapter for Discord using the Gateway WebSocket.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/memeyard/internal/telegraph"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute

	// maxButtonsPerRow and maxRows are Discord component limits.
	maxButtonsPerRow = 5
	maxRows          = 5

	// Custom ID prefixes distinguishing keyboard phrases from inline actions.
	sayPrefix = "say:"
	actPrefix = "act:"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	AddHandler(handler interface{}) func()
}

// Adapter implements telegraph.Adapter for Discord via the Gateway WebSocket.
// Users talk to the bot in direct messages; reply keyboards are rendered as
// buttons whose presses arrive as plain text.
type Adapter struct {
	sess        session
	botToken    string
	guildID     string // register commands here; empty registers globally
	botUserID   string
	mu          sync.Mutex
	connected   bool
	closed      bool
	inbound     chan telegraph.Event
	removers    []func()
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken string // Discord bot token
	GuildID  string // optional guild for command registration
	// For testing: inject a mock session instead of real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}

	return &Adapter{
		sess:        opts.Session,
		botToken:    opts.BotToken,
		guildID:     opts.GuildID,
		inbound:     make(chan telegraph.Event, 100),
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real session if not injected (production path).
	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages |
			discordgo.IntentsMessageContent
		a.sess = dg
	}

	// Capture bot user ID on connect/reconnect.
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.SetBotUserID(r.User.ID)
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})

	// discordgo handles reconnection automatically; log it for observability.
	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// Listen returns a channel of inbound events from Discord. Registers message
// and interaction handlers on the Gateway session. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan telegraph.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	a.removers = append(a.removers,
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			a.handleMessage(m)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			a.handleInteraction(i)
		}),
	)
	return a.inbound, nil
}

func (a *Adapter) ensureConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("discord: not connected")
	}
	return nil
}

// Send delivers a message to a Discord channel.
func (a *Adapter) Send(ctx context.Context, msg telegraph.OutboundMessage) (telegraph.MessageRef, error) {
	if err := a.ensureConnected(); err != nil {
		return telegraph.MessageRef{}, err
	}
	if msg.ChatID == "" {
		return telegraph.MessageRef{}, fmt.Errorf("discord: no channel specified")
	}

	data := buildMessageSend(msg)

	var sent *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var sendErr error
		sent, sendErr = a.sess.ChannelMessageSendComplex(msg.ChatID, data)
		return sendErr
	})
	if err != nil {
		return telegraph.MessageRef{}, fmt.Errorf("discord: send message: %w", err)
	}
	return telegraph.MessageRef{ChatID: msg.ChatID, MessageID: sent.ID}, nil
}

// Edit replaces the content, cards and inline buttons of a sent message.
func (a *Adapter) Edit(ctx context.Context, ref telegraph.MessageRef, msg telegraph.OutboundMessage) error {
	if err := a.ensureConnected(); err != nil {
		return err
	}

	edit := discordgo.NewMessageEdit(ref.ChatID, ref.MessageID).
		SetContent(msg.Text).
		SetEmbeds(buildEmbeds(msg))
	components := buildComponents(msg)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	edit.Components = &components

	err := a.retryOnRateLimit(ctx, func() error {
		_, editErr := a.sess.ChannelMessageEditComplex(edit)
		return editErr
	})
	if err != nil {
		return fmt.Errorf("discord: edit message: %w", err)
	}
	return nil
}

// SendMediaGroup posts the items as one message with an image embed each.
func (a *Adapter) SendMediaGroup(ctx context.Context, chatID string, items []telegraph.MediaItem) error {
	if err := a.ensureConnected(); err != nil {
		return err
	}
	if len(items) == 0 || len(items) > telegraph.MaxMediaGroup {
		return fmt.Errorf("discord: media group of %d items", len(items))
	}

	data := &discordgo.MessageSend{}
	for _, it := range items {
		data.Embeds = append(data.Embeds, photoEmbed(it))
	}

	err := a.retryOnRateLimit(ctx, func() error {
		_, sendErr := a.sess.ChannelMessageSendComplex(chatID, data)
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send media group: %w", err)
	}
	return nil
}

// ImageLink returns the attachment URL. Discord attachments are already
// served from its CDN, so no extra lookup is needed.
func (a *Adapter) ImageLink(ctx context.Context, img telegraph.Image) (string, error) {
	if img.URL == "" {
		return "", fmt.Errorf("discord: attachment %q has no url", img.Ref)
	}
	return img.URL, nil
}

// RegisterCommand creates a slash command, in the configured guild when set.
func (a *Adapter) RegisterCommand(ctx context.Context, name, description string) error {
	if err := a.ensureConnected(); err != nil {
		return err
	}
	appID := a.BotUserID()
	if appID == "" {
		return fmt.Errorf("discord: application id unknown (not ready)")
	}

	err := a.retryOnRateLimit(ctx, func() error {
		_, apiErr := a.sess.ApplicationCommandCreate(appID, a.guildID, &discordgo.ApplicationCommand{
			Name:        name,
			Description: description,
		})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("discord: register command %s: %w", name, err)
	}
	return nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	for _, remove := range a.removers {
		remove()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after Ready).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetBotUserID sets the bot user ID (used for self-message filtering).
func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
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
		log.Printf("discord: inbound queue full, dropping %s event from %s", ev.Kind, ev.UserID)
	}
}

// handleMessage converts a Discord message to an Event.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == a.BotUserID() {
		return
	}

	ts, _ := discordgo.SnowflakeTimestamp(m.ID)
	ev := telegraph.Event{
		Platform:  "discord",
		Kind:      telegraph.EventText,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		ChatID:    m.ChannelID,
		Text:      m.Content,
		MessageID: m.ID,
		Timestamp: ts,
	}
	for _, att := range m.Attachments {
		if !isImage(att) {
			continue
		}
		ev.Images = append(ev.Images, telegraph.Image{
			Ref:    att.ID,
			URL:    att.URL,
			Width:  att.Width,
			Height: att.Height,
		})
	}
	if len(ev.Images) > 0 {
		ev.Kind = telegraph.EventImage
	}
	a.emit(ev)
}

// handleInteraction converts a button press or slash command to an Event.
// Every interaction is acknowledged immediately so Discord does not show a
// failure while the conversation layer works.
func (a *Adapter) handleInteraction(i *discordgo.InteractionCreate) {
	user := interactionUser(i.Interaction)
	if user == nil {
		return
	}

	ev := telegraph.Event{
		Platform:  "discord",
		UserID:    user.ID,
		UserName:  user.Username,
		ChatID:    i.ChannelID,
		Timestamp: time.Now(),
	}

	var resp *discordgo.InteractionResponse
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		switch {
		case strings.HasPrefix(id, sayPrefix):
			ev.Kind = telegraph.EventText
			ev.Text = strings.TrimPrefix(id, sayPrefix)
		case strings.HasPrefix(id, actPrefix):
			ev.Kind = telegraph.EventAction
			ev.Text = strings.TrimPrefix(id, actPrefix)
		default:
			return
		}
		if i.Message != nil {
			ev.MessageID = i.Message.ID
		}
		resp = &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	case discordgo.InteractionApplicationCommand:
		ev.Kind = telegraph.EventCommand
		ev.Text = i.ApplicationCommandData().Name
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "/" + ev.Text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	default:
		return
	}

	if err := a.sess.InteractionRespond(i.Interaction, resp); err != nil {
		log.Printf("discord: ack interaction: %v", err)
	}
	a.emit(ev)
}

// interactionUser returns the invoking user for guild and DM interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// isImage reports whether an attachment is an image we can moderate.
func isImage(att *discordgo.MessageAttachment) bool {
	if strings.HasPrefix(att.ContentType, "image/") {
		return true
	}
	return att.ContentType == "" && att.Width > 0 && att.Height > 0
}

// buildMessageSend translates an OutboundMessage into a Discord MessageSend.
func buildMessageSend(msg telegraph.OutboundMessage) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Text,
		Embeds:     buildEmbeds(msg),
		Components: buildComponents(msg),
	}
}

// buildEmbeds renders the message's photo and cards as embeds.
func buildEmbeds(msg telegraph.OutboundMessage) []*discordgo.MessageEmbed {
	var embeds []*discordgo.MessageEmbed
	if msg.Photo != nil {
		embeds = append(embeds, photoEmbed(*msg.Photo))
	}
	for _, c := range msg.Cards {
		embeds = append(embeds, cardToEmbed(c))
	}
	return embeds
}

// buildComponents lays out inline buttons first, then keyboard rows, within
// Discord's row and button limits. Overflow is dropped.
func buildComponents(msg telegraph.OutboundMessage) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	addRow := func(buttons []discordgo.MessageComponent) {
		for len(buttons) > 0 && len(rows) < maxRows {
			n := min(len(buttons), maxButtonsPerRow)
			rows = append(rows, discordgo.ActionsRow{Components: buttons[:n]})
			buttons = buttons[n:]
		}
	}

	var inline []discordgo.MessageComponent
	for _, b := range msg.Inline {
		inline = append(inline, discordgo.Button{
			Label:    b.Label,
			Style:    discordgo.PrimaryButton,
			CustomID: actPrefix + b.Action,
		})
	}
	addRow(inline)

	for _, row := range msg.Keyboard {
		var buttons []discordgo.MessageComponent
		for _, phrase := range row {
			if phrase == "" {
				continue
			}
			buttons = append(buttons, discordgo.Button{
				Label:    phrase,
				Style:    discordgo.SecondaryButton,
				CustomID: sayPrefix + phrase,
			})
		}
		addRow(buttons)
	}
	return rows
}

// photoEmbed renders one photo with its caption.
func photoEmbed(it telegraph.MediaItem) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: it.Caption,
		Image:       &discordgo.MessageEmbedImage{URL: it.URL},
	}
}

// cardToEmbed converts a Card to a Discord Embed.
func cardToEmbed(c telegraph.Card) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       c.Title,
		Description: c.Body,
	}

	if c.Color != "" {
		embed.Color = parseHexColor(c.Color)
	}
	if c.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: c.Footer}
	}

	for _, f := range c.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}

	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
