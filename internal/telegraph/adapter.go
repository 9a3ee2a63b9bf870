// Package telegraph bridges the bot to chat platforms (Discord, Slack).
package telegraph

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and translating between
// platform events and the bot's Event / OutboundMessage types.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound events from the platform.
	// The channel is closed when the adapter is closed. Listen must only
	// be called after Connect.
	Listen(ctx context.Context) (<-chan Event, error)

	Sender

	// RegisterCommand makes a slash command discoverable to users.
	RegisterCommand(ctx context.Context, name, description string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Sender is the outbound half of an Adapter. The conversation layer only
// needs this much of the platform.
type Sender interface {
	// Send delivers a message and returns a reference usable with Edit.
	Send(ctx context.Context, msg OutboundMessage) (MessageRef, error)

	// Edit replaces the text and inline buttons of a sent message.
	Edit(ctx context.Context, ref MessageRef, msg OutboundMessage) error

	// SendMediaGroup posts up to MaxMediaGroup photos as one message to
	// chatID, which may be a conversation or a broadcast channel.
	SendMediaGroup(ctx context.Context, chatID string, items []MediaItem) error

	// ImageLink resolves an inbound image to a link that can be fetched
	// later without the original message.
	ImageLink(ctx context.Context, img Image) (string, error)
}

// MaxMediaGroup is the most photos one SendMediaGroup call may carry.
const MaxMediaGroup = 10

// EventKind classifies inbound events.
type EventKind int

const (
	EventText    EventKind = iota // free text or a keyboard phrase
	EventImage                    // message carrying one or more images
	EventCommand                  // slash command; Text holds the command name
	EventAction                   // inline button press; Text holds the action id
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventImage:
		return "image"
	case EventCommand:
		return "command"
	case EventAction:
		return "action"
	default:
		return "unknown"
	}
}

// Event is one inbound message, command or button press from a user.
type Event struct {
	Platform  string    // e.g. "slack", "discord"
	Kind      EventKind // what the user did
	UserID    string    // platform user id; empty when it cannot be resolved
	UserName  string    // human-readable username
	ChatID    string    // where replies go (a DM channel)
	Text      string    // message text, command name, or action id
	Images    []Image   // attached images for EventImage
	MessageID string    // for EventAction: the message carrying the button
	Timestamp time.Time // when the event happened
}

// Image is one attached image variant.
type Image struct {
	Ref    string // platform file reference
	URL    string // direct link when the platform supplies one
	Width  int
	Height int
}

// Largest returns the image with the most pixels, or false when there are
// none. Ties keep the later variant, which platforms list largest-last.
func Largest(images []Image) (Image, bool) {
	if len(images) == 0 {
		return Image{}, false
	}
	best := images[0]
	for _, img := range images[1:] {
		if img.Width*img.Height >= best.Width*best.Height {
			best = img
		}
	}
	return best, true
}

// Button is an inline action attached to a message.
type Button struct {
	Label  string
	Action string // delivered back as Event.Text with EventAction
}

// MediaItem is one photo in a media group or a single photo message.
type MediaItem struct {
	URL     string
	Caption string
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChatID   string     // target conversation
	Text     string     // message text (platform-native formatting)
	Cards    []Card     // structured attachments
	Photo    *MediaItem // single photo with caption
	Inline   []Button   // inline buttons answered with EventAction
	Keyboard [][]string // reply phrases answered with EventText
}

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    string
	MessageID string
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}
