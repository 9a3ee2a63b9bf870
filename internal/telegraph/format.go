package telegraph

// Color constants for card sidebars.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Card is a structured block of text rendered as a Discord embed or a
// Slack attachment.
type Card struct {
	Title  string  // headline
	Body   string  // detail text
	Color  string  // sidebar color hint
	Fields []Field // key-value metadata pairs
	Footer string
}

// Field is a key-value pair displayed in a card.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
