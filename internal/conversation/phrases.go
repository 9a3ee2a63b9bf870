package conversation

// Reply-keyboard phrases. A phrase sent back as text is matched exactly
// against the current scene's table.
const (
	PhraseChangeName = "Change display name"
	PhraseUpload     = "Upload submissions"
	PhraseReview     = "Review submissions"
	PhrasePublish    = "Publish submissions"

	PhraseSkip = "Skip"
	PhraseExit = "Exit to menu"

	PhraseRandom = "Random"
	PhraseNewest = "Newest"
	PhraseOldest = "Oldest"

	PhraseApprove        = "Approve"
	PhraseSkipSubmission = "Skip submission"
	PhraseReject         = "Reject"

	PhraseClearApproved  = "Clear approved list"
	PhraseConfirmPublish = "Publish"
	PhraseCancelPublish  = "Don't publish"
	PhraseConfirmClear   = "Clear"
	PhraseCancelClear    = "Don't clear"
)

// ActionRefresh is the inline action that re-renders the menu summary.
const ActionRefresh = "refresh"

// DefaultCommand is the reset command that returns any conversation to the
// menu, and DefaultCommandDescription is how it is advertised.
const (
	DefaultCommand            = "menu"
	DefaultCommandDescription = "Back to menu"
)

var exitKeyboard = [][]string{{PhraseExit}}
