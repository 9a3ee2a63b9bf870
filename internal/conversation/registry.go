package conversation

import (
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// handlerFunc runs one step of a conversation.
type handlerFunc func(t *turn) error

// scene is one row of the state machine: what happens on entry and which
// inputs the scene reacts to. Input with no matching handler is ignored.
type scene struct {
	enter   handlerFunc
	hears   map[string]handlerFunc // exact keyboard phrases
	actions map[string]handlerFunc // inline button action ids
	onText  handlerFunc            // any other text
	onImage handlerFunc
}

// registry maps every scene to its row.
type registry map[session.Scene]*scene

// lookup returns the handler for ev in the given scene, or nil.
func (r registry) lookup(name session.Scene, ev telegraph.Event) handlerFunc {
	sc, ok := r[name]
	if !ok {
		return nil
	}
	switch ev.Kind {
	case telegraph.EventText:
		if h, ok := sc.hears[ev.Text]; ok {
			return h
		}
		return sc.onText
	case telegraph.EventImage:
		return sc.onImage
	case telegraph.EventAction:
		return sc.actions[ev.Text]
	}
	return nil
}

// newRegistry wires every scene of the bot.
func newRegistry() registry {
	toMenu := func(t *turn) error { return t.enter(session.SceneMenu) }

	return registry{
		session.SceneMenu: {
			enter: enterMenu,
			hears: map[string]handlerFunc{
				PhraseChangeName: func(t *turn) error { return t.enter(session.SceneChangeDisplayName) },
				PhraseUpload:     func(t *turn) error { return t.enter(session.SceneUploadSubmission) },
				PhraseReview:     func(t *turn) error { return t.enter(session.SceneReviewQueue) },
				PhrasePublish:    func(t *turn) error { return t.enter(session.ScenePublishBatch) },
			},
			actions: map[string]handlerFunc{
				ActionRefresh: refreshMenu,
			},
		},
		session.SceneOnboarding: {
			enter: enterOnboarding,
		},
		session.SceneChangeDisplayName: {
			enter: enterChangeName,
			hears: map[string]handlerFunc{
				PhraseSkip: skipChangeName,
			},
			onText: setDisplayName,
		},
		session.SceneUploadSubmission: {
			enter: enterUpload,
			hears: map[string]handlerFunc{
				PhraseExit: toMenu,
			},
			onImage: receiveImage,
		},
		session.SceneReviewQueue: {
			enter: enterReview,
			hears: map[string]handlerFunc{
				PhraseRandom:         chooseOrder,
				PhraseNewest:         chooseOrder,
				PhraseOldest:         chooseOrder,
				PhraseApprove:        approveShown,
				PhraseReject:         rejectShown,
				PhraseSkipSubmission: skipShown,
				PhraseExit:           toMenu,
			},
		},
		session.ScenePublishBatch: {
			enter: enterPublish,
			hears: map[string]handlerFunc{
				PhrasePublish:        askPublish,
				PhraseConfirmPublish: confirmPublish,
				PhraseCancelPublish:  cancelConfirmation(session.ConfirmPublish),
				PhraseClearApproved:  askClear,
				PhraseConfirmClear:   confirmClear,
				PhraseCancelClear:    cancelConfirmation(session.ConfirmClear),
				PhraseExit:           toMenu,
			},
		},
	}
}
