package conversation

import (
	"errors"
	"log"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/store"
	"github.com/zulandar/memeyard/internal/telegraph"
)

var orderPhrases = map[string]moderation.Order{
	PhraseRandom: moderation.OrderRandom,
	PhraseNewest: moderation.OrderNewest,
	PhraseOldest: moderation.OrderOldest,
}

var (
	orderKeyboard   = [][]string{{PhraseRandom, PhraseNewest, PhraseOldest}, {PhraseExit}}
	verdictKeyboard = [][]string{{PhraseApprove, PhraseSkipSubmission, PhraseReject}, {PhraseExit}}
)

var (
	approveShown = verdict(models.StatusApproved)
	rejectShown  = verdict(models.StatusRejected)
)

// requireManager sends non-managers back to the menu. It reports whether
// the caller may continue.
func requireManager(t *turn) (bool, error) {
	u, err := t.loadUser()
	if err != nil {
		return false, err
	}
	if u.IsManager() {
		return true, nil
	}
	return false, t.enter(session.SceneMenu)
}

func enterReview(t *turn) error {
	if ok, err := requireManager(t); !ok {
		return err
	}
	return t.say("Choose which submissions to review", orderKeyboard)
}

func chooseOrder(t *turn) error {
	t.review().Order = orderPhrases[t.ev.Text]
	return showNext(t)
}

// showNext picks the next uploaded submission not skipped in this pass and
// shows it. The candidate pool is re-read every time so verdicts from other
// reviewers are reflected.
func showNext(t *turn) error {
	st := t.review()
	if !st.Order.Valid() {
		return nil
	}
	sort, limit := st.Order.Narrowing()
	cands, err := t.engine.queue.FindSubmissions(store.SubmissionQuery{
		Status:  models.StatusUploaded,
		Exclude: st.Skipped,
		Sort:    sort,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	sub := t.engine.pick(cands)
	if sub == nil {
		st.ShownID = ""
		if err := t.save(); err != nil {
			return err
		}
		return t.say("No more submissions to review", exitKeyboard)
	}

	st.ShownID = sub.ID
	if err := t.save(); err != nil {
		return err
	}
	_, err = t.reply(telegraph.OutboundMessage{
		Photo:    &telegraph.MediaItem{URL: sub.Link, Caption: reviewCaption(sub)},
		Keyboard: verdictKeyboard,
	})
	return err
}

// verdict returns a handler that moves the shown submission to status and
// shows the next one. A submission another reviewer already moved is left
// as it is.
func verdict(status models.Status) handlerFunc {
	return func(t *turn) error {
		st := t.review()
		if st.ShownID == "" {
			return nil
		}
		id := st.ShownID
		_, err := t.engine.queue.UpdateStatus(id, status)
		switch {
		case errors.Is(err, store.ErrIllegalTransition), errors.Is(err, store.ErrNotFound):
			log.Printf("conversation: user %s: %s submission %s: %v", t.ev.UserID, status, id, err)
		case err != nil:
			return err
		default:
			reviewsTotal.WithLabelValues(string(status)).Inc()
			log.Printf("conversation: user %s marked submission %s %s", t.ev.UserID, id, status)
		}
		return showNext(t)
	}
}

func skipShown(t *turn) error {
	st := t.review()
	if st.ShownID == "" {
		return nil
	}
	st.Skipped = append(st.Skipped, st.ShownID)
	st.ShownID = ""
	return showNext(t)
}
