package conversation

import (
	"log"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/telegraph"
)

var refreshButton = telegraph.Button{Label: "Refresh", Action: ActionRefresh}

// menuKeyboard returns the actions available to the user's role.
func menuKeyboard(u *models.User) [][]string {
	kb := [][]string{{PhraseChangeName, PhraseUpload}}
	if u.IsManager() {
		kb = append(kb, []string{PhraseReview, PhrasePublish})
	}
	return kb
}

func enterMenu(t *turn) error {
	u, err := t.loadUser()
	if err != nil {
		return err
	}
	sum, err := moderation.BuildSummary(t.engine.queue, u)
	if err != nil {
		return err
	}
	if sum == nil {
		return t.enter(session.SceneOnboarding)
	}
	if _, err := t.reply(summaryMessage(sum)); err != nil {
		return err
	}
	return t.say("Use the buttons below", menuKeyboard(u))
}

// refreshMenu re-renders the summary in the message the button was on.
func refreshMenu(t *turn) error {
	u, err := t.loadUser()
	if err != nil {
		return err
	}
	sum, err := moderation.BuildSummary(t.engine.queue, u)
	if err != nil || sum == nil {
		return err
	}
	ref := telegraph.MessageRef{ChatID: t.ev.ChatID, MessageID: t.ev.MessageID}
	if err := t.engine.sender.Edit(t.ctx, ref, summaryMessage(sum)); err != nil {
		// The summary may simply be unchanged.
		log.Printf("conversation: user %s: refresh summary: %v", t.ev.UserID, err)
	}
	return nil
}

func summaryMessage(sum *moderation.Summary) telegraph.OutboundMessage {
	return telegraph.OutboundMessage{
		Cards:  []telegraph.Card{SummaryCard(sum)},
		Inline: []telegraph.Button{refreshButton},
	}
}
