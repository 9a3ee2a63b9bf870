package conversation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/zulandar/memeyard/internal/session"
	"github.com/zulandar/memeyard/internal/store"
)

// MaxDisplayName is the longest display name accepted, in characters.
const MaxDisplayName = 64

func enterOnboarding(t *turn) error {
	if err := t.say("Hi! Let's get to know each other first.", nil); err != nil {
		return err
	}
	return t.enter(session.SceneChangeDisplayName)
}

func enterChangeName(t *turn) error {
	u, err := t.loadUser()
	if err != nil {
		return err
	}
	var kb [][]string
	if u.Name() != "" {
		kb = [][]string{{PhraseSkip}}
	}
	return t.say("Enter a display name", kb)
}

func skipChangeName(t *turn) error {
	return t.enter(session.SceneMenu)
}

func setDisplayName(t *turn) error {
	name := strings.TrimSpace(t.ev.Text)
	if name == "" {
		return t.say("Enter a display name", nil)
	}
	if utf8.RuneCountInString(name) > MaxDisplayName {
		return t.say("That display name is too long, use at most 64 characters", nil)
	}

	u, err := t.loadUser()
	if err != nil {
		return err
	}
	renamed := u.Name() != ""

	err = t.engine.queue.SetDisplayName(u.ID, name)
	if errors.Is(err, store.ErrNameTaken) {
		return t.say("That display name is taken, try another one", nil)
	}
	if err != nil {
		return err
	}
	t.reload()

	if renamed {
		if err := t.say("Your display name has been changed", nil); err != nil {
			return err
		}
	} else {
		if err := t.say("You can change your display name from the menu at any time", nil); err != nil {
			return err
		}
		if err := t.say("You can now send submissions", nil); err != nil {
			return err
		}
	}
	return t.enter(session.SceneMenu)
}
