package conversation

import (
	"fmt"
	"log"

	"github.com/zulandar/memeyard/internal/telegraph"
)

func enterUpload(t *turn) error {
	return t.say("Send me an image to submit it", exitKeyboard)
}

// receiveImage stores the largest attached image variant as a new submission.
func receiveImage(t *turn) error {
	img, ok := telegraph.Largest(t.ev.Images)
	if !ok {
		return nil
	}
	link, err := t.engine.sender.ImageLink(t.ctx, img)
	if err != nil {
		return fmt.Errorf("conversation: resolve image link: %w", err)
	}
	sub, err := t.engine.queue.CreateSubmission(t.ev.UserID, link)
	if err != nil {
		return err
	}
	submissionsCreated.Inc()
	log.Printf("conversation: user %s uploaded submission %s", t.ev.UserID, sub.ID)

	if err := t.say("Submission uploaded", nil); err != nil {
		return err
	}
	return t.say("Send more or exit to menu", exitKeyboard)
}
