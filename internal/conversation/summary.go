package conversation

import (
	"strconv"
	"time"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/telegraph"
)

// TimeLayout formats timestamps shown to users.
const TimeLayout = "2006-01-02 15:04 MST"

const deletedAccount = "deleted account"

// SummaryCard renders a user's summary. Everyone sees their role and own
// total; managers then see global counts per status, uploaders their own
// outcome counts.
func SummaryCard(s *moderation.Summary) telegraph.Card {
	c := telegraph.Card{
		Title:  "Display name: " + s.User.Name(),
		Color:  telegraph.ColorInfo,
		Footer: "Joined " + formatTime(s.User.CreatedAt),
		Fields: []telegraph.Field{
			{Name: "Role", Value: string(s.User.Role), Short: true},
			{Name: "Your submissions", Value: count(s.Own.Total()), Short: true},
		},
	}
	if s.Global != nil {
		c.Fields = append(c.Fields, CountFields(s.Global)...)
		return c
	}
	c.Fields = append(c.Fields,
		telegraph.Field{Name: "Rejected", Value: count(s.Own.Get(models.StatusRejected)), Short: true},
		telegraph.Field{Name: "Approved or posted", Value: count(s.Own.Get(models.StatusApproved) + s.Own.Get(models.StatusPosted)), Short: true},
	)
	return c
}

// CountFields lists the total and every status count.
func CountFields(c moderation.Counts) []telegraph.Field {
	return []telegraph.Field{
		{Name: "Total submissions", Value: count(c.Total()), Short: true},
		{Name: "Awaiting review", Value: count(c.Get(models.StatusUploaded)), Short: true},
		{Name: "Approved", Value: count(c.Get(models.StatusApproved)), Short: true},
		{Name: "Rejected", Value: count(c.Get(models.StatusRejected)), Short: true},
		{Name: "Posted", Value: count(c.Get(models.StatusPosted)), Short: true},
	}
}

// AuthorName returns the display name of a submission's owner.
func AuthorName(sub *models.Submission) string {
	if name := sub.User.Name(); name != "" {
		return name
	}
	return deletedAccount
}

func reviewCaption(sub *models.Submission) string {
	return "Sent by: " + AuthorName(sub) + "\n\nUploaded: " + formatTime(sub.CreatedAt)
}

func groupCaption(sub *models.Submission) string {
	return "From: " + AuthorName(sub)
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
