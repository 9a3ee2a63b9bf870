package dashboard

import (
	"time"

	"github.com/zulandar/memeyard/internal/conversation"
	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
)

// Summary is the JSON shape of the global queue counts.
type Summary struct {
	Total    int64 `json:"total"`
	Uploaded int64 `json:"uploaded"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Posted   int64 `json:"posted"`
}

// NewSummary flattens counts into a Summary.
func NewSummary(c moderation.Counts) Summary {
	return Summary{
		Total:    c.Total(),
		Uploaded: c.Get(models.StatusUploaded),
		Approved: c.Get(models.StatusApproved),
		Rejected: c.Get(models.StatusRejected),
		Posted:   c.Get(models.StatusPosted),
	}
}

// SubmissionRow holds submission data for display.
type SubmissionRow struct {
	ID        string        `json:"id"`
	Author    string        `json:"author"`
	Link      string        `json:"link"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// SubmissionRows converts submissions for display.
func SubmissionRows(subs []models.Submission) []SubmissionRow {
	rows := make([]SubmissionRow, len(subs))
	for i := range subs {
		rows[i] = SubmissionRow{
			ID:        subs[i].ID,
			Author:    conversation.AuthorName(&subs[i]),
			Link:      subs[i].Link,
			Status:    subs[i].Status,
			CreatedAt: subs[i].CreatedAt.UTC(),
		}
	}
	return rows
}
