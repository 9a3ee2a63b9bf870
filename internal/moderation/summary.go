package moderation

import "github.com/zulandar/memeyard/internal/models"

// Counts maps a status to the number of submissions in it.
type Counts map[models.Status]int64

// Total sums every status.
func (c Counts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Get returns the count for a status, zero when absent.
func (c Counts) Get(s models.Status) int64 {
	return c[s]
}

// Summary is what the menu shows a user about the queue.
type Summary struct {
	User   models.User
	Own    Counts
	Global Counts // nil unless the user is a manager
}

// CountSource is the slice of the store that summaries read from.
type CountSource interface {
	// CountByStatus groups submissions by status. An empty owner counts
	// every submission.
	CountByStatus(owner string) (Counts, error)
}

// BuildSummary computes the summary for user. It returns nil for a user
// without a display name, which tells the caller to start onboarding.
func BuildSummary(src CountSource, user *models.User) (*Summary, error) {
	if user == nil || user.Name() == "" {
		return nil, nil
	}
	own, err := src.CountByStatus(user.ID)
	if err != nil {
		return nil, err
	}
	s := &Summary{User: *user, Own: own}
	if user.IsManager() {
		global, err := src.CountByStatus("")
		if err != nil {
			return nil, err
		}
		s.Global = global
	}
	return s, nil
}
