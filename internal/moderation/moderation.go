// Package moderation holds the review queue policy: which status changes are
// legal, how the next submission to review is chosen, and how approved
// submissions are grouped for sending.
package moderation

import (
	"fmt"

	"github.com/zulandar/memeyard/internal/models"
)

// MaxGroupSize is the most items sent in a single media group.
const MaxGroupSize = 10

// edges lists every legal status change. Rejected and posted have no
// outgoing edges.
var edges = map[models.Status][]models.Status{
	models.StatusUploaded: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusPosted, models.StatusUploaded},
}

// CanTransition reports whether a submission may move from one status to another.
func CanTransition(from, to models.Status) bool {
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Sources returns the statuses from which a submission may move to target.
// The result is empty for a target nothing can reach.
func Sources(target models.Status) []models.Status {
	var out []models.Status
	for _, from := range models.AllStatuses {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

// ValidateTransition returns an error describing an illegal status change.
func ValidateTransition(from, to models.Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("moderation: illegal transition %s -> %s", from, to)
	}
	return nil
}

// Batches splits items into consecutive groups of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxGroupSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
