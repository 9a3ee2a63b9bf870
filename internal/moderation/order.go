package moderation

import (
	"math/rand"

	"github.com/zulandar/memeyard/internal/models"
)

// Order is the browsing order a reviewer picks.
type Order string

const (
	OrderRandom Order = "random"
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
)

// Sort is the recency ordering applied to a candidate query.
type Sort int

const (
	SortNone Sort = iota
	SortNewest
	SortOldest
)

// Narrowing returns the sort and row limit that constrain the candidate pool
// for an order. Random fetches every remaining candidate (limit 0).
func (o Order) Narrowing() (Sort, int) {
	switch o {
	case OrderNewest:
		return SortNewest, 1
	case OrderOldest:
		return SortOldest, 1
	default:
		return SortNewest, 0
	}
}

// Valid reports whether o is one of the known orders.
func (o Order) Valid() bool {
	switch o {
	case OrderRandom, OrderNewest, OrderOldest:
		return true
	}
	return false
}

// Pick chooses one candidate uniformly at random. The order only narrows
// the pool; the choice within it is always random. Returns nil when there
// are no candidates. A nil rng uses the global source.
func Pick(candidates []models.Submission, rng *rand.Rand) *models.Submission {
	if len(candidates) == 0 {
		return nil
	}
	var i int
	if rng != nil {
		i = rng.Intn(len(candidates))
	} else {
		i = rand.Intn(len(candidates))
	}
	return &candidates[i]
}
