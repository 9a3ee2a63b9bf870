package moderation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/zulandar/memeyard/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusUploaded, models.StatusApproved, true},
		{models.StatusUploaded, models.StatusRejected, true},
		{models.StatusApproved, models.StatusPosted, true},
		{models.StatusApproved, models.StatusUploaded, true},
		{models.StatusUploaded, models.StatusPosted, false},
		{models.StatusUploaded, models.StatusUploaded, false},
		{models.StatusApproved, models.StatusRejected, false},
		{models.StatusApproved, models.StatusApproved, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, from := range []models.Status{models.StatusRejected, models.StatusPosted} {
		for _, to := range models.AllStatuses {
			if CanTransition(from, to) {
				t.Errorf("CanTransition(%s, %s) = true, want terminal", from, to)
			}
		}
	}
}

func TestSources(t *testing.T) {
	tests := []struct {
		target models.Status
		want   []models.Status
	}{
		{models.StatusApproved, []models.Status{models.StatusUploaded}},
		{models.StatusRejected, []models.Status{models.StatusUploaded}},
		{models.StatusPosted, []models.Status{models.StatusApproved}},
		{models.StatusUploaded, []models.Status{models.StatusApproved}},
	}
	for _, tt := range tests {
		got := Sources(tt.target)
		if len(got) != len(tt.want) || got[0] != tt.want[0] {
			t.Errorf("Sources(%s) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(models.StatusUploaded, models.StatusApproved); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateTransition(models.StatusPosted, models.StatusUploaded)
	if err == nil {
		t.Fatal("expected error for posted -> uploaded")
	}
	if errors.Unwrap(err) != nil {
		t.Errorf("expected a plain error, got wrapped %v", err)
	}
}

func TestBatches(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	groups := Batches(items, MaxGroupSize)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	if len(groups[0]) != 10 || len(groups[1]) != 10 || len(groups[2]) != 3 {
		t.Errorf("group sizes = %d,%d,%d, want 10,10,3", len(groups[0]), len(groups[1]), len(groups[2]))
	}
	if groups[2][0] != 20 {
		t.Errorf("groups[2][0] = %d, want 20", groups[2][0])
	}
}

func TestBatches_EmptyAndExact(t *testing.T) {
	if got := Batches([]int{}, 10); len(got) != 0 {
		t.Errorf("Batches(empty) = %v, want none", got)
	}
	if got := Batches(make([]int, 10), 10); len(got) != 1 {
		t.Errorf("Batches(10) produced %d groups, want 1", len(got))
	}
	if got := Batches(make([]int, 11), 0); len(got) != 2 {
		t.Errorf("Batches with size 0 should default to %d, got %d groups", MaxGroupSize, len(got))
	}
}

func TestOrderNarrowing(t *testing.T) {
	tests := []struct {
		order     Order
		wantSort  Sort
		wantLimit int
	}{
		{OrderNewest, SortNewest, 1},
		{OrderOldest, SortOldest, 1},
		{OrderRandom, SortNewest, 0},
	}
	for _, tt := range tests {
		sort, limit := tt.order.Narrowing()
		if sort != tt.wantSort || limit != tt.wantLimit {
			t.Errorf("%s.Narrowing() = (%d, %d), want (%d, %d)", tt.order, sort, limit, tt.wantSort, tt.wantLimit)
		}
	}
}

func TestOrderValid(t *testing.T) {
	for _, o := range []Order{OrderRandom, OrderNewest, OrderOldest} {
		if !o.Valid() {
			t.Errorf("%q should be valid", o)
		}
	}
	if Order("sideways").Valid() {
		t.Error("unknown order should be invalid")
	}
}

func TestPick_Empty(t *testing.T) {
	if got := Pick(nil, nil); got != nil {
		t.Errorf("Pick(nil) = %v, want nil", got)
	}
}

func TestPick_EveryCandidateReachable(t *testing.T) {
	cands := []models.Submission{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	rng := rand.New(rand.NewSource(42))
	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		seen[Pick(cands, rng).ID]++
	}
	for _, c := range cands {
		if seen[c.ID] == 0 {
			t.Errorf("candidate %s never picked", c.ID)
		}
	}
	if len(seen) != len(cands) {
		t.Errorf("picked %d distinct ids, want %d", len(seen), len(cands))
	}
}

func TestPick_SingleCandidate(t *testing.T) {
	cands := []models.Submission{{ID: "only"}}
	for i := 0; i < 10; i++ {
		if got := Pick(cands, nil); got.ID != "only" {
			t.Fatalf("Pick = %s, want only", got.ID)
		}
	}
}
