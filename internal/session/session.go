// Package session keeps the per-user conversation state: which scene owns
// the conversation and the scratch data that scene needs.
//
// Scratch data is typed per scene. Entering a scene always builds a fresh
// Session, so nothing one scene stored can leak into another.
package session

import (
	"context"
	"errors"

	"github.com/zulandar/memeyard/internal/moderation"
)

// Scene names a conversation state.
type Scene string

const (
	SceneMenu              Scene = "menu"
	SceneOnboarding        Scene = "onboarding"
	SceneChangeDisplayName Scene = "change_display_name"
	SceneUploadSubmission  Scene = "upload_submission"
	SceneReviewQueue       Scene = "review_queue"
	ScenePublishBatch      Scene = "publish_batch"
)

// Confirmation is a destructive action waiting for a yes/no answer.
type Confirmation string

const (
	ConfirmNone    Confirmation = ""
	ConfirmPublish Confirmation = "publish"
	ConfirmClear   Confirmation = "clear"
)

// ReviewState is the scratch data of the review queue scene.
type ReviewState struct {
	Order   moderation.Order `json:"order,omitempty"`
	ShownID string           `json:"shown_id,omitempty"`
	Skipped []string         `json:"skipped,omitempty"`
}

// PublishState is the scratch data of the publish scene.
type PublishState struct {
	Pending Confirmation `json:"pending,omitempty"`
}

// Session is one user's conversation state. At most one of the state
// pointers is set, and only the one matching Scene.
type Session struct {
	UserID  string        `json:"user_id"`
	Scene   Scene         `json:"scene"`
	Review  *ReviewState  `json:"review,omitempty"`
	Publish *PublishState `json:"publish,omitempty"`
}

// New returns a fresh session positioned at scene with empty scratch state.
func New(userID string, scene Scene) *Session {
	s := &Session{UserID: userID, Scene: scene}
	switch scene {
	case SceneReviewQueue:
		s.Review = &ReviewState{Skipped: []string{}}
	case ScenePublishBatch:
		s.Publish = &PublishState{}
	}
	return s
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Review != nil {
		r := *s.Review
		r.Skipped = append([]string{}, s.Review.Skipped...)
		c.Review = &r
	}
	if s.Publish != nil {
		p := *s.Publish
		c.Publish = &p
	}
	return &c
}

// ErrNoUser is returned when a session is stored without an identity.
var ErrNoUser = errors.New("session: user id is required")

// Store loads and saves sessions keyed by user identity.
type Store interface {
	// Get returns the stored session, or nil when the user has none.
	Get(ctx context.Context, userID string) (*Session, error)
	// Put replaces the user's session.
	Put(ctx context.Context, s *Session) error
}
