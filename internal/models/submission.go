package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the review state of a submission.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPosted   Status = "posted"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusUploaded, StatusApproved, StatusRejected, StatusPosted}

// Submission is an image sent in by a user and tracked through review.
// Link is an opaque retrievable reference; it is stored as received.
type Submission struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:64;not null;index"`
	Link      string    `gorm:"type:text;not null"`
	Status    Status    `gorm:"size:16;not null;default:uploaded;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	User *User `gorm:"foreignKey:UserID"`
}

// BeforeCreate assigns a random id when none was set.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
