package models

import "time"

// Role gates which scenes a user may enter.
type Role string

const (
	RoleUploader Role = "uploader"
	RoleManager  Role = "manager"
)

// User is a chat identity known to the bot. DisplayName is nil until the
// user finishes onboarding; once set it is unique across all users.
type User struct {
	ID          string  `gorm:"primaryKey;size:64"`
	DisplayName *string `gorm:"size:64;uniqueIndex"`
	Role        Role    `gorm:"size:16;not null;default:uploader"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Submissions []Submission `gorm:"foreignKey:UserID"`
}

// IsManager reports whether the user may review and publish.
func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

// Name returns the display name, or "" when the user is not onboarded.
func (u *User) Name() string {
	if u == nil || u.DisplayName == nil {
		return ""
	}
	return *u.DisplayName
}
