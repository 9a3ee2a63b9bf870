// Package store persists users and submissions with GORM.
package store

import (
	"errors"
	"fmt"

	"github.com/zulandar/memeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a user or submission does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrNameTaken is returned when a display name belongs to another user.
	ErrNameTaken = errors.New("store: display name already taken")
	// ErrIllegalTransition is returned when a status change is not allowed
	// from the submission's current status.
	ErrIllegalTransition = errors.New("store: illegal status transition")
)

// Store reads and writes users and submissions.
type Store struct {
	db *gorm.DB
}

// New creates a Store on an open database.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// UpsertUser creates the user with the default role if absent. An existing
// user is left untouched. The stored record is returned either way.
func (s *Store) UpsertUser(id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("store: upsert user: id is required")
	}
	u := models.User{ID: id, Role: models.RoleUploader}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("store: upsert user %s: %w", id, err)
	}
	return s.FindUser(id)
}

// FindUser looks a user up by identity.
func (s *Store) FindUser(id string) (*models.User, error) {
	var u models.User
	err := s.db.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find user %s: %w", id, err)
	}
	return &u, nil
}

// FindUserByName looks a user up by display name.
func (s *Store) FindUserByName(name string) (*models.User, error) {
	var u models.User
	err := s.db.Where("display_name = ?", name).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find user by name %q: %w", name, err)
	}
	return &u, nil
}

// SetDisplayName gives the user a new display name. It returns ErrNameTaken
// when another user already holds the name; the unique index settles races
// between two users claiming the same name at once.
func (s *Store) SetDisplayName(id, name string) error {
	if name == "" {
		return fmt.Errorf("store: set display name: name is required")
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var holder models.User
		err := tx.Where("display_name = ?", name).First(&holder).Error
		if err == nil && holder.ID != id {
			return ErrNameTaken
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check name: %w", err)
		}

		result := tx.Model(&models.User{}).Where("id = ?", id).Update("display_name", name)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ErrNameTaken
			}
			return fmt.Errorf("update name: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNameTaken) || errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("store: set display name for %s: %w", id, err)
	}
	return nil
}

// SetRole changes a user's role. The user may be given by identity or
// display name.
func (s *Store) SetRole(idOrName string, role models.Role) (*models.User, error) {
	if role != models.RoleUploader && role != models.RoleManager {
		return nil, fmt.Errorf("store: set role: unknown role %q", role)
	}
	u, err := s.FindUser(idOrName)
	if errors.Is(err, ErrNotFound) {
		u, err = s.FindUserByName(idOrName)
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(u).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("store: set role for %s: %w", u.ID, err)
	}
	u.Role = role
	return u, nil
}

// ListUsers returns every user, oldest first.
func (s *Store) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	return users, nil
}
