package store

import (
	"errors"
	"fmt"

	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"gorm.io/gorm"
)

// SubmissionQuery filters FindSubmissions.
type SubmissionQuery struct {
	Status  models.Status   // required
	Exclude []string        // ids to leave out
	Sort    moderation.Sort // by creation time
	Limit   int             // 0 = no limit
}

// CreateSubmission records a new upload with status uploaded.
func (s *Store) CreateSubmission(userID, link string) (*models.Submission, error) {
	if userID == "" {
		return nil, fmt.Errorf("store: create submission: user id is required")
	}
	if link == "" {
		return nil, fmt.Errorf("store: create submission: link is required")
	}
	sub := models.Submission{
		UserID: userID,
		Link:   link,
		Status: models.StatusUploaded,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("store: create submission: %w", err)
	}
	return &sub, nil
}

// GetSubmission loads one submission with its owner.
func (s *Store) GetSubmission(id string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.Preload("User").Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get submission %s: %w", id, err)
	}
	return &sub, nil
}

// FindSubmissions returns submissions in one status, with owners loaded.
func (s *Store) FindSubmissions(q SubmissionQuery) ([]models.Submission, error) {
	if q.Status == "" {
		return nil, fmt.Errorf("store: find submissions: status is required")
	}
	tx := s.db.Preload("User").Where("status = ?", q.Status)
	if len(q.Exclude) > 0 {
		tx = tx.Where("id NOT IN ?", q.Exclude)
	}
	switch q.Sort {
	case moderation.SortNewest:
		tx = tx.Order("created_at DESC").Order("id")
	case moderation.SortOldest:
		tx = tx.Order("created_at ASC").Order("id")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var subs []models.Submission
	if err := tx.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("store: find %s submissions: %w", q.Status, err)
	}
	return subs, nil
}

// CountByStatus groups submissions by status. An empty owner counts every
// submission; otherwise only the owner's.
func (s *Store) CountByStatus(owner string) (moderation.Counts, error) {
	var rows []struct {
		Status models.Status
		N      int64
	}
	tx := s.db.Model(&models.Submission{}).Select("status, COUNT(*) AS n")
	if owner != "" {
		tx = tx.Where("user_id = ?", owner)
	}
	if err := tx.Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: count by status: %w", err)
	}
	counts := moderation.Counts{}
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// UpdateStatus moves one submission to a new status. Setting a submission
// to the status it already has is a no-op and reports changed=false. Any
// other change outside the legal edges returns ErrIllegalTransition.
func (s *Store) UpdateStatus(id string, to models.Status) (bool, error) {
	sources := moderation.Sources(to)
	if len(sources) == 0 {
		return false, fmt.Errorf("%w: nothing moves to %s", ErrIllegalTransition, to)
	}
	result := s.db.Model(&models.Submission{}).
		Where("id = ? AND status IN ?", id, sources).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("store: update submission %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	cur, err := s.GetSubmission(id)
	if err != nil {
		return false, err
	}
	if cur.Status == to {
		return false, nil
	}
	return false, fmt.Errorf("%w: submission %s is %s, cannot become %s", ErrIllegalTransition, id, cur.Status, to)
}

// UpdateStatusByIDs moves every listed submission that is in a legal source
// status to the target. Submissions in any other status are left alone.
// Returns the number of rows changed.
func (s *Store) UpdateStatusByIDs(ids []string, to models.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sources := moderation.Sources(to)
	if len(sources) == 0 {
		return 0, fmt.Errorf("%w: nothing moves to %s", ErrIllegalTransition, to)
	}
	result := s.db.Model(&models.Submission{}).
		Where("id IN ? AND status IN ?", ids, sources).
		Update("status", to)
	if result.Error != nil {
		return 0, fmt.Errorf("store: batch update to %s: %w", to, result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateStatusWhere moves every submission in status from to status to.
func (s *Store) UpdateStatusWhere(from, to models.Status) (int64, error) {
	if err := moderation.ValidateTransition(from, to); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIllegalTransition, err)
	}
	result := s.db.Model(&models.Submission{}).
		Where("status = ?", from).
		Update("status", to)
	if result.Error != nil {
		return 0, fmt.Errorf("store: update %s to %s: %w", from, to, result.Error)
	}
	return result.RowsAffected, nil
}
