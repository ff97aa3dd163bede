// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// SessionStore provides focus-session operations.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a new session store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{db: store.DB}
}

// Start opens a new active session with the stated goal. Any session
// still active is marked abandoned first; only one session is active
// at a time.
func (s *SessionStore) Start(ctx context.Context, goalText string) (*models.FocusSession, error) {
	var session *models.FocusSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().Format(time.RFC3339)
		if err := tx.Model(&models.FocusSession{}).
			Where("status = ?", "active").
			Updates(map[string]any{"status": "abandoned", "end_time": nullString(now)}).Error; err != nil {
			return err
		}

		session = &models.FocusSession{
			GoalText:  goalText,
			Status:    "active",
			StartTime: now,
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Active returns the currently active session, or nil when none.
func (s *SessionStore) Active(ctx context.Context) (*models.FocusSession, error) {
	var session models.FocusSession
	err := s.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("id DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// End closes the session with the given terminal status.
func (s *SessionStore) End(ctx context.Context, id int64, status string) error {
	return s.db.WithContext(ctx).
		Model(&models.FocusSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   status,
			"end_time": nullString(time.Now().Format(time.RFC3339)),
		}).Error
}
