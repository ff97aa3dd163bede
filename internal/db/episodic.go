// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// EpisodicStore provides behavioral event-ledger operations.
type EpisodicStore struct {
	db *gorm.DB
}

// NewEpisodicStore creates a new episodic store.
func NewEpisodicStore(store *Store) *EpisodicStore {
	return &EpisodicStore{db: store.DB}
}

// Record appends one behavioral event.
func (s *EpisodicStore) Record(ctx context.Context, event *models.EpisodicEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// RecentEvents returns events newer than the cutoff, newest first.
func (s *EpisodicStore) RecentEvents(ctx context.Context, cutoff time.Time) ([]*models.EpisodicEvent, error) {
	var events []*models.EpisodicEvent
	err := s.db.WithContext(ctx).
		Where("created_at_epoch >= ?", cutoff.UnixMilli()).
		Order("created_at_epoch DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// LastCloseEvent returns the newest user-initiated closure event, or
// nil when none exists. The recovery detector anchors its detection
// window on this event.
func (s *EpisodicStore) LastCloseEvent(ctx context.Context) (*models.EpisodicEvent, error) {
	var event models.EpisodicEvent
	err := s.db.WithContext(ctx).
		Where("type IN ?", []models.EpisodicEventType{
			models.EventUserClosedTab,
			models.EventUserClosedWindow,
			models.EventUserMinimized,
			models.EventUserDismissed,
		}).
		Order("created_at_epoch DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CountByTypeSince returns how many events of the given type were
// recorded after the cutoff.
func (s *EpisodicStore) CountByTypeSince(ctx context.Context, t models.EpisodicEventType, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.EpisodicEvent{}).
		Where("type = ? AND created_at_epoch >= ?", t, cutoff.UnixMilli()).
		Count(&count).Error
	return count, err
}

// Trim deletes events older than the retention window.
func (s *EpisodicStore) Trim(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.WithContext(ctx).
		Where("created_at_epoch < ?", cutoff).
		Delete(&models.EpisodicEvent{})
	return res.RowsAffected, res.Error
}
