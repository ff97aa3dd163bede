// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// ActivityRetention is how long raw activity events are kept before
// the trim job purges them.
const ActivityRetention = 2 * time.Hour

// ActivityStore provides activity-event operations.
type ActivityStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewActivityStore creates a new activity store.
func NewActivityStore(store *Store) *ActivityStore {
	return &ActivityStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// Append records one foreground-activity sample. Negative durations
// are rejected; a zero duration is allowed (instantaneous sample).
func (s *ActivityStore) Append(ctx context.Context, event *models.ActivityEvent) error {
	if event.DurationSeconds < 0 {
		return fmt.Errorf("negative duration: %d", event.DurationSeconds)
	}
	if event.App == "" {
		return fmt.Errorf("empty app name")
	}
	return s.db.WithContext(ctx).Create(event).Error
}

// EventsSince returns events newer than the cutoff, oldest first.
func (s *ActivityStore) EventsSince(ctx context.Context, cutoff time.Time) ([]*models.ActivityEvent, error) {
	var events []*models.ActivityEvent
	err := s.db.WithContext(ctx).
		Where("timestamp_epoch >= ?", cutoff.UnixMilli()).
		Order("timestamp_epoch ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// WindowedSummary aggregates events within the window grouped by app
// and URL, most recent groups first, capped at 10 rows.
func (s *ActivityStore) WindowedSummary(ctx context.Context, window time.Duration) ([]models.ActivitySummary, error) {
	cutoff := time.Now().Add(-window).UnixMilli()

	rows, err := s.rawDB.QueryContext(ctx, `
		SELECT app,
		       COALESCE(url, '') AS url,
		       COUNT(*) AS window_count,
		       GROUP_CONCAT(DISTINCT window_title) AS titles
		FROM activity_events
		WHERE timestamp_epoch >= ?
		GROUP BY app, url
		ORDER BY MAX(timestamp_epoch) DESC
		LIMIT 10`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("windowed summary query: %w", err)
	}
	defer rows.Close()

	var out []models.ActivitySummary
	for rows.Next() {
		var row models.ActivitySummary
		var titles sql.NullString
		if err := rows.Scan(&row.App, &row.URL, &row.WindowCount, &titles); err != nil {
			return nil, err
		}
		row.Titles = titles.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Trim deletes events older than the retention window and returns the
// number of rows removed.
func (s *ActivityStore) Trim(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.WithContext(ctx).
		Where("timestamp_epoch < ?", cutoff).
		Delete(&models.ActivityEvent{})
	return res.RowsAffected, res.Error
}

// PurgeKeyword deletes recent events whose app, title, or URL contains
// the keyword (case-insensitive), scoped to the lookback window. Used
// after a tab closure so a dead page stops counting as activity.
func (s *ActivityStore) PurgeKeyword(ctx context.Context, keyword string, lookback time.Duration) (int64, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0, nil
	}
	cutoff := time.Now().Add(-lookback).UnixMilli()
	pattern := "%" + strings.ToLower(keyword) + "%"
	res := s.db.WithContext(ctx).
		Where("timestamp_epoch >= ?", cutoff).
		Where("LOWER(app) LIKE ? OR LOWER(window_title) LIKE ? OR LOWER(COALESCE(url, '')) LIKE ?",
			pattern, pattern, pattern).
		Delete(&models.ActivityEvent{})
	return res.RowsAffected, res.Error
}

// CountSince returns the number of events newer than the cutoff.
func (s *ActivityStore) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ActivityEvent{}).
		Where("timestamp_epoch >= ?", cutoff.UnixMilli()).
		Count(&count).Error
	return count, err
}
