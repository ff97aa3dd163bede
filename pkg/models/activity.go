package models

import (
	"database/sql"
	"time"
)

// ActivityEvent is a single raw foreground-activity sample (tier 1).
// Events are append-only and purged after a short retention window.
type ActivityEvent struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	App             string         `gorm:"index;not null" json:"app"`
	WindowTitle     string         `gorm:"type:text" json:"window_title"`
	URL             sql.NullString `gorm:"type:text" json:"url,omitempty"`
	DurationSeconds int            `gorm:"default:0" json:"duration_seconds"`
	Timestamp       string         `gorm:"not null" json:"timestamp"`
	TimestampEpoch  int64          `gorm:"index:idx_activity_ts,sort:desc;not null" json:"timestamp_epoch"`
}

// TableName implements the GORM table-name convention.
func (ActivityEvent) TableName() string { return "activity_events" }

// NewActivityEvent creates an event stamped with the current time.
func NewActivityEvent(app, title, url string, durationSeconds int) *ActivityEvent {
	now := time.Now()
	return &ActivityEvent{
		App:             app,
		WindowTitle:     title,
		URL:             sql.NullString{String: url, Valid: url != ""},
		DurationSeconds: durationSeconds,
		Timestamp:       now.Format(time.RFC3339),
		TimestampEpoch:  now.UnixMilli(),
	}
}

// ActivitySummary is one row of a windowed aggregate over activity events,
// grouped by app and URL, ordered by recency.
type ActivitySummary struct {
	App         string `json:"app"`
	URL         string `json:"url,omitempty"`
	WindowCount int    `json:"window_count"`
	Titles      string `json:"titles"`
}

// FocusSession tracks the user's stated goal for a working period.
type FocusSession struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GoalText  string         `gorm:"not null" json:"goal_text"`
	Status    string         `gorm:"type:text;check:status IN ('active', 'completed', 'abandoned');default:'active';index" json:"status"`
	StartTime string         `gorm:"not null" json:"start_time"`
	EndTime   sql.NullString `json:"end_time,omitempty"`
}

// TableName implements the GORM table-name convention.
func (FocusSession) TableName() string { return "focus_sessions" }
