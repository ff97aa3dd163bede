package models

import "time"

// EpisodicEventType classifies a short-horizon behavioral event.
type EpisodicEventType string

// Episodic event types. The USER_* closures feed the recovery
// detector; DISTRACTION_DETECTED and INTERVENTION_SHOWN record the
// supervision loop's own observations.
const (
	EventUserClosedTab       EpisodicEventType = "USER_CLOSED_TAB"
	EventUserClosedWindow    EpisodicEventType = "USER_CLOSED_WINDOW"
	EventUserMinimized       EpisodicEventType = "USER_MINIMIZED"
	EventUserDismissed       EpisodicEventType = "USER_DISMISSED"
	EventUserSnoozed         EpisodicEventType = "USER_SNOOZED"
	EventDistractionDetected EpisodicEventType = "DISTRACTION_DETECTED"
	EventInterventionShown   EpisodicEventType = "INTERVENTION_SHOWN"
)

// IsCloseKind reports whether the event type is a user-initiated
// closure that can start a recovery window.
func (t EpisodicEventType) IsCloseKind() bool {
	switch t {
	case EventUserClosedTab, EventUserClosedWindow, EventUserMinimized, EventUserDismissed:
		return true
	}
	return false
}

// EpisodicEvent is one append-only behavioral ledger entry (tier 2).
type EpisodicEvent struct {
	ID             int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Type           EpisodicEventType `gorm:"type:text;index;not null" json:"type"`
	App            string            `gorm:"type:text" json:"app"`
	Detail         string            `gorm:"type:text" json:"detail"`
	CreatedAt      string            `gorm:"not null" json:"created_at"`
	CreatedAtEpoch int64             `gorm:"index:idx_episodic_created,sort:desc;not null" json:"created_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (EpisodicEvent) TableName() string { return "episodic_events" }

// NewEpisodicEvent stamps an episodic entry with the current time.
func NewEpisodicEvent(t EpisodicEventType, app, detail string) *EpisodicEvent {
	now := time.Now()
	return &EpisodicEvent{
		Type:           t,
		App:            app,
		Detail:         detail,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
	}
}
