// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Audit event types. The set is closed; new mutation paths add a constant
// here rather than inventing ad-hoc strings.
const (
	EventCheckInCreated = "checkin.created"
	EventCheckInUpdated = "checkin.updated"
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventDiaryCreated   = "diary.created"
	EventDiaryUpdated   = "diary.updated"
	EventGoalCreated    = "goal.created"
	EventGoalUpdated    = "goal.updated"
	EventGoalDeleted    = "goal.deleted"
)

// Audited entity types, stored alongside EntityID so events can be resolved
// back to the row they describe.
const (
	EntityCheckIn = "weekly_checkin"
	EntityNote    = "note"
	EntityDiary   = "diary_entry"
	EntityGoal    = "goal"
)

// AuditEvent is an immutable, append-only record of a state change. Rows are
// committed in the same transaction as the entity write they describe and
// double as the idempotency ledger: when a request carries a client token,
// the token lands in RequestID and later retries resolve against it.
//
// RequestID has its own indexed column (rather than living only inside the
// JSON payload) so the at-most-one-event-per-(user, token) rule is enforced
// by the store itself and replay lookups are point reads.
type AuditEvent struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index;uniqueIndex:ux_audit_user_request,priority:1"`
	EventType  string    `json:"event_type"  gorm:"type:varchar(32);not null;index"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(32);not null"`
	EntityID   string    `json:"entity_id"   gorm:"type:char(36);not null;index"`
	RequestID  *string   `json:"request_id,omitempty" gorm:"type:varchar(200);uniqueIndex:ux_audit_user_request,priority:2"`
	Payload    string    `json:"payload"     gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"  gorm:"not null;index;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (AuditEvent) TableName() string { return "audit_events" }

// Created reports whether the event recorded a row creation (as opposed to
// an update or delete). Replayed responses use this to reproduce the status
// the original request returned.
func (e *AuditEvent) Created() bool {
	switch e.EventType {
	case EventCheckInCreated, EventNoteCreated, EventDiaryCreated, EventGoalCreated:
		return true
	}
	return false
}
