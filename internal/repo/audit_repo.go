// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the append-only
// audit log, which doubles as the idempotency ledger: replay detection is a
// point lookup on the indexed (user_id, request_id) pair.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// AppendAuditEvent inserts one audit row. It is meant to run inside the same
// transaction as the entity write it describes; the caller passes the tx
// handle. A reused request token collides on the unique (user, request_id)
// index and is reported as ErrDuplicate, which aborts the whole transaction.
func AppendAuditEvent(db *gorm.DB, userID, eventType, entityType, entityID string, requestID *string, payload string, now time.Time) (*domain.AuditEvent, error) {
	if requestID != nil && *requestID == "" {
		requestID = nil
	}
	ev := &domain.AuditEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		Payload:    payload,
		CreatedAt:  now,
	}
	if err := db.Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ev, nil
}

// ReleaseAuditToken clears the request token on one audit event, freeing the
// (user, request_id) uniqueness slot for a fresh write. Used when a token
// outlives the replay window or its entity row no longer exists: the event
// itself stays in the trail, only its ledger index entry is dropped. The ID
// guard keeps a racing retry from releasing a token a newer event has since
// claimed; such a race then collides on the index as usual.
func ReleaseAuditToken(db *gorm.DB, eventID string) error {
	return db.Model(&domain.AuditEvent{}).
		Where("id = ? AND request_id IS NOT NULL", eventID).
		Update("request_id", nil).Error
}

// FindAuditEventByRequestID returns the most recent committed event carrying
// the given request token for userID, or ErrNotFound. A non-zero `since`
// bounds the replay window: older events are ignored, so expired tokens
// behave as if never seen.
func FindAuditEventByRequestID(ctx context.Context, db *gorm.DB, userID, requestID string, since time.Time) (*domain.AuditEvent, error) {
	q := db.WithContext(ctx).
		Where("user_id = ? AND request_id = ?", userID, requestID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var ev domain.AuditEvent
	// Most recent wins if the uniqueness rule is ever violated by legacy data.
	err := q.Order("created_at DESC, id DESC").First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListAuditEvents returns a page of a user's audit trail, newest first.
func ListAuditEvents(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountAuditEvents uses a raw COUNT so a missing table surfaces as an error.
func CountAuditEvents(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM audit_events WHERE user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
