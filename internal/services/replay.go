// Idempotency resolution.
//
// Clients retry network-flaky requests. A retried create would either trip
// the natural-key unique index or, on update endpoints, double-apply a
// delta. To prevent that, mutations may carry an opaque client-generated
// request token; before writing, services look the token up in the audit
// log (the idempotency ledger) and, on a hit, replay the previously
// committed entity instead of repeating the effect.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// resolveReplay returns the prior committed audit event for (userID,
// requestID), or nil when the token was never seen.
//
// Idempotency is opt-in per request: an empty token resolves to nil
// unconditionally. window > 0 bounds how far back tokens are honored; zero
// means forever. The lookup itself is unbounded: an event older than the
// window comes back with expired == true so the write path can release its
// hold on the token (the unique ledger index is permanent, so an expired
// token must be superseded, not ignored, or the retry would collide on it).
// Lookup failures other than not-found are returned so callers do not
// mistake an unreachable store for a fresh request.
func resolveReplay(ctx context.Context, db *gorm.DB, userID, requestID string, window time.Duration) (ev *domain.AuditEvent, expired bool, err error) {
	if requestID == "" {
		return nil, false, nil
	}
	ev, err = repo.FindAuditEventByRequestID(ctx, db, userID, requestID, time.Time{})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if window > 0 && ev.CreatedAt.Before(time.Now().UTC().Add(-window)) {
		return ev, true, nil
	}
	return ev, false, nil
}

// auditPayload serializes the audit event payload. The request token is
// carried inside the payload as well as in its own column, so the document
// stays self-describing for offline inspection.
func auditPayload(requestID string, fields map[string]any) string {
	doc := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	if requestID != "" {
		doc["requestId"] = requestID
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// optionalToken converts an optional request token to the nullable column
// representation used by the audit table.
func optionalToken(requestID string) *string {
	if requestID == "" {
		return nil
	}
	return &requestID
}
