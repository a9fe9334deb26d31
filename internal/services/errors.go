// Package services defines the business logic for goals, weekly check-ins,
// diary entries, notes, and analytics. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrMissingUser is returned when a mutation is attempted without an
	// authenticated user identity. Writes fail closed.
	ErrMissingUser = errors.New("user identity required")

	// ErrGoalNotFound indicates that the requested goal does not exist or is
	// not accessible to the current user.
	ErrGoalNotFound = errors.New("goal not found")

	// ErrCheckInNotFound indicates that the requested check-in does not exist
	// or is not accessible to the current user.
	ErrCheckInNotFound = errors.New("check-in not found")

	// ErrNoteNotFound indicates that the requested note does not exist or is
	// not accessible to the current user.
	ErrNoteNotFound = errors.New("note not found")

	// ErrEntryNotFound indicates that the requested diary entry does not
	// exist or is not accessible to the current user.
	ErrEntryNotFound = errors.New("diary entry not found")

	// ErrVersionConflict is returned when a client-supplied expected version
	// does not match the stored row (including the row not existing at all).
	// The client must re-fetch and re-apply.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateKey is returned when two writers race to create the same
	// natural key and the storage unique index rejects the loser, or when an
	// idempotency token is reused for a different entity.
	ErrDuplicateKey = errors.New("duplicate natural key")

	// ErrInvalidTarget is returned when a weekly target falls outside [1,7].
	ErrInvalidTarget = errors.New("weekly target must be between 1 and 7")

	// ErrInvalidWeekStart is returned when a check-in carries no usable week
	// start date.
	ErrInvalidWeekStart = errors.New("week start date required")

	// ErrInvalidKind is returned when a diary entry kind is outside the
	// allowed set.
	ErrInvalidKind = errors.New("kind must be 'diary' or 'migraine'")

	// ErrInvalidSeverity is returned when a migraine severity falls outside
	// [1,10], or when a plain diary entry carries one.
	ErrInvalidSeverity = errors.New("severity must be between 1 and 10 on migraine entries")

	// ErrEmptyContent is returned when a note or diary body is blank.
	ErrEmptyContent = errors.New("content is empty")

	// ErrTooLong is returned when a submitted body exceeds the configured
	// length limit.
	ErrTooLong = errors.New("content too long")
)
