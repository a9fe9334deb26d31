// Package services – CheckInService
//
// This file implements CheckInService, the application-level component that
// owns the weekly check-in write path. A submission flows through three
// stages in strict sequence:
//
//  1. replay resolution: a prior commit for the same request token is
//     returned as-is instead of re-executing the mutation;
//  2. version guard: a client-supplied expected timestamp must match the
//     stored row exactly, or the write is rejected as a conflict;
//  3. transactional write: the row upsert and its audit event commit as one
//     atomic unit; neither is ever observable without the other.
//
// The service holds no locks and keeps no in-process entity state; across
// concurrent submissions for the same (user, goal, week) the storage unique
// index is the sole serialization point. Exactly one create commits, the
// rest observe a duplicate-key conflict.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// goal/user identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

// CheckInInput carries the validated fields of a check-in submission.
type CheckInInput struct {
	// GoalID identifies the goal being checked in; must belong to the user.
	GoalID string
	// WeekStart is any day of the intended week; it is normalized to the
	// week's Monday (UTC midnight) before use.
	WeekStart time.Time
	// WeeklyTarget is the days-per-week aim, snapshotted onto the row.
	WeeklyTarget int
	// States holds the seven per-day booleans, Monday-first.
	States domain.WeekStates
	// RequestID is the optional client retry token. Empty disables replay
	// detection for this request.
	RequestID string
	// ExpectedUpdatedAt is the optional version the client last observed.
	// Nil disables the concurrency guard for this request.
	ExpectedUpdatedAt *time.Time
}

// CheckInResult is the outcome of a submission.
type CheckInResult struct {
	// CheckIn is the committed row (fresh or replayed).
	CheckIn *domain.WeeklyCheckIn
	// Created reports whether the commit (original commit, for replays)
	// created the row rather than updating it.
	Created bool
	// Replayed reports that a prior result was returned without writing.
	Replayed bool
}

// CheckInService coordinates the idempotent weekly check-in write path.
type CheckInService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// ReplayWindow bounds how far back request tokens are honored.
	// Zero keeps them valid for the lifetime of the audit log.
	ReplayWindow time.Duration
	// OnCommit, when set, is invoked after every accepted write with the
	// acting user id. The analytics cache hooks in here to invalidate.
	OnCommit func(userID string)
}

// Submit runs the full pipeline for one check-in write and returns the
// committed (or replayed) row.
func (s *CheckInService) Submit(ctx context.Context, userID string, in CheckInInput) (*CheckInResult, error) {
	tr := otel.Tracer("services/CheckInService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("goal.id", in.GoalID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, ErrMissingUser
	}
	if in.WeeklyTarget < 1 || in.WeeklyTarget > domain.DaysPerWeek {
		return nil, ErrInvalidTarget
	}
	if in.WeekStart.IsZero() {
		return nil, ErrInvalidWeekStart
	}
	weekStart := utils.WeekStart(in.WeekStart)

	// Ensure the goal exists and belongs to the user.
	if _, err := repo.GetGoal(ctx, s.DB, in.GoalID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}

	// Stage 1: replay resolution (read-only).
	var staleTokenEvent string
	if ev, expired, err := resolveReplay(ctx, s.DB, userID, in.RequestID, s.ReplayWindow); err != nil {
		return nil, err
	} else if ev != nil {
		if !expired {
			prev, err := repo.GetCheckInByID(ctx, s.DB, ev.EntityID, userID)
			if err == nil {
				return &CheckInResult{CheckIn: prev, Created: ev.Created(), Replayed: true}, nil
			}
			// Ledger hit but the row is gone (maintenance wipe); fall
			// through and write fresh.
		}
		// The token is held by an event outside the replay window or one
		// whose row no longer exists. It must be released inside the write
		// transaction, or the fresh audit append would collide on the
		// permanent (user, request_id) unique index.
		staleTokenEvent = ev.ID
	}

	// Stage 2: version guard against the current row, if any.
	current, err := repo.GetCheckIn(ctx, s.DB, userID, in.GoalID, weekStart)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	var currentVersion *time.Time
	if current != nil {
		currentVersion = &current.UpdatedAt
	}
	if err := checkVersion(in.ExpectedUpdatedAt, currentVersion); err != nil {
		return nil, err
	}

	// updated_at is the version token; keep it strictly increasing even on
	// sub-millisecond rewrites.
	now := time.Now().UTC().Truncate(time.Millisecond)
	if current != nil && !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Millisecond)
	}

	// Stage 3: entity write + audit append, atomically.
	var (
		committed *domain.WeeklyCheckIn
		created   bool
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current == nil {
			c, err := repo.CreateCheckIn(tx, userID, in.GoalID, weekStart, in.WeeklyTarget, in.States, now)
			if err != nil {
				return err
			}
			committed, created = c, true
		} else {
			if err := repo.UpdateCheckIn(tx, current.ID, in.WeeklyTarget, in.States, now); err != nil {
				return err
			}
			c := *current
			c.WeeklyTarget = in.WeeklyTarget
			c.States = in.States
			c.UpdatedAt = now
			committed = &c
		}

		eventType := domain.EventCheckInUpdated
		if created {
			eventType = domain.EventCheckInCreated
		}
		if staleTokenEvent != "" {
			if err := repo.ReleaseAuditToken(tx, staleTokenEvent); err != nil {
				return err
			}
		}
		payload := auditPayload(in.RequestID, map[string]any{
			"goalId":       in.GoalID,
			"weekStart":    weekStart.Format(utils.DateLayout),
			"weeklyTarget": in.WeeklyTarget,
			"daysChecked":  in.States.CheckedDays(),
		})
		_, err := repo.AppendAuditEvent(tx, userID, eventType, domain.EntityCheckIn,
			committed.ID, optionalToken(in.RequestID), payload, now)
		return err
	})
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}

	if s.OnCommit != nil {
		s.OnCommit(userID)
	}
	return &CheckInResult{CheckIn: committed, Created: created}, nil
}

// Get returns the check-in for a goal and week, normalizing the date the
// same way Submit does.
func (s *CheckInService) Get(ctx context.Context, userID, goalID string, week time.Time) (*domain.WeeklyCheckIn, error) {
	c, err := repo.GetCheckIn(ctx, s.DB, userID, goalID, utils.WeekStart(week))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCheckInNotFound
	}
	return c, err
}

// ListRange returns a goal's check-ins with week_start in [from, to].
func (s *CheckInService) ListRange(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.WeeklyCheckIn, error) {
	tr := otel.Tracer("services/CheckInService")
	ctx, span := tr.Start(ctx, "ListRange",
		trace.WithAttributes(attribute.String("goal.id", goalID)),
	)
	defer span.End()

	if _, err := repo.GetGoal(ctx, s.DB, goalID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return repo.ListCheckInsRange(ctx, s.DB, userID, goalID, utils.WeekStart(from), utils.WeekStart(to))
}
