// Package services – GoalService
//
// This file implements the GoalService, which manages the goal lifecycle.
// It validates and normalizes titles, enforces ownership rules, and wraps
// each mutation in a transaction with its audit event. Deletion is a soft
// delete; the row stays resolvable from the audit trail.
//
// Service-level errors (e.g., ErrGoalNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// GoalService provides goal-level operations such as creating, listing,
// updating, and (soft) deleting goals.
type GoalService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewGoalService constructs a GoalService with sane defaults.
func NewGoalService(db *gorm.DB) *GoalService {
	return &GoalService{DB: db, TitleMaxLen: 120}
}

// Create inserts a new goal owned by userID. Titles are normalized, trimmed,
// and clipped; a default fallback is applied when blank.
func (s *GoalService) Create(ctx context.Context, userID, title string, weeklyTarget int) (*domain.Goal, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if weeklyTarget < 1 || weeklyTarget > domain.DaysPerWeek {
		return nil, ErrInvalidTarget
	}
	title = normalizeTitle(title)
	if title == "" {
		title = "New goal"
	}
	title = s.clip(title)

	var out *domain.Goal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := repo.CreateGoal(ctx, tx, userID, title, weeklyTarget)
		if err != nil {
			return err
		}
		out = g
		payload := auditPayload("", map[string]any{"title": title, "weeklyTarget": weeklyTarget})
		_, err = repo.AppendAuditEvent(tx, userID, domain.EventGoalCreated, domain.EntityGoal,
			g.ID, nil, payload, g.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage returns a page of goals for a user (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *GoalService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Goal, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountGoals(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Goal{}, 0, nil
	}

	items, err := repo.ListGoalsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches one goal, enforcing ownership.
func (s *GoalService) Get(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	g, err := repo.GetGoal(ctx, s.DB, goalID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGoalNotFound
	}
	return g, err
}

// Update renames a goal and/or changes its weekly target. The target change
// affects future check-ins only; past rows keep their snapshot.
func (s *GoalService) Update(ctx context.Context, userID, goalID, title string, weeklyTarget int) error {
	if weeklyTarget < 1 || weeklyTarget > domain.DaysPerWeek {
		return ErrInvalidTarget
	}
	title = normalizeTitle(title)
	if title == "" {
		title = "Untitled"
	}
	title = s.clip(title)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateGoal(ctx, tx, goalID, userID, title, weeklyTarget); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGoalNotFound
			}
			return err
		}
		payload := auditPayload("", map[string]any{"title": title, "weeklyTarget": weeklyTarget})
		_, err := repo.AppendAuditEvent(tx, userID, domain.EventGoalUpdated, domain.EntityGoal,
			goalID, nil, payload, time.Now().UTC())
		return err
	})
}

// Delete soft-deletes a goal owned by userID and records the event.
func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.SoftDeleteGoal(ctx, tx, goalID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGoalNotFound
			}
			return err
		}
		_, err := repo.AppendAuditEvent(tx, userID, domain.EventGoalDeleted, domain.EntityGoal,
			goalID, nil, "{}", time.Now().UTC())
		return err
	})
}

// clip truncates a title to the configured maximum rune length.
func (s *GoalService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
