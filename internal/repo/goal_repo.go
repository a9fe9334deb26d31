// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Goal model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a goal is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an insert collided with an existing row on a
// unique index (natural-key race or reused idempotency token).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateGoal inserts a new Goal row owned by userID. The goal ID is a
// randomly generated UUID (string), and CreatedAt is set to UTC.
func CreateGoal(ctx context.Context, db *gorm.DB, userID, title string, weeklyTarget int) (*domain.Goal, error) {
	g := &domain.Goal{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		WeeklyTarget: weeklyTarget,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// CountGoals returns the total number of live goals owned by userID.
func CountGoals(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Goal{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListGoalsPage returns a paginated slice of goals for userID, ordered by
// creation time descending. Use CountGoals to obtain the total for
// pagination metadata.
func ListGoalsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Goal, error) {
	var out []domain.Goal
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetGoal fetches a single goal by its ID and owner (userID). If the record
// does not exist, it returns ErrNotFound.
func GetGoal(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Goal, error) {
	var g domain.Goal
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGoal updates the title and weekly target of a goal identified by id
// and owned by userID. If no rows are affected (goal missing or not owned by
// userID), it returns ErrNotFound.
func UpdateGoal(ctx context.Context, db *gorm.DB, id, userID, title string, weeklyTarget int) error {
	res := db.WithContext(ctx).
		Model(&domain.Goal{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"title": title, "weekly_target": weeklyTarget})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteGoal marks a goal deleted without removing the row, so history
// and audit references stay resolvable. Returns ErrNotFound when the goal
// does not exist or is not owned by userID.
func SoftDeleteGoal(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Goal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
