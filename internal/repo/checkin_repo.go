// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// WeeklyCheckIn model.
//
// The natural key of a check-in is (user_id, goal_id, week_start); a unique
// index enforces at most one live row per key. Concurrent creates for the
// same key race on that index, and the loser surfaces ErrDuplicate. Inserts
// and updates are written to be called inside a caller-owned transaction so
// the audit append commits atomically with the row.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// GetCheckIn fetches the check-in for the natural key, or ErrNotFound.
func GetCheckIn(ctx context.Context, db *gorm.DB, userID, goalID string, weekStart time.Time) (*domain.WeeklyCheckIn, error) {
	var c domain.WeeklyCheckIn
	err := db.WithContext(ctx).
		Where("user_id = ? AND goal_id = ? AND week_start = ?", userID, goalID, weekStart).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCheckInByID fetches a check-in by primary key, scoped to its owner.
func GetCheckInByID(ctx context.Context, db *gorm.DB, id, userID string) (*domain.WeeklyCheckIn, error) {
	var c domain.WeeklyCheckIn
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCheckIn inserts a new check-in row with a fresh UUID and the given
// server-assigned timestamp on both CreatedAt and UpdatedAt. A unique-index
// collision on the natural key is reported as ErrDuplicate.
func CreateCheckIn(db *gorm.DB, userID, goalID string, weekStart time.Time, weeklyTarget int, states domain.WeekStates, now time.Time) (*domain.WeeklyCheckIn, error) {
	c := &domain.WeeklyCheckIn{
		ID:           uuid.NewString(),
		GoalID:       goalID,
		UserID:       userID,
		WeekStart:    weekStart,
		WeeklyTarget: weeklyTarget,
		States:       states,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// UpdateCheckIn overwrites the target and states of an existing row and bumps
// updated_at to the given timestamp. Returns ErrNotFound when the row is
// missing (e.g. soft-deleted between read and write).
func UpdateCheckIn(db *gorm.DB, id string, weeklyTarget int, states domain.WeekStates, now time.Time) error {
	res := db.Model(&domain.WeeklyCheckIn{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"weekly_target": weeklyTarget,
			"states":        states,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListCheckInsRange returns the check-ins for one goal whose week_start falls
// in [from, to], ordered by week ascending. Pass goalID == "" to span all of
// the user's goals (analytics aggregation).
func ListCheckInsRange(ctx context.Context, db *gorm.DB, userID, goalID string, from, to time.Time) ([]domain.WeeklyCheckIn, error) {
	q := db.WithContext(ctx).
		Where("user_id = ? AND week_start >= ? AND week_start <= ?", userID, from, to)
	if goalID != "" {
		q = q.Where("goal_id = ?", goalID)
	}
	var out []domain.WeeklyCheckIn
	err := q.Order("week_start ASC, goal_id ASC").Find(&out).Error
	return out, err
}

// IsDuplicate reports whether err is the natural-key collision sentinel.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }
