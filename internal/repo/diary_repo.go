// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the DiaryEntry
// model (plain diary and migraine records share one table).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateDiaryEntry inserts a new diary row. Intended to run inside the
// writer's transaction; pass the tx handle.
func CreateDiaryEntry(db *gorm.DB, userID string, entryDate time.Time, kind string, severity *int, content string, now time.Time) (*domain.DiaryEntry, error) {
	e := &domain.DiaryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		EntryDate: entryDate,
		Kind:      kind,
		Severity:  severity,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetDiaryEntry fetches an entry by ID, scoped to its owner, or ErrNotFound.
func GetDiaryEntry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.DiaryEntry, error) {
	var e domain.DiaryEntry
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateDiaryEntry overwrites severity and content and bumps updated_at.
// Kind and entry date are immutable once written.
func UpdateDiaryEntry(db *gorm.DB, id, userID string, severity *int, content string, now time.Time) error {
	res := db.Model(&domain.DiaryEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"severity": severity, "content": content, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDiaryEntries returns a user's entries, newest entry date first,
// optionally filtered by kind ("" lists all kinds).
func ListDiaryEntries(ctx context.Context, db *gorm.DB, userID, kind string, offset, limit int) ([]domain.DiaryEntry, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []domain.DiaryEntry
	err := q.Order("entry_date DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDiaryEntries returns the total of live entries for pagination,
// optionally filtered by kind.
func CountDiaryEntries(ctx context.Context, db *gorm.DB, userID, kind string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.DiaryEntry{}).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}
