// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Note model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateNote inserts a new note row. Intended to run inside the writer's
// transaction; pass the tx handle.
func CreateNote(db *gorm.DB, userID, title, content string, now time.Time) (*domain.Note, error) {
	n := &domain.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote fetches a note by ID, scoped to its owner, or ErrNotFound.
func GetNote(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Note, error) {
	var n domain.Note
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote overwrites title and content and bumps updated_at. Returns
// ErrNotFound when the row is missing or not owned by userID.
func UpdateNote(db *gorm.DB, id, userID, title, content string, now time.Time) error {
	res := db.Model(&domain.Note{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"title": title, "content": content, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountNotes returns the total number of live notes owned by userID.
func CountNotes(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListNotesPage returns a paginated slice of notes, newest first.
func ListNotesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Note, error) {
	var out []domain.Note
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListNotes returns all live notes for a user (search indexing).
func ListNotes(ctx context.Context, db *gorm.DB, userID string) ([]domain.Note, error) {
	var out []domain.Note
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
