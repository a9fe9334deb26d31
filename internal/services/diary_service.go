// Package services – DiaryService
//
// Diary and migraine entries share one table and one write path, using the
// same retry-token and version-guard discipline as check-ins. Migraine
// entries must carry a severity in [1,10]; plain diary entries must not.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// DiaryService provides diary entry operations.
type DiaryService struct {
	DB *gorm.DB

	// ReplayWindow bounds replay detection for create retries (0 = forever).
	ReplayWindow time.Duration
	// MaxContentRunes caps entry bodies; 0 disables the check.
	MaxContentRunes int
}

// NewDiaryService constructs a DiaryService with sane defaults.
func NewDiaryService(db *gorm.DB) *DiaryService {
	return &DiaryService{DB: db, MaxContentRunes: 20000}
}

// validateEntry checks the kind/severity pairing and body constraints.
func (s *DiaryService) validateEntry(kind string, severity *int, content string) error {
	switch kind {
	case domain.DiaryKindDiary:
		if severity != nil {
			return ErrInvalidSeverity
		}
	case domain.DiaryKindMigraine:
		if severity == nil || *severity < 1 || *severity > 10 {
			return ErrInvalidSeverity
		}
	default:
		return ErrInvalidKind
	}
	if content == "" {
		return ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return ErrTooLong
	}
	return nil
}

// Create stores a new entry. When requestID matches a prior commit the
// original entry is returned with replayed == true and nothing is written.
func (s *DiaryService) Create(ctx context.Context, userID string, entryDate time.Time, kind string, severity *int, content, requestID string) (entry *domain.DiaryEntry, replayed bool, err error) {
	if userID == "" {
		return nil, false, ErrMissingUser
	}
	content = strings.TrimSpace(content)
	if err := s.validateEntry(kind, severity, content); err != nil {
		return nil, false, err
	}

	var staleTokenEvent string
	if ev, expired, err := resolveReplay(ctx, s.DB, userID, requestID, s.ReplayWindow); err != nil {
		return nil, false, err
	} else if ev != nil {
		if !expired {
			prev, err := repo.GetDiaryEntry(ctx, s.DB, ev.EntityID, userID)
			if err == nil {
				return prev, true, nil
			}
		}
		// Expired or orphaned token; release it in the transaction so the
		// fresh append does not collide on the ledger index.
		staleTokenEvent = ev.ID
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := repo.CreateDiaryEntry(tx, userID, entryDate.UTC(), kind, severity, content, now)
		if err != nil {
			return err
		}
		entry = e
		if staleTokenEvent != "" {
			if err := repo.ReleaseAuditToken(tx, staleTokenEvent); err != nil {
				return err
			}
		}
		payload := auditPayload(requestID, map[string]any{
			"kind":      kind,
			"entryDate": entryDate.UTC().Format("2006-01-02"),
		})
		_, err = repo.AppendAuditEvent(tx, userID, domain.EventDiaryCreated, domain.EntityDiary,
			e.ID, optionalToken(requestID), payload, now)
		return err
	})
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, false, ErrDuplicateKey
		}
		return nil, false, err
	}
	return entry, false, nil
}

// Update overwrites an entry's severity and content under the version guard.
// Kind and entry date are immutable.
func (s *DiaryService) Update(ctx context.Context, userID, entryID string, severity *int, content string, expectedUpdatedAt *time.Time) (*domain.DiaryEntry, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	content = strings.TrimSpace(content)

	current, err := repo.GetDiaryEntry(ctx, s.DB, entryID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		if expectedUpdatedAt != nil {
			return nil, ErrVersionConflict
		}
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.validateEntry(current.Kind, severity, content); err != nil {
		return nil, err
	}
	if err := checkVersion(expectedUpdatedAt, &current.UpdatedAt); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Millisecond)
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateDiaryEntry(tx, entryID, userID, severity, content, now); err != nil {
			return err
		}
		payload := auditPayload("", map[string]any{"kind": current.Kind})
		_, err := repo.AppendAuditEvent(tx, userID, domain.EventDiaryUpdated, domain.EntityDiary,
			entryID, nil, payload, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	e := *current
	e.Severity = severity
	e.Content = content
	e.UpdatedAt = now
	return &e, nil
}

// ListPage returns a page of entries (newest first), optionally by kind.
func (s *DiaryService) ListPage(ctx context.Context, userID, kind string, page, pageSize int) ([]domain.DiaryEntry, int64, error) {
	if kind != "" && kind != domain.DiaryKindDiary && kind != domain.DiaryKindMigraine {
		return nil, 0, ErrInvalidKind
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountDiaryEntries(ctx, s.DB, userID, kind)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DiaryEntry{}, 0, nil
	}
	items, err := repo.ListDiaryEntries(ctx, s.DB, userID, kind, offset, pageSize)
	return items, total, err
}
