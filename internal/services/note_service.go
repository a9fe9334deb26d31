// Package services – NoteService
//
// Notes follow the same write discipline as check-ins: creates may carry a
// retry token resolved against the audit ledger, updates may carry an
// expected version, and every accepted write commits its audit event in the
// same transaction as the row. Blank titles are auto-generated from the
// first words of the body.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/search"
)

// NoteService provides note CRUD and keyword search.
type NoteService struct {
	DB *gorm.DB

	// ReplayWindow bounds replay detection for create retries (0 = forever).
	ReplayWindow time.Duration

	// MaxContentRunes caps note bodies; 0 disables the check.
	MaxContentRunes int
	// TitleMaxLen caps stored/generated titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing rules for generated titles.
	TitleLocale language.Tag
}

// NewNoteService constructs a NoteService with sane defaults.
func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{
		DB:              db,
		MaxContentRunes: 20000,
		TitleMaxLen:     60,
		TitleLocale:     language.English,
	}
}

// Create stores a new note. When requestID matches a prior commit the
// original note is returned with replayed == true and nothing is written.
func (s *NoteService) Create(ctx context.Context, userID, title, content, requestID string) (note *domain.Note, replayed bool, err error) {
	if userID == "" {
		return nil, false, ErrMissingUser
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, false, ErrTooLong
	}

	var staleTokenEvent string
	if ev, expired, err := resolveReplay(ctx, s.DB, userID, requestID, s.ReplayWindow); err != nil {
		return nil, false, err
	} else if ev != nil {
		if !expired {
			prev, err := repo.GetNote(ctx, s.DB, ev.EntityID, userID)
			if err == nil {
				return prev, true, nil
			}
		}
		// Expired or orphaned token; release it in the transaction so the
		// fresh append does not collide on the ledger index.
		staleTokenEvent = ev.ID
	}

	title = normalizeTitle(title)
	if title == "" {
		title = s.titleFromContent(content)
	}
	title = clipRunes(title, s.TitleMaxLen)

	now := time.Now().UTC().Truncate(time.Millisecond)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.CreateNote(tx, userID, title, content, now)
		if err != nil {
			return err
		}
		note = n
		if staleTokenEvent != "" {
			if err := repo.ReleaseAuditToken(tx, staleTokenEvent); err != nil {
				return err
			}
		}
		payload := auditPayload(requestID, map[string]any{"title": title})
		_, err = repo.AppendAuditEvent(tx, userID, domain.EventNoteCreated, domain.EntityNote,
			n.ID, optionalToken(requestID), payload, now)
		return err
	})
	if err != nil {
		if repo.IsDuplicate(err) {
			return nil, false, ErrDuplicateKey
		}
		return nil, false, err
	}
	return note, false, nil
}

// Update overwrites a note's title and content under the version guard.
func (s *NoteService) Update(ctx context.Context, userID, noteID, title, content string, expectedUpdatedAt *time.Time) (*domain.Note, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrTooLong
	}

	current, err := repo.GetNote(ctx, s.DB, noteID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		// A guarded update against a missing row is a conflict, not a 404:
		// the row may have been deleted since the client read it.
		if expectedUpdatedAt != nil {
			return nil, ErrVersionConflict
		}
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkVersion(expectedUpdatedAt, &current.UpdatedAt); err != nil {
		return nil, err
	}

	title = normalizeTitle(title)
	if title == "" {
		title = s.titleFromContent(content)
	}
	title = clipRunes(title, s.TitleMaxLen)

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Millisecond)
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateNote(tx, noteID, userID, title, content, now); err != nil {
			return err
		}
		payload := auditPayload("", map[string]any{"title": title})
		_, err := repo.AppendAuditEvent(tx, userID, domain.EventNoteUpdated, domain.EntityNote,
			noteID, nil, payload, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	n := *current
	n.Title = title
	n.Content = content
	n.UpdatedAt = now
	return &n, nil
}

// ListPage returns a page of notes and the total count.
func (s *NoteService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Note, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountNotes(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Note{}, 0, nil
	}
	items, err := repo.ListNotesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Search ranks the user's notes against a keyword query. The index is small
// (one user's notes) and rebuilt per call, which keeps it trivially
// consistent with the store.
func (s *NoteService) Search(ctx context.Context, userID, query string, k int) ([]search.Result, error) {
	notes, err := repo.ListNotes(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Doc, 0, len(notes))
	for _, n := range notes {
		docs = append(docs, search.Doc{ID: n.ID, Title: n.Title, Body: n.Content})
	}
	return search.NewIndex(docs).TopK(query, k), nil
}

// titleFromContent derives a concise title from the first words of the body.
func (s *NoteService) titleFromContent(content string) string {
	toks := titleWordRE.FindAllString(strings.ToLower(content), -1)
	if len(toks) == 0 {
		return "Untitled"
	}
	caser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 6)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 6 {
			break
		}
	}
	if len(out) == 0 {
		return "Untitled"
	}
	return strings.Join(out, " ")
}

func (s *NoteService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// clipRunes truncates a string to max runes (max <= 0 disables clipping).
func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// Extract Unicode letters with optional trailing numbers (e.g., "sprint3").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
