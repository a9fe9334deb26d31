package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

func intptr(i int) *int { return &i }

func TestDiary_Create_KindSeverityPairing(t *testing.T) {
	db := newTestDB(t)
	svc := NewDiaryService(db)
	day := mustWeek("2026-08-31")

	// Plain diary entry must not carry a severity.
	if _, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindDiary, intptr(3), "slept well", ""); !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity for diary+severity, got %v", err)
	}
	// Migraine entry must carry one in [1,10].
	if _, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindMigraine, nil, "aura at noon", ""); !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity for migraine without severity, got %v", err)
	}
	if _, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindMigraine, intptr(11), "bad", ""); !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity for 11, got %v", err)
	}
	if _, _, err := svc.Create(context.Background(), "u1", day, "mood", nil, "x", ""); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	e, replayed, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindMigraine, intptr(6), "aura at noon", "")
	if err != nil {
		t.Fatalf("valid migraine create: %v", err)
	}
	if replayed {
		t.Fatal("fresh create reported as replay")
	}
	if e.Severity == nil || *e.Severity != 6 {
		t.Fatalf("severity not stored: %v", e.Severity)
	}
}

func TestDiary_Create_Replay(t *testing.T) {
	db := newTestDB(t)
	svc := NewDiaryService(db)
	day := mustWeek("2026-08-31")

	first, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindDiary, nil, "original", "diary-r1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, replayed, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindDiary, nil, "changed", "diary-r1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !replayed || second.ID != first.ID || second.Content != "original" {
		t.Fatalf("replay must return the original entry: replayed=%v %+v", replayed, second)
	}
}

func TestDiary_Update_GuardAndImmutableKind(t *testing.T) {
	db := newTestDB(t)
	svc := NewDiaryService(db)
	day := mustWeek("2026-08-31")

	e, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindMigraine, intptr(4), "v1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v1 := e.UpdatedAt

	upd, err := svc.Update(context.Background(), "u1", e.ID, intptr(8), "worse by evening", &v1)
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if *upd.Severity != 8 || upd.Kind != domain.DiaryKindMigraine {
		t.Fatalf("update result: %+v", upd)
	}

	// Stale guard loses.
	if _, err := svc.Update(context.Background(), "u1", e.ID, intptr(5), "x", &v1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	// Severity rules still apply against the stored kind: a migraine entry
	// cannot drop its severity on update.
	if _, err := svc.Update(context.Background(), "u1", e.ID, nil, "x", nil); !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("expected ErrInvalidSeverity, got %v", err)
	}
}

func TestDiary_Update_MissingRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewDiaryService(db)

	if _, err := svc.Update(context.Background(), "u1", "missing", nil, "x", nil); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	stale := time.Now().UTC()
	if _, err := svc.Update(context.Background(), "u1", "missing", nil, "x", &stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestDiary_ListPage_KindFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewDiaryService(db)
	day := mustWeek("2026-08-31")

	if _, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindDiary, nil, "plain", ""); err != nil {
		t.Fatalf("create diary: %v", err)
	}
	if _, _, err := svc.Create(context.Background(), "u1", day, domain.DiaryKindMigraine, intptr(2), "mild", ""); err != nil {
		t.Fatalf("create migraine: %v", err)
	}

	all, total, err := svc.ListPage(context.Background(), "u1", "", 1, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("all: total=%d len=%d", total, len(all))
	}

	mig, total, err := svc.ListPage(context.Background(), "u1", domain.DiaryKindMigraine, 1, 10)
	if err != nil {
		t.Fatalf("list migraine: %v", err)
	}
	if total != 1 || len(mig) != 1 || mig[0].Kind != domain.DiaryKindMigraine {
		t.Fatalf("migraine filter: total=%d %+v", total, mig)
	}

	if _, _, err := svc.ListPage(context.Background(), "u1", "mood", 1, 10); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
