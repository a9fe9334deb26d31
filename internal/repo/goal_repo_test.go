package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateGoal_AndGet(t *testing.T) {
	db := newTestDB(t)

	g, err := CreateGoal(context.Background(), db, "u1", "Read daily", 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := GetGoal(context.Background(), db, g.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Read daily" || got.WeeklyTarget != 7 {
		t.Fatalf("unexpected goal: %+v", got)
	}
}

func TestGetGoal_OwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	g, err := CreateGoal(context.Background(), db, "owner", "t", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := GetGoal(context.Background(), db, g.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestUpdateGoal(t *testing.T) {
	db := newTestDB(t)
	g, err := CreateGoal(context.Background(), db, "u1", "Old title", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := UpdateGoal(context.Background(), db, g.ID, "u1", "New title", 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := GetGoal(context.Background(), db, g.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "New title" || got.WeeklyTarget != 5 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := UpdateGoal(context.Background(), db, "missing", "u1", "x", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSoftDeleteGoal(t *testing.T) {
	db := newTestDB(t)
	g, err := CreateGoal(context.Background(), db, "u1", "Doomed", 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := SoftDeleteGoal(context.Background(), db, g.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Gone from normal reads.
	if _, err := GetGoal(context.Background(), db, g.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Row still physically present (soft delete).
	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM goals WHERE id = ?", g.ID).Scan(&n).Error; err != nil {
		t.Fatalf("raw count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected soft-deleted row to remain, count = %d", n)
	}

	// Second delete is a no-op not-found.
	if err := SoftDeleteGoal(context.Background(), db, g.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListGoalsPage_AndCount(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := CreateGoal(context.Background(), db, "u1", "g", 1); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := CreateGoal(context.Background(), db, "someone-else", "g", 1); err != nil {
		t.Fatalf("create other: %v", err)
	}

	total, err := CountGoals(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 5 {
		t.Fatalf("count = %d, want 5", total)
	}

	page, err := ListGoalsPage(context.Background(), db, "u1", 0, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page len = %d, want 3", len(page))
	}
	rest, err := ListGoalsPage(context.Background(), db, "u1", 3, 3)
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("rest len = %d, want 2", len(rest))
	}
}
