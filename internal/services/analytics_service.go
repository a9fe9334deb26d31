// Package services – AnalyticsService
//
// Weekly completion aggregates are cheap to compute but requested on every
// dashboard load, so results are memoized behind an explicit cache: a
// mutex-guarded map from (user, span) to (value, computed-at). The check-in
// writer invalidates a user's entries on every commit via its OnCommit hook,
// and a TTL bounds staleness for anything the hook cannot see (maintenance
// tooling writing directly to the store).
package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

// WeekSummary aggregates one calendar week of check-ins across all goals.
type WeekSummary struct {
	// WeekStart is the Monday identifying the week (date only).
	WeekStart string `json:"week_start"`
	// GoalsTracked is how many goals had a check-in row that week.
	GoalsTracked int `json:"goals_tracked"`
	// DaysChecked is the total of marked days across those rows.
	DaysChecked int `json:"days_checked"`
	// TargetDays is the total of snapshotted weekly targets.
	TargetDays int `json:"target_days"`
	// Completion is DaysChecked/TargetDays in [0,1] (0 when no targets).
	Completion float64 `json:"completion"`
}

type analyticsEntry struct {
	computedAt time.Time
	weeks      []WeekSummary
}

// AnalyticsService computes and caches weekly completion summaries.
type AnalyticsService struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
	// TTL caps how long a cached summary may serve without recompute.
	TTL time.Duration

	mu      sync.Mutex
	entries map[string]analyticsEntry
}

// NewAnalyticsService constructs an AnalyticsService with a 5-minute TTL.
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		DB:      db,
		TTL:     5 * time.Minute,
		entries: make(map[string]analyticsEntry),
	}
}

// WeeklySummary returns per-week aggregates for the trailing `weeks` weeks
// (including the current one), oldest first. Results are served from cache
// when fresh.
func (s *AnalyticsService) WeeklySummary(ctx context.Context, userID string, weeks int) ([]WeekSummary, error) {
	if weeks < 1 {
		weeks = 1
	}
	if weeks > 52 {
		weeks = 52
	}
	key := userID + ":" + strconv.Itoa(weeks)
	now := time.Now().UTC()

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && (s.TTL <= 0 || now.Sub(e.computedAt) < s.TTL) {
		out := make([]WeekSummary, len(e.weeks))
		copy(out, e.weeks)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	computed, err := s.compute(ctx, userID, weeks, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[key] = analyticsEntry{computedAt: now, weeks: computed}
	s.mu.Unlock()

	out := make([]WeekSummary, len(computed))
	copy(out, computed)
	return out, nil
}

// Invalidate drops all cached summaries for a user. Wired as the check-in
// writer's OnCommit hook so commits are immediately visible.
func (s *AnalyticsService) Invalidate(userID string) {
	prefix := userID + ":"
	s.mu.Lock()
	for k := range s.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

// compute loads the range once and buckets rows by week in memory.
func (s *AnalyticsService) compute(ctx context.Context, userID string, weeks int, now time.Time) ([]WeekSummary, error) {
	thisWeek := utils.WeekStart(now)
	from := thisWeek.AddDate(0, 0, -7*(weeks-1))

	rows, err := repo.ListCheckInsRange(ctx, s.DB, userID, "", from, thisWeek)
	if err != nil {
		return nil, err
	}

	byWeek := make(map[string][]domain.WeeklyCheckIn, weeks)
	for _, r := range rows {
		k := r.WeekStart.UTC().Format(utils.DateLayout)
		byWeek[k] = append(byWeek[k], r)
	}

	out := make([]WeekSummary, 0, weeks)
	for w := 0; w < weeks; w++ {
		start := from.AddDate(0, 0, 7*w)
		k := start.Format(utils.DateLayout)
		sum := WeekSummary{WeekStart: k}
		for _, r := range byWeek[k] {
			sum.GoalsTracked++
			sum.DaysChecked += r.States.CheckedDays()
			sum.TargetDays += r.WeeklyTarget
		}
		if sum.TargetDays > 0 {
			sum.Completion = float64(sum.DaysChecked) / float64(sum.TargetDays)
		}
		out = append(out, sum)
	}
	return out, nil
}
