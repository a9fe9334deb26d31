package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/search"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// ---------- test plumbing ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Goal{}, &domain.WeeklyCheckIn{}, &domain.Note{}, &domain.DiaryEntry{}, &domain.AuditEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// realHandlers wires Handlers over concrete services on a test DB.
func realHandlers(db *gorm.DB) *Handlers {
	return New(
		services.NewGoalService(db),
		&services.CheckInService{DB: db},
		services.NewNoteService(db),
		services.NewDiaryService(db),
		services.NewAnalyticsService(db),
	)
}

func seedGoal(t *testing.T, db *gorm.DB, userID string) *domain.Goal {
	t.Helper()
	g, err := repo.CreateGoal(context.Background(), db, userID, "test goal", 5)
	if err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	return g
}

// Handlers.New expects interfaces in this package; stubs satisfy them.

type stubCheckinSvc struct {
	submit func(ctx context.Context, userID string, in services.CheckInInput) (*services.CheckInResult, error)
	list   func(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.WeeklyCheckIn, error)
}

func (s stubCheckinSvc) Submit(ctx context.Context, userID string, in services.CheckInInput) (*services.CheckInResult, error) {
	return s.submit(ctx, userID, in)
}

func (s stubCheckinSvc) Get(context.Context, string, string, time.Time) (*domain.WeeklyCheckIn, error) {
	return nil, nil
}

func (s stubCheckinSvc) ListRange(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.WeeklyCheckIn, error) {
	return s.list(ctx, userID, goalID, from, to)
}

type stubGoalSvc struct{}

func (stubGoalSvc) Create(context.Context, string, string, int) (*domain.Goal, error) { return nil, nil }
func (stubGoalSvc) ListPage(context.Context, string, int, int) ([]domain.Goal, int64, error) {
	return nil, 0, nil
}
func (stubGoalSvc) Get(context.Context, string, string) (*domain.Goal, error) { return nil, nil }
func (stubGoalSvc) Update(context.Context, string, string, string, int) error { return nil }
func (stubGoalSvc) Delete(context.Context, string, string) error              { return nil }

type stubNoteSvc struct{}

func (stubNoteSvc) Create(context.Context, string, string, string, string) (*domain.Note, bool, error) {
	return nil, false, nil
}
func (stubNoteSvc) Update(context.Context, string, string, string, string, *time.Time) (*domain.Note, error) {
	return nil, nil
}
func (stubNoteSvc) ListPage(context.Context, string, int, int) ([]domain.Note, int64, error) {
	return nil, 0, nil
}
func (stubNoteSvc) Search(context.Context, string, string, int) ([]search.Result, error) {
	return nil, nil
}

type stubDiarySvc struct{}

func (stubDiarySvc) Create(context.Context, string, time.Time, string, *int, string, string) (*domain.DiaryEntry, bool, error) {
	return nil, false, nil
}
func (stubDiarySvc) Update(context.Context, string, string, *int, string, *time.Time) (*domain.DiaryEntry, error) {
	return nil, nil
}
func (stubDiarySvc) ListPage(context.Context, string, string, int, int) ([]domain.DiaryEntry, int64, error) {
	return nil, 0, nil
}

type stubAnalyticsSvc struct{}

func (stubAnalyticsSvc) WeeklySummary(context.Context, string, int) ([]services.WeekSummary, error) {
	return nil, nil
}

func stubHandlers(ci stubCheckinSvc) *Handlers {
	return New(stubGoalSvc{}, ci, stubNoteSvc{}, stubDiarySvc{}, stubAnalyticsSvc{})
}

func checkinRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/goals/:id/checkins", h.SubmitCheckIn)
	r.GET("/goals/:id/checkins", h.ListCheckIns)
	return r
}

func putCheckIn(r *gin.Engine, goalID, userID, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/goals/"+goalID+"/checkins", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ---------- SubmitCheckIn ----------

func TestSubmitCheckIn_BadInput(t *testing.T) {
	r := checkinRouter(stubHandlers(stubCheckinSvc{
		submit: func(context.Context, string, services.CheckInInput) (*services.CheckInResult, error) {
			t.Fatal("Submit should not be called for invalid input")
			return nil, nil
		},
	}))

	// invalid UUID
	w := putCheckIn(r, "not-a-uuid", "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid uuid -> %d", w.Code)
	}

	// binding error (missing checkboxStates)
	w = putCheckIn(r, uuid.NewString(), "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing states -> %d", w.Code)
	}

	// target out of range fails binding
	w = putCheckIn(r, uuid.NewString(), "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":9,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("target 9 -> %d", w.Code)
	}

	// malformed date
	w = putCheckIn(r, uuid.NewString(), "u1", `{"weekStartDate":"08/31/2026","weeklyTarget":5,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date -> %d", w.Code)
	}
}

func TestSubmitCheckIn_NormalizesWeekBeforeService(t *testing.T) {
	var got time.Time
	r := checkinRouter(stubHandlers(stubCheckinSvc{
		submit: func(_ context.Context, _ string, in services.CheckInInput) (*services.CheckInResult, error) {
			got = in.WeekStart
			return &services.CheckInResult{CheckIn: &domain.WeeklyCheckIn{}, Created: true}, nil
		},
	}))

	// Thursday; the handler hands the service the week's Monday.
	w := putCheckIn(r, uuid.NewString(), "u1", `{"weekStartDate":"2026-09-03","weeklyTarget":5,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit -> %d body=%s", w.Code, w.Body.String())
	}
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("service received %v, want %v", got, want)
	}
}

func TestSubmitCheckIn_CreateOverwriteReplay(t *testing.T) {
	db := newTestDB(t)
	g := seedGoal(t, db, "u1")
	r := checkinRouter(realHandlers(db))

	// Fresh create with a retry token.
	body := `{"weekStartDate":"2026-09-02","weeklyTarget":5,"checkboxStates":[true,true,false,false,false,false,false],"requestId":"tok-1"}`
	w := putCheckIn(r, g.ID, "u1", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatal("fresh create must not carry the replay header")
	}
	var created SubmitCheckInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("json: %v", err)
	}
	// Wednesday normalized to the week's Monday.
	if got := created.CheckIn.WeekStart.UTC().Format("2006-01-02"); got != "2026-08-31" {
		t.Fatalf("week not normalized: %s", got)
	}

	// Retry with the same token and a different payload: original row, same
	// status, replay header.
	retry := `{"weekStartDate":"2026-09-02","weeklyTarget":5,"checkboxStates":[false,false,false,false,false,false,true],"requestId":"tok-1"}`
	w = putCheckIn(r, g.ID, "u1", retry, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("replay -> %d", w.Code)
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("expected replay header")
	}
	var replayed SubmitCheckInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &replayed); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !replayed.CheckIn.States[0] || replayed.CheckIn.States[6] {
		t.Fatalf("replay must return the original states: %v", replayed.CheckIn.States)
	}

	// A new token overwrites the week and reports 200.
	overwrite := `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,true,true,false,false,false,false],"requestId":"tok-2"}`
	w = putCheckIn(r, g.ID, "u1", overwrite, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("overwrite -> %d body=%s", w.Code, w.Body.String())
	}
}

func TestSubmitCheckIn_HeaderTokenFallback(t *testing.T) {
	db := newTestDB(t)
	g := seedGoal(t, db, "u1")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := realHandlers(db)
	r.Use(func(c *gin.Context) { c.Set("userID", "u1") })
	r.PUT("/goals/:id/checkins", h.SubmitCheckIn)

	// Send tokens in both places; the body one must win.
	body := `{"weekStartDate":"2026-08-31","weeklyTarget":3,"checkboxStates":[true,false,false,false,false,false,false],"requestId":"body-tok"}`
	w := putCheckIn(r, g.ID, "", body, map[string]string{"Idempotency-Key": "header-tok"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}

	// The body token, not the header one, must be on the audit ledger.
	ev, err := repo.FindAuditEventByRequestID(context.Background(), db, "u1", "body-tok", time.Time{})
	if err != nil || ev == nil {
		t.Fatalf("body token not recorded: ev=%v err=%v", ev, err)
	}
	if ev2, _ := repo.FindAuditEventByRequestID(context.Background(), db, "u1", "header-tok", time.Time{}); ev2 != nil {
		t.Fatalf("header token must lose to the body token, found %+v", ev2)
	}
}

func TestSubmitCheckIn_VersionConflict(t *testing.T) {
	db := newTestDB(t)
	g := seedGoal(t, db, "u1")
	r := checkinRouter(realHandlers(db))

	w := putCheckIn(r, g.ID, "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d", w.Code)
	}
	var first SubmitCheckInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("json: %v", err)
	}
	stale := first.CheckIn.UpdatedAt.UTC().Format(time.RFC3339Nano)

	// Advance the row so the guard below is stale.
	w = putCheckIn(r, g.ID, "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,true,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("advance -> %d", w.Code)
	}

	body := fmt.Sprintf(`{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[false,false,false,false,false,false,false],"expectedUpdatedAt":%q}`, stale)
	w = putCheckIn(r, g.ID, "u1", body, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale guard -> %d body=%s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeVersionConflict {
		t.Fatalf("code = %q, want %q", resp.Code, ErrCodeVersionConflict)
	}
}

func TestSubmitCheckIn_ErrorMappings(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		want     int
		wantCode string
	}{
		{"goal_not_found", services.ErrGoalNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"invalid_week_start", services.ErrInvalidWeekStart, http.StatusBadRequest, ErrCodeBadRequest},
		{"duplicate_key", services.ErrDuplicateKey, http.StatusConflict, ErrCodeDuplicateKey},
		{"generic_500", gorm.ErrInvalidField, http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := checkinRouter(stubHandlers(stubCheckinSvc{
				submit: func(context.Context, string, services.CheckInInput) (*services.CheckInResult, error) {
					return nil, tc.err
				},
			}))
			w := putCheckIn(r, uuid.NewString(), "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,false,false,false,false,false,false]}`, nil)
			if w.Code != tc.want {
				t.Fatalf("want %d, got %d body=%s", tc.want, w.Code, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
			// Server-side errors answer with a fixed message; storage
			// internals stay in the logs.
			if tc.want == http.StatusInternalServerError {
				if resp.Message != "could not complete request" {
					t.Fatalf("message = %q, want generic", resp.Message)
				}
				if strings.Contains(w.Body.String(), tc.err.Error()) {
					t.Fatalf("raw error text leaked into body: %s", w.Body.String())
				}
			}
		})
	}
}

// ---------- ListCheckIns ----------

func TestListCheckIns_RangeValidation(t *testing.T) {
	r := checkinRouter(stubHandlers(stubCheckinSvc{
		list: func(context.Context, string, string, time.Time, time.Time) ([]domain.WeeklyCheckIn, error) {
			t.Fatal("ListRange should not be called for invalid input")
			return nil, nil
		},
	}))

	get := func(path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("/goals/not-uuid/checkins?from=2026-08-03&to=2026-08-31"); code != http.StatusBadRequest {
		t.Fatalf("uuid -> %d", code)
	}
	id := uuid.NewString()
	if code := get("/goals/" + id + "/checkins?to=2026-08-31"); code != http.StatusBadRequest {
		t.Fatalf("missing from -> %d", code)
	}
	if code := get("/goals/" + id + "/checkins?from=2026-08-03&to=bad"); code != http.StatusBadRequest {
		t.Fatalf("bad to -> %d", code)
	}
	if code := get("/goals/" + id + "/checkins?from=2026-08-31&to=2026-08-03"); code != http.StatusBadRequest {
		t.Fatalf("inverted range -> %d", code)
	}
}

func TestListCheckIns_Success_And_ETag304(t *testing.T) {
	db := newTestDB(t)
	g := seedGoal(t, db, "u1")
	r := checkinRouter(realHandlers(db))

	w := putCheckIn(r, g.ID, "u1", `{"weekStartDate":"2026-08-31","weeklyTarget":5,"checkboxStates":[true,true,false,false,false,false,false]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed checkin -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/goals/"+g.ID+"/checkins?from=2026-08-01&to=2026-09-30", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	var out ListCheckInsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.CheckIns) != 1 {
		t.Fatalf("got %d check-ins, want 1", len(out.CheckIns))
	}

	// Conditional revalidation.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/goals/"+g.ID+"/checkins?from=2026-08-01&to=2026-09-30", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag 304 -> %d", w.Code)
	}
}
