// Goal HTTP handlers.
//
// This file exposes REST endpoints for goal resources:
//   - POST   /goals        (create)
//   - GET    /goals        (list, paginated, ETag support)
//   - GET    /goals/{id}   (fetch one)
//   - PUT    /goals/{id}   (rename / change weekly target)
//   - DELETE /goals/{id}   (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
// It also defines the service contracts and shared DTO/helper types used by
// the rest of the handlers in this package.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/search"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// GoalService defines goal lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GoalService interface {
	// Create starts a new goal for userID with a title and weekly target.
	Create(ctx context.Context, userID, title string, weeklyTarget int) (*domain.Goal, error)
	// ListPage returns a page of goals for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Goal, int64, error)
	// Get fetches one goal that belongs to userID.
	Get(ctx context.Context, userID, goalID string) (*domain.Goal, error)
	// Update renames a goal and/or changes its weekly target.
	Update(ctx context.Context, userID, goalID, title string, weeklyTarget int) error
	// Delete soft-deletes a goal that belongs to userID.
	Delete(ctx context.Context, userID, goalID string) error
}

// CheckInService defines the weekly check-in write and read operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CheckInService interface {
	// Submit runs the idempotent, version-guarded check-in write path.
	Submit(ctx context.Context, userID string, in services.CheckInInput) (*services.CheckInResult, error)
	// Get returns the check-in for a goal and week.
	Get(ctx context.Context, userID, goalID string, week time.Time) (*domain.WeeklyCheckIn, error)
	// ListRange returns a goal's check-ins within an inclusive week range.
	ListRange(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.WeeklyCheckIn, error)
}

// NoteService defines note CRUD and keyword search operations.
type NoteService interface {
	Create(ctx context.Context, userID, title, content, requestID string) (*domain.Note, bool, error)
	Update(ctx context.Context, userID, noteID, title, content string, expectedUpdatedAt *time.Time) (*domain.Note, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Note, int64, error)
	Search(ctx context.Context, userID, query string, k int) ([]search.Result, error)
}

// DiaryService defines diary entry operations.
type DiaryService interface {
	Create(ctx context.Context, userID string, entryDate time.Time, kind string, severity *int, content, requestID string) (*domain.DiaryEntry, bool, error)
	Update(ctx context.Context, userID, entryID string, severity *int, content string, expectedUpdatedAt *time.Time) (*domain.DiaryEntry, error)
	ListPage(ctx context.Context, userID, kind string, page, pageSize int) ([]domain.DiaryEntry, int64, error)
}

// AnalyticsService defines read-side aggregate operations.
type AnalyticsService interface {
	WeeklySummary(ctx context.Context, userID string, weeks int) ([]services.WeekSummary, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for goals, check-ins, notes, diary entries,
// and analytics. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	goalSvc      GoalService
	checkinSvc   CheckInService
	noteSvc      NoteService
	diarySvc     DiaryService
	analyticsSvc AnalyticsService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(goalSvc GoalService, checkinSvc CheckInService, noteSvc NoteService, diarySvc DiaryService, analyticsSvc AnalyticsService) *Handlers {
	return &Handlers{
		goalSvc:      goalSvc,
		checkinSvc:   checkinSvc,
		noteSvc:      noteSvc,
		diarySvc:     diarySvc,
		analyticsSvc: analyticsSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateGoalRequest is the JSON payload for creating a goal.
type CreateGoalRequest struct {
	// Title names the goal; a default is used when empty.
	Title string `json:"title" example:"Morning run"`
	// WeeklyTarget is how many days per week the user aims for (1–7).
	WeeklyTarget int `json:"weeklyTarget" binding:"required,min=1,max=7" example:"5"`
}

// UpdateGoalRequest is the JSON payload for updating a goal.
type UpdateGoalRequest struct {
	// Title is the new goal name (1–120 chars).
	Title string `json:"title" binding:"required,min=1" example:"Evening run"`
	// WeeklyTarget is the new days-per-week aim (1–7). Affects future
	// check-ins only; past weeks keep their snapshot.
	WeeklyTarget int `json:"weeklyTarget" binding:"required,min=1,max=7" example:"4"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListGoalsResponse wraps a page of goals and pagination information.
type ListGoalsResponse struct {
	Goals      []domain.Goal `json:"goals"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateGoal godoc
// @ID          createGoal
// @Summary     Create a new goal
// @Description Creates a goal for the current user and returns the goal resource.
// @Tags        Goals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateGoalRequest  true  "Create goal payload"
//
// @Success     201  {object}  domain.Goal
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /goals [post]
func (h *Handlers) CreateGoal(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and weeklyTarget (1–7) required")
		return
	}

	g, err := h.goalSvc.Create(c.Request.Context(), userID(c), req.Title, req.WeeklyTarget)
	if err != nil {
		switch err {
		case services.ErrInvalidTarget:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}
	ok(c, http.StatusCreated, g)
}

// ListGoals godoc
// @ID          listGoals
// @Summary     List goals (paginated)
// @Description Returns a page of the user's goals. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Goals
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListGoalsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals [get]
func (h *Handlers) ListGoals(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.goalSvc.(*services.GoalService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.GoalsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"goals:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.goalSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListGoalsResponse{
		Goals: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetGoal godoc
// @ID          getGoal
// @Summary     Fetch a goal
// @Description Returns one goal owned by the current user.
// @Tags        Goals
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Goal ID (UUID)"         format(uuid)
//
// @Success     200  {object} domain.Goal
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Goal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals/{id} [get]
func (h *Handlers) GetGoal(c *gin.Context) {
	goalID := c.Param("id")
	if _, err := uuid.Parse(goalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "goal id must be a UUID")
		return
	}

	g, err := h.goalSvc.Get(c.Request.Context(), userID(c), goalID)
	if err != nil {
		switch err {
		case services.ErrGoalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "goal not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, g)
}

// UpdateGoal godoc
// @ID          updateGoal
// @Summary     Update a goal
// @Description Renames a goal and/or changes its weekly target. Past check-ins keep their snapshotted target.
// @Tags        Goals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Goal ID (UUID)"         format(uuid)
// @Param       body       body    handlers.UpdateGoalRequest  true  "Update goal payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Goal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals/{id} [put]
func (h *Handlers) UpdateGoal(c *gin.Context) {
	goalID := c.Param("id")
	if _, err := uuid.Parse(goalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "goal id must be a UUID")
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and weeklyTarget (1–7) required")
		return
	}

	if err := h.goalSvc.Update(c.Request.Context(), userID(c), goalID, req.Title, req.WeeklyTarget); err != nil {
		switch err {
		case services.ErrGoalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "goal not found")
		case services.ErrInvalidTarget:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}

	noContent(c)
}

// DeleteGoal godoc
// @ID          deleteGoal
// @Summary     Delete a goal
// @Description Soft-deletes a goal owned by the current user. Check-in history stays resolvable from the audit trail.
// @Tags        Goals
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Goal ID (UUID)"         format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Goal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals/{id} [delete]
func (h *Handlers) DeleteGoal(c *gin.Context) {
	goalID := c.Param("id")
	if _, err := uuid.Parse(goalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "goal id must be a UUID")
		return
	}

	if err := h.goalSvc.Delete(c.Request.Context(), userID(c), goalID); err != nil {
		switch err {
		case services.ErrGoalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "goal not found")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}

	noContent(c)
}
