// Check-in HTTP handlers.
//
// This file exposes REST endpoints for weekly check-ins:
//   - PUT /goals/{id}/checkins   (idempotent submit: create or overwrite one week)
//   - GET /goals/{id}/checkins   (list a week range, ETag support)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (dates, targets, checkbox states)
//   - delegate to the application service (CheckInService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// The retry token may arrive in the JSON body (requestId) or in the
// Idempotency-Key header; the body wins when both are present. When a
// previous commit exists for (user, token), the handler returns that recorded
// check-in, sets `Idempotency-Replayed: true`, and reproduces the original
// status code (201 for a create, 200 for an update).
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

//
// DTOs
//

// SubmitCheckInRequest is the JSON payload for a weekly check-in submission.
//
// The week is identified by any date inside it; the server normalizes to the
// week's Monday. CheckboxStates is Monday-first and must carry exactly seven
// entries.
type SubmitCheckInRequest struct {
	// WeekStartDate is a calendar date (YYYY-MM-DD) inside the target week.
	WeekStartDate string `json:"weekStartDate" binding:"required" example:"2026-08-31"`
	// WeeklyTarget is the days-per-week aim snapshotted onto this week (1–7).
	WeeklyTarget int `json:"weeklyTarget" binding:"required,min=1,max=7" example:"5"`
	// CheckboxStates holds the seven per-day booleans, Monday-first.
	CheckboxStates *domain.WeekStates `json:"checkboxStates" binding:"required"`
	// RequestID is an optional client retry token (UUID recommended).
	RequestID string `json:"requestId,omitempty" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
	// ExpectedUpdatedAt is the version last observed by the client (RFC3339).
	// Omit to skip the concurrency guard.
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty" example:"2026-08-31T07:15:02.113Z"`
}

// SubmitCheckInResponse is the JSON envelope for a committed check-in.
type SubmitCheckInResponse struct {
	// CheckIn is the committed (or replayed) weekly row.
	CheckIn *domain.WeeklyCheckIn `json:"checkIn"`
}

// ListCheckInsResponse contains the check-ins in the requested week range.
type ListCheckInsResponse struct {
	CheckIns []domain.WeeklyCheckIn `json:"checkIns"`
}

//
// Handlers
//

// SubmitCheckIn godoc
// @ID          submitCheckIn
// @Summary     Submit a weekly check-in
// @Description Creates or overwrites the check-in for one (goal, week). Safe to retry with the same requestId;
// @Description replays return the originally committed row with Idempotency-Replayed: true.
// @Description A stale expectedUpdatedAt is rejected with 409 version_conflict.
// @Tags        CheckIns
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Retry token (alternative to body requestId)"
// @Param       id               path    string  true  "Goal ID (UUID)"         format(uuid)
// @Param       body             body    handlers.SubmitCheckInRequest  true  "Check-in payload"
//
// @Success     200  {object} handlers.SubmitCheckInResponse "Week overwritten (or replayed update)"
// @Success     201  {object} handlers.SubmitCheckInResponse "Week created (or replayed create)"
// @Header      200  {string} Idempotency-Replayed "true when a prior result was returned"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Goal not found"
// @Failure     409  {object} handlers.ErrorResponse "version_conflict or duplicate_key"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals/{id}/checkins [put]
func (h *Handlers) SubmitCheckIn(c *gin.Context) {
	ctx := c.Request.Context()
	goalID := c.Param("id")

	if _, err := uuid.Parse(goalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "goal id must be a UUID")
		return
	}

	var req SubmitCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CheckboxStates == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "weekStartDate, weeklyTarget (1–7) and checkboxStates[7] required")
		return
	}

	week, err := utils.ParseWeekStart(req.WeekStartDate)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "weekStartDate must be YYYY-MM-DD")
		return
	}

	// Body token wins over the header set by the idempotency middleware.
	requestID := req.RequestID
	if requestID == "" {
		requestID, _ = middleware.GetIdempotencyKey(c)
	}

	res, err := h.checkinSvc.Submit(ctx, userID(c), services.CheckInInput{
		GoalID:            goalID,
		WeekStart:         week,
		WeeklyTarget:      req.WeeklyTarget,
		States:            *req.CheckboxStates,
		RequestID:         requestID,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	})
	if err != nil {
		switch err {
		case services.ErrGoalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "goal not found")
		case services.ErrInvalidTarget, services.ErrInvalidWeekStart:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrVersionConflict:
			fail(c, http.StatusConflict, ErrCodeVersionConflict, "check-in was modified by another request")
		case services.ErrDuplicateKey:
			fail(c, http.StatusConflict, ErrCodeDuplicateKey, "a concurrent request created this week first")
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}

	if res.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	ok(c, status, SubmitCheckInResponse{CheckIn: res.CheckIn})
}

// ListCheckIns godoc
// @ID          listCheckIns
// @Summary     List check-ins for a goal
// @Description Returns the goal's check-ins with week_start inside [from, to] (dates normalized to Mondays).
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        CheckIns
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       id             path    string  true  "Goal ID (UUID)"              format(uuid)
// @Param       from           query   string  true  "Range start (YYYY-MM-DD)"    example(2026-08-03)
// @Param       to             query   string  true  "Range end (YYYY-MM-DD)"      example(2026-08-31)
//
// @Success     200  {object} handlers.ListCheckInsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Goal not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /goals/{id}/checkins [get]
func (h *Handlers) ListCheckIns(c *gin.Context) {
	ctx := c.Request.Context()
	goalID := c.Param("id")

	if _, err := uuid.Parse(goalID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "goal id must be a UUID")
		return
	}

	from, err := utils.ParseDate(c.Query("from"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := utils.ParseDate(c.Query("to"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to must not precede from")
		return
	}

	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.checkinSvc.(*services.CheckInService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CheckInsStats(ctx, db, uid, goalID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixMilli()
			}
			etag := fmt.Sprintf(`W/"checkins:%s:%d:%d"`, goalID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.checkinSvc.ListRange(ctx, uid, goalID, from, to)
	if err != nil {
		switch err {
		case services.ErrGoalNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "goal not found")
		default:
			failInternal(c, ErrCodeListFailed, err)
		}
		return
	}
	if items == nil {
		items = []domain.WeeklyCheckIn{}
	}
	ok(c, http.StatusOK, ListCheckInsResponse{CheckIns: items})
}
