// Diary HTTP handlers.
//
// This file exposes REST endpoints for diary and migraine entries:
//   - POST /diary        (create, retry-token aware)
//   - PUT  /diary/{id}   (overwrite, version-guarded; kind and date immutable)
//   - GET  /diary        (list, paginated, optional kind filter)
//
// Migraine entries carry a severity in [1,10]; plain diary entries must not.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

//
// DTOs
//

// CreateDiaryEntryRequest is the JSON payload for creating a diary entry.
type CreateDiaryEntryRequest struct {
	// EntryDate is the calendar date the entry is about (YYYY-MM-DD).
	EntryDate string `json:"entryDate" binding:"required" example:"2026-08-31"`
	// Kind is "diary" or "migraine".
	Kind string `json:"kind" binding:"required" example:"migraine"`
	// Severity is required for migraine entries (1–10) and forbidden otherwise.
	Severity *int `json:"severity,omitempty" example:"6"`
	// Content is the entry body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1"`
	// RequestID is an optional client retry token (UUID recommended).
	RequestID string `json:"requestId,omitempty"`
}

// UpdateDiaryEntryRequest is the JSON payload for overwriting an entry.
// Kind and entry date cannot change after creation.
type UpdateDiaryEntryRequest struct {
	Severity *int   `json:"severity,omitempty"`
	Content  string `json:"content" binding:"required,min=1"`
	// ExpectedUpdatedAt is the version last observed by the client (RFC3339).
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// ListDiaryResponse wraps a page of diary entries and pagination information.
type ListDiaryResponse struct {
	Entries    []domain.DiaryEntry `json:"entries"`
	Pagination Pagination          `json:"pagination"`
}

//
// Handlers
//

// CreateDiaryEntry godoc
// @ID          createDiaryEntry
// @Summary     Create a diary or migraine entry
// @Description Stores a dated entry. Migraine entries require a severity in [1,10].
// @Description Safe to retry with the same requestId; replays return the original entry.
// @Tags        Diary
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Retry token (alternative to body requestId)"
// @Param       body             body    handlers.CreateDiaryEntryRequest  true  "Create entry payload"
//
// @Success     200  {object} domain.DiaryEntry "Replayed prior result"
// @Success     201  {object} domain.DiaryEntry
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /diary [post]
func (h *Handlers) CreateDiaryEntry(c *gin.Context) {
	var req CreateDiaryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entryDate, kind and content required")
		return
	}

	entryDate, err := utils.ParseDate(req.EntryDate)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entryDate must be YYYY-MM-DD")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID, _ = middleware.GetIdempotencyKey(c)
	}

	e, replayed, err := h.diarySvc.Create(c.Request.Context(), userID(c), entryDate, req.Kind, req.Severity, req.Content, requestID)
	if err != nil {
		switch err {
		case services.ErrInvalidKind, services.ErrInvalidSeverity, services.ErrEmptyContent, services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, e)
		return
	}
	ok(c, http.StatusCreated, e)
}

// UpdateDiaryEntry godoc
// @ID          updateDiaryEntry
// @Summary     Overwrite a diary entry
// @Description Replaces an entry's severity and content. Kind and entry date are immutable.
// @Description A stale expectedUpdatedAt is rejected with 409 version_conflict.
// @Tags        Diary
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Entry ID (UUID)"        format(uuid)
// @Param       body       body    handlers.UpdateDiaryEntryRequest  true  "Update entry payload"
//
// @Success     200  {object} domain.DiaryEntry
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     409  {object} handlers.ErrorResponse "Version conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /diary/{id} [put]
func (h *Handlers) UpdateDiaryEntry(c *gin.Context) {
	entryID := c.Param("id")
	if _, err := uuid.Parse(entryID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}

	var req UpdateDiaryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	e, err := h.diarySvc.Update(c.Request.Context(), userID(c), entryID, req.Severity, req.Content, req.ExpectedUpdatedAt)
	if err != nil {
		switch err {
		case services.ErrEntryNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "diary entry not found")
		case services.ErrVersionConflict:
			fail(c, http.StatusConflict, ErrCodeVersionConflict, "diary entry was modified by another request")
		case services.ErrInvalidSeverity, services.ErrEmptyContent, services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, e)
}

// ListDiaryEntries godoc
// @ID          listDiaryEntries
// @Summary     List diary entries (paginated)
// @Description Returns a page of the user's entries, newest first. The kind query filters to "diary" or "migraine".
// @Tags        Diary
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"     example(user123)
// @Param       kind       query   string  false "Filter by kind"            Enums(diary, migraine)
// @Param       page       query   int     false "Page number"               minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"            minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDiaryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /diary [get]
func (h *Handlers) ListDiaryEntries(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.diarySvc.ListPage(c.Request.Context(), userID(c), c.Query("kind"), page, pageSize)
	if err != nil {
		switch err {
		case services.ErrInvalidKind:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeListFailed, err)
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListDiaryResponse{
		Entries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
