// Note HTTP handlers.
//
// This file exposes REST endpoints for note resources:
//   - POST /notes          (create, retry-token aware)
//   - PUT  /notes/{id}     (overwrite, version-guarded)
//   - GET  /notes          (list, paginated)
//   - GET  /notes/search   (keyword search)
//
// Creation accepts an optional retry token (body requestId or Idempotency-Key
// header); a replay returns the originally stored note with
// `Idempotency-Replayed: true` and a 200 instead of re-creating it.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/search"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

//
// DTOs
//

// CreateNoteRequest is the JSON payload for creating a note.
type CreateNoteRequest struct {
	// Title optionally names the note; when blank a title is generated from
	// the first words of the content.
	Title string `json:"title" example:"Training plan"`
	// Content is the note body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Intervals on Tuesday, long run on Sunday."`
	// RequestID is an optional client retry token (UUID recommended).
	RequestID string `json:"requestId,omitempty"`
}

// UpdateNoteRequest is the JSON payload for overwriting a note.
type UpdateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required,min=1"`
	// ExpectedUpdatedAt is the version last observed by the client (RFC3339).
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// ListNotesResponse wraps a page of notes and pagination information.
type ListNotesResponse struct {
	Notes      []domain.Note `json:"notes"`
	Pagination Pagination    `json:"pagination"`
}

// SearchNotesResponse contains ranked search results for a query.
type SearchNotesResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

//
// Handlers
//

// CreateNote godoc
// @ID          createNote
// @Summary     Create a note
// @Description Stores a note. A blank title is auto-generated from the content.
// @Description Safe to retry with the same requestId; replays return the original note.
// @Tags        Notes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Retry token (alternative to body requestId)"
// @Param       body             body    handlers.CreateNoteRequest  true  "Create note payload"
//
// @Success     200  {object} domain.Note "Replayed prior result"
// @Success     201  {object} domain.Note
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID, _ = middleware.GetIdempotencyKey(c)
	}

	n, replayed, err := h.noteSvc.Create(c.Request.Context(), userID(c), req.Title, req.Content, requestID)
	if err != nil {
		switch err {
		case services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, n)
		return
	}
	ok(c, http.StatusCreated, n)
}

// UpdateNote godoc
// @ID          updateNote
// @Summary     Overwrite a note
// @Description Replaces a note's title and content. A stale expectedUpdatedAt is rejected with 409 version_conflict.
// @Tags        Notes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Note ID (UUID)"         format(uuid)
// @Param       body       body    handlers.UpdateNoteRequest  true  "Update note payload"
//
// @Success     200  {object} domain.Note
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Note not found"
// @Failure     409  {object} handlers.ErrorResponse "Version conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/{id} [put]
func (h *Handlers) UpdateNote(c *gin.Context) {
	noteID := c.Param("id")
	if _, err := uuid.Parse(noteID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "note id must be a UUID")
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	n, err := h.noteSvc.Update(c.Request.Context(), userID(c), noteID, req.Title, req.Content, req.ExpectedUpdatedAt)
	if err != nil {
		switch err {
		case services.ErrNoteNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
		case services.ErrVersionConflict:
			fail(c, http.StatusConflict, ErrCodeVersionConflict, "note was modified by another request")
		case services.ErrEmptyContent, services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			failInternal(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, n)
}

// ListNotes godoc
// @ID          listNotes
// @Summary     List notes (paginated)
// @Description Returns a page of the user's notes, most recently updated first.
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListNotesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.noteSvc.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListNotesResponse{
		Notes: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// SearchNotes godoc
// @ID          searchNotes
// @Summary     Search notes
// @Description Ranks the user's notes against a keyword query and returns the top matches with snippets.
// @Tags        Notes
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       q          query   string  true  "Keyword query"          example(long run)
// @Param       k          query   int     false "Maximum results"        minimum(1) maximum(50) default(5)
//
// @Success     200  {object} handlers.SearchNotesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notes/search [get]
func (h *Handlers) SearchNotes(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 5)
	if k < 1 {
		k = 1
	}
	if k > 50 {
		k = 50
	}

	results, err := h.noteSvc.Search(c.Request.Context(), userID(c), query, k)
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	ok(c, http.StatusOK, SearchNotesResponse{Query: query, Results: results})
}
