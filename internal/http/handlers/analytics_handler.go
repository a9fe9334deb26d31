// Analytics HTTP handlers.
//
// This file exposes the read-side aggregate endpoint:
//   - GET /analytics/weekly   (per-week completion summaries)
//
// Summaries are served from the analytics cache; the check-in write path
// invalidates a user's entries on every commit, so a fresh read after a
// commit always reflects it.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

// WeeklyAnalyticsResponse contains per-week aggregates, oldest first.
type WeeklyAnalyticsResponse struct {
	Weeks []services.WeekSummary `json:"weeks"`
}

// WeeklyAnalytics godoc
// @ID          weeklyAnalytics
// @Summary     Weekly completion summary
// @Description Returns per-week aggregates (goals tracked, days checked, targets, completion ratio)
// @Description for the trailing weeks including the current one, oldest first.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       weeks      query   int     false "Trailing weeks to cover" minimum(1) maximum(52) default(4)
//
// @Success     200  {object} handlers.WeeklyAnalyticsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /analytics/weekly [get]
func (h *Handlers) WeeklyAnalytics(c *gin.Context) {
	weeks := utils.AtoiDefault(c.Query("weeks"), 4)

	out, err := h.analyticsSvc.WeeklySummary(c.Request.Context(), userID(c), weeks)
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, WeeklyAnalyticsResponse{Weeks: out})
}
