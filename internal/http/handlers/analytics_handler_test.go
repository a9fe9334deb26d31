package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func timeNowDate() string { return time.Now().UTC().Format("2006-01-02") }

func TestWeeklyAnalytics(t *testing.T) {
	db := newTestDB(t)
	g := seedGoal(t, db, "u1")

	gin.SetMode(gin.TestMode)
	h := realHandlers(db)
	r := gin.New()
	r.PUT("/goals/:id/checkins", h.SubmitCheckIn)
	r.GET("/analytics/weekly", h.WeeklyAnalytics)

	// Empty state still materializes the requested weeks.
	w := doJSON(r, http.MethodGet, "/analytics/weekly?weeks=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("empty -> %d", w.Code)
	}
	var out WeeklyAnalyticsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(out.Weeks))
	}

	// A check-in for the current week shows up in the summary. The week field
	// is derived from the request date, so submit for "today".
	today := timeNowDate()
	body := `{"weekStartDate":"` + today + `","weeklyTarget":5,"checkboxStates":[true,true,false,false,false,false,false]}`
	if w := doJSON(r, http.MethodPut, "/goals/"+g.ID+"/checkins", body); w.Code != http.StatusCreated {
		t.Fatalf("checkin -> %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/analytics/weekly?weeks=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary -> %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Weeks) != 1 || out.Weeks[0].GoalsTracked != 1 || out.Weeks[0].DaysChecked != 2 {
		t.Fatalf("unexpected summary: %#v", out.Weeks)
	}
}
