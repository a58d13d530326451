package handler

import (
	"time"

	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the accuracy and trend report.
type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Report handles GET /api/v1/count/analytics?from=2026-01-01&to=2026-02-01
// The default range is the trailing 30 days.
func (h *AnalyticsHandler) Report(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "bad from date: "+raw)
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "bad to date: "+raw)
			return
		}
		// Make the end date inclusive of its whole day.
		to = t.AddDate(0, 0, 1).Add(-time.Second)
	}

	report, err := h.svc.Compute(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, report)
}
