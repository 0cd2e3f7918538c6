package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/middleware"
	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/response"
)

type DailyReportHandler struct {
	reportService *services.DailyReportService
}

func NewDailyReportHandler(reportService *services.DailyReportService) *DailyReportHandler {
	return &DailyReportHandler{reportService: reportService}
}

// Submit stores the current user's end-of-day report
// POST /api/reports
func (h *DailyReportHandler) Submit(c *gin.Context) {
	var req services.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, err := h.reportService.Submit(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		var extErr *services.ExternalServiceError
		if errors.As(err, &extErr) {
			response.Error(c, response.NewExternalServiceError(err.Error()))
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, report)
}

// GetByDate returns the current user's report for a date
// GET /api/reports/:date
func (h *DailyReportHandler) GetByDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}

	report, err := h.reportService.GetByDate(c.Request.Context(), middleware.GetUserID(c), date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "no report for this date")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, report)
}
