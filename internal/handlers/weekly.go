package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/pkg/response"
)

type WeeklyHandler struct {
	aggregator *services.WeeklyAggregator
}

func NewWeeklyHandler(aggregator *services.WeeklyAggregator) *WeeklyHandler {
	return &WeeklyHandler{aggregator: aggregator}
}

// GetWeek returns the weekly summary starting at week_start
// GET /api/weekly?week_start=YYYY-MM-DD&user_id=N
func (h *WeeklyHandler) GetWeek(c *gin.Context) {
	weekStart, err := time.Parse("2006-01-02", c.Query("week_start"))
	if err != nil {
		response.BadRequest(c, "invalid week_start, expected YYYY-MM-DD")
		return
	}

	userID, ok := resolveRequestedUser(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.Aggregate(c.Request.Context(), userID, weekStart)
	if err != nil {
		var extErr *services.ExternalServiceError
		if errors.As(err, &extErr) {
			response.Error(c, response.NewExternalServiceError(err.Error()))
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, summary)
}
