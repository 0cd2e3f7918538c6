package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/middleware"
	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/response"
)

type AnalysisHandler struct {
	analysisService *services.DailyAnalysisService
	stores          *store.Stores
	queue           services.TaskQueue
}

func NewAnalysisHandler(analysisService *services.DailyAnalysisService, stores *store.Stores, queue services.TaskQueue) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		stores:          stores,
		queue:           queue,
	}
}

// Trigger runs (or queues) the daily analysis for a user and date
// POST /api/analyses/trigger
func (h *AnalysisHandler) Trigger(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id"`
		Date   string `json:"date" binding:"required"`
		Force  bool   `json:"force"`
		Async  bool   `json:"async"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = middleware.GetUserID(c)
	}
	// Only admins may analyze other users.
	if userID != middleware.GetUserID(c) && middleware.GetRole(c) != "admin" {
		response.Forbidden(c, "cannot trigger analysis for another user")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}

	if req.Async && h.queue != nil {
		task := &services.AnalysisTask{UserID: userID, Date: req.Date, Force: req.Force}
		if err := h.queue.Enqueue(task); err != nil {
			response.ServerError(c, err.Error())
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}

	analysis, err := h.analysisService.Analyze(c.Request.Context(), userID, date, req.Force)
	if err != nil {
		var extErr *services.ExternalServiceError
		if errors.As(err, &extErr) {
			response.Error(c, response.NewExternalServiceError(err.Error()))
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, analysis)
}

// GetByDate returns a user's analysis for one day
// GET /api/analyses/:date?user_id=N
func (h *AnalysisHandler) GetByDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}

	userID, ok := resolveRequestedUser(c)
	if !ok {
		return
	}

	analysis, err := h.stores.Analyses.GetByUserAndDate(c.Request.Context(), userID, store.Day(date))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "no analysis for this date")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, analysis)
}

// ListRange returns a user's analyses for a date range
// GET /api/analyses?start=YYYY-MM-DD&end=YYYY-MM-DD&user_id=N
func (h *AnalysisHandler) ListRange(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		response.BadRequest(c, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		response.BadRequest(c, "invalid end date, expected YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		response.BadRequest(c, "end date before start date")
		return
	}

	userID, ok := resolveRequestedUser(c)
	if !ok {
		return
	}

	analyses, err := h.stores.Analyses.GetByUserInRange(c.Request.Context(), userID, store.Day(start), store.Day(end).Add(24*time.Hour))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, analyses)
}

// resolveRequestedUser reads the optional user_id query param, falling back
// to the authenticated user. Non-admins may only read their own data.
func resolveRequestedUser(c *gin.Context) (uint, bool) {
	userID := middleware.GetUserID(c)
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return 0, false
		}
		if uint(parsed) != userID && middleware.GetRole(c) != "admin" {
			response.Forbidden(c, "cannot read another user's data")
			return 0, false
		}
		userID = uint(parsed)
	}
	return userID, true
}
