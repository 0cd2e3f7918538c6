package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/response"
)

type CommitsHandler struct {
	stores *store.Stores
}

func NewCommitsHandler(stores *store.Stores) *CommitsHandler {
	return &CommitsHandler{stores: stores}
}

// List returns a user's commits in a date range
// GET /api/commits?start=YYYY-MM-DD&end=YYYY-MM-DD&user_id=N
func (h *CommitsHandler) List(c *gin.Context) {
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

	userID, ok := resolveRequestedUser(c)
	if !ok {
		return
	}

	commits, err := h.stores.Commits.GetByUserInRange(c.Request.Context(), userID, store.Day(start), store.Day(end).Add(24*time.Hour))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, commits)
}
