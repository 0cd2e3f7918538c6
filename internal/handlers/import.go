package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/pkg/response"
)

type ImportHandler struct {
	importService *services.ImportCommitsService
}

func NewImportHandler(importService *services.ImportCommitsService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportCommits backfills commits from a hosting platform
// POST /api/commits/import
func (h *ImportHandler) ImportCommits(c *gin.Context) {
	var req services.ImportCommitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.importService.ImportCommits(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, response.NewExternalServiceError(err.Error()))
		return
	}

	response.Success(c, result)
}
