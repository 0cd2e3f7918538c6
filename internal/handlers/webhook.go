package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/internal/store"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
	configService  *services.SystemConfigService
}

func NewWebhookHandler(db *gorm.DB, stores *store.Stores, queue services.TaskQueue) *WebhookHandler {
	return &WebhookHandler{
		webhookService: services.NewWebhookService(stores, queue),
		configService:  services.NewSystemConfigService(db),
	}
}

// HandleGitHubWebhook receives GitHub push events
// POST /api/webhook/github
func (h *WebhookHandler) HandleGitHubWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	secret := h.configService.GetWithDefault("webhook_github_secret", "")
	if secret != "" {
		signature := c.GetHeader("X-Hub-Signature-256")
		if !services.VerifyGitHubSignature(secret, body, signature) {
			services.LogWarning("Webhook", "InvalidSignature", "Invalid GitHub webhook signature", nil, c.ClientIP(), c.Request.UserAgent(), nil)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	if event := c.GetHeader("X-GitHub-Event"); event != "push" {
		c.JSON(http.StatusOK, gin.H{"message": "event ignored", "event": event})
		return
	}

	result, err := h.webhookService.HandleGitHubPush(c.Request.Context(), body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGitLabWebhook receives GitLab push events
// POST /api/webhook/gitlab
func (h *WebhookHandler) HandleGitLabWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	secret := h.configService.GetWithDefault("webhook_gitlab_token", "")
	if secret != "" {
		token := c.GetHeader("X-Gitlab-Token")
		if !services.VerifyGitLabSignature(secret, token) {
			services.LogWarning("Webhook", "InvalidSignature", "Invalid GitLab webhook token", nil, c.ClientIP(), c.Request.UserAgent(), nil)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	if event := c.GetHeader("X-Gitlab-Event"); event != "Push Hook" {
		c.JSON(http.StatusOK, gin.H{"message": "event ignored", "event": event})
		return
	}

	result, err := h.webhookService.HandleGitLabPush(c.Request.Context(), body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
