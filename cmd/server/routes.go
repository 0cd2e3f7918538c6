package main

import (
	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/middleware"
	"github.com/devpulse/devpulse/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(middleware.RequestID())
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for webhook routes
	webhookLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Webhook routes (public with signature verification, rate limited)
		apiWebhook := api.Group("", webhookLimiter.Middleware())
		{
			apiWebhook.POST("/webhook/github", svc.webhookHandler.HandleGitHubWebhook)
			apiWebhook.POST("/webhook/gitlab", svc.webhookHandler.HandleGitLabWebhook)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Daily reports
			protected.POST("/reports", svc.reportHandler.Submit)
			protected.GET("/reports/:date", svc.reportHandler.GetByDate)

			// Daily analyses
			protected.POST("/analyses/trigger", svc.analysisHandler.Trigger)
			protected.GET("/analyses/:date", svc.analysisHandler.GetByDate)
			protected.GET("/analyses", svc.analysisHandler.ListRange)

			// Weekly rollup
			protected.GET("/weekly", svc.weeklyHandler.GetWeek)

			// Commits
			protected.GET("/commits", svc.commitsHandler.List)

			// Business calendar
			protected.GET("/countries", svc.systemHandler.GetCountries)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Commit import from hosting platforms
			admin.POST("/commits/import", svc.importHandler.ImportCommits)

			// LLM Configs
			admin.GET("/llm-configs", svc.llmConfigHandler.List)
			admin.GET("/llm-configs/active", svc.llmConfigHandler.GetActive)
			admin.GET("/llm-configs/:id", svc.llmConfigHandler.GetByID)
			admin.POST("/llm-configs", svc.llmConfigHandler.Create)
			admin.PUT("/llm-configs/:id", svc.llmConfigHandler.Update)
			admin.DELETE("/llm-configs/:id", svc.llmConfigHandler.Delete)

			// System Config
			admin.GET("/system-config/ldap", svc.systemHandler.GetLDAPConfig)
			admin.PUT("/system-config/ldap", svc.systemHandler.UpdateLDAPConfig)
			admin.GET("/system-config/:group", svc.systemHandler.GetConfigGroup)
			admin.PUT("/system-config", svc.systemHandler.SetConfig)

			// System Logs
			admin.GET("/system-logs", svc.systemHandler.ListLogs)
			admin.GET("/system-logs/modules", svc.systemHandler.GetLogModules)
		}
	}
}
