package main

import (
	"context"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/handlers"
	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/services"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/internal/utils"
	"github.com/devpulse/devpulse/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	stores           *store.Stores
	analysisService  *services.DailyAnalysisService
	reportService    *services.DailyReportService
	importService    *services.ImportCommitsService
	aggregator       *services.WeeklyAggregator
	holidayService   *services.HolidayService
	scheduler        *services.AnalysisScheduler
	taskQueue        services.TaskQueue
	worker           *services.Worker
	authHandler      *handlers.AuthHandler
	webhookHandler   *handlers.WebhookHandler
	analysisHandler  *handlers.AnalysisHandler
	reportHandler    *handlers.DailyReportHandler
	weeklyHandler    *handlers.WeeklyHandler
	commitsHandler   *handlers.CommitsHandler
	importHandler    *handlers.ImportHandler
	llmConfigHandler *handlers.LLMConfigHandler
	systemHandler    *handlers.SystemHandler
	healthHandler    *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(models.GetDB())

	stores := store.NewGormStores(models.GetDB())

	aiService := services.NewAIService(models.GetDB(), &cfg.OpenAI)
	holidayService := services.NewHolidayService()
	analysisService := services.NewDailyAnalysisService(stores, aiService, &cfg.Analysis)
	aggregator := services.NewWeeklyAggregator(stores, holidayService, cfg.Analysis.CountryCode)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	processAnalysisTask := func(ctx context.Context, task *services.AnalysisTask) error {
		date, err := time.Parse("2006-01-02", task.Date)
		if err != nil {
			return err
		}
		_, err = analysisService.Analyze(ctx, task.UserID, date, task.Force)
		return err
	}
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processAnalysisTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processAnalysisTask)
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start async worker")
			}
		}
	}

	reportService := services.NewDailyReportService(stores, aiService, taskQueue)
	importService := services.NewImportCommitsService(stores)

	// Nightly batch analysis for all active users
	scheduler := services.NewAnalysisScheduler(stores, taskQueue, cfg.Analysis.NightlyCron)
	if err := scheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start nightly analysis scheduler")
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		stores:           stores,
		analysisService:  analysisService,
		reportService:    reportService,
		importService:    importService,
		aggregator:       aggregator,
		holidayService:   holidayService,
		scheduler:        scheduler,
		taskQueue:        taskQueue,
		worker:           worker,
		authHandler:      authHandler,
		webhookHandler:   handlers.NewWebhookHandler(models.GetDB(), stores, taskQueue),
		analysisHandler:  handlers.NewAnalysisHandler(analysisService, stores, taskQueue),
		reportHandler:    handlers.NewDailyReportHandler(reportService),
		weeklyHandler:    handlers.NewWeeklyHandler(aggregator),
		commitsHandler:   handlers.NewCommitsHandler(stores),
		importHandler:    handlers.NewImportHandler(importService),
		llmConfigHandler: handlers.NewLLMConfigHandler(models.GetDB()),
		systemHandler:    handlers.NewSystemHandler(models.GetDB(), holidayService),
		healthHandler:    handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
