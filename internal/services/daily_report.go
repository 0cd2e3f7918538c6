package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/logger"
)

const maxReportLength = 10000

// reportAnalyzer is the slice of AIService the report path depends on.
type reportAnalyzer interface {
	AnalyzeReport(ctx context.Context, rawText string) (*models.ReportAIAnalysis, error)
}

// DailyReportService handles end-of-day report submission. Submitting a
// report for a day that already has one replaces its text; if the day was
// already analyzed, a forced re-analysis is queued so the stored record
// reflects the new report.
type DailyReportService struct {
	stores *store.Stores
	ai     reportAnalyzer
	queue  TaskQueue
}

func NewDailyReportService(stores *store.Stores, ai *AIService, queue TaskQueue) *DailyReportService {
	return &DailyReportService{stores: stores, ai: ai, queue: queue}
}

type SubmitReportRequest struct {
	Date    string `json:"date" binding:"required"` // Format: 2006-01-02
	RawText string `json:"raw_text" binding:"required"`
}

func (s *DailyReportService) Submit(ctx context.Context, userID uint, req *SubmitReportRequest) (*models.DailyReport, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}

	text := strings.TrimSpace(req.RawText)
	if text == "" {
		return nil, fmt.Errorf("report text is empty")
	}
	if len(text) > maxReportLength {
		return nil, fmt.Errorf("report text exceeds %d characters", maxReportLength)
	}

	day := store.Day(date)
	report := &models.DailyReport{
		UserID:     userID,
		ReportDate: day,
		RawText:    text,
	}

	if err := s.stores.Reports.Upsert(ctx, report); err != nil {
		return nil, &ExternalServiceError{Op: "report upsert", Err: err}
	}

	s.analyzeReportText(ctx, report)
	s.triggerReanalysis(ctx, userID, day)

	return report, nil
}

// GetByDate returns the user's report for a day, or store.ErrNotFound.
func (s *DailyReportService) GetByDate(ctx context.Context, userID uint, date time.Time) (*models.DailyReport, error) {
	return s.stores.Reports.GetByUserAndDate(ctx, userID, store.Day(date))
}

// analyzeReportText attaches the standalone AI summary to the report.
// Best-effort: the report stays valid without it.
func (s *DailyReportService) analyzeReportText(ctx context.Context, report *models.DailyReport) {
	analysis, err := s.ai.AnalyzeReport(ctx, report.RawText)
	if err != nil {
		logger.Warnf("[DailyReport] AI summary failed for user %d on %s: %v",
			report.UserID, report.ReportDate.Format("2006-01-02"), err)
		return
	}

	if err := report.SetAIAnalysis(analysis); err != nil {
		logger.Warnf("[DailyReport] Failed to encode AI summary: %v", err)
		return
	}
	if err := s.stores.Reports.Upsert(ctx, report); err != nil {
		logger.Warnf("[DailyReport] Failed to store AI summary: %v", err)
	}
}

// triggerReanalysis queues a forced daily analysis when the day already has
// an analysis record, so the report is folded in.
func (s *DailyReportService) triggerReanalysis(ctx context.Context, userID uint, day time.Time) {
	if s.queue == nil {
		return
	}
	if _, err := s.stores.Analyses.GetByUserAndDate(ctx, userID, day); err != nil {
		return
	}

	task := &AnalysisTask{UserID: userID, Date: day.Format("2006-01-02"), Force: true}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Warnf("[DailyReport] Failed to queue re-analysis for user %d on %s: %v",
			userID, day.Format("2006-01-02"), err)
	}
}
