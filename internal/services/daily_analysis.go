package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/logger"
)

// deduplicationInstruction is sent alongside the context whenever a report
// exists, so the provider applies the same no-double-count rule the engine
// enforces programmatically.
const deduplicationInstruction = "The daily report may describe the same work as the commits. " +
	"When a report line and a commit refer to the same task, count its hours exactly once " +
	"(use the commit-side estimate). Only report lines with no matching commit add hours."

// ExternalServiceError marks a hard failure of an upstream dependency (LLM
// provider or storage) after which no partial analysis was written.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service failure during %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// dailyWorkAnalyzer is the slice of AIService the orchestrator depends on.
type dailyWorkAnalyzer interface {
	AnalyzeDailyWork(ctx context.Context, workCtx *DailyWorkContext) (*DailyWorkResult, error)
}

// DailyAnalysisService is the per-(user, date) entry point of the unified
// daily work analysis.
type DailyAnalysisService struct {
	stores    *store.Stores
	ai        dailyWorkAnalyzer
	extractor *WorkItemExtractor
	dedup     *DeduplicationEngine
	cfg       *config.AnalysisConfig
}

func NewDailyAnalysisService(stores *store.Stores, ai *AIService, cfg *config.AnalysisConfig) *DailyAnalysisService {
	return &DailyAnalysisService{
		stores:    stores,
		ai:        ai,
		extractor: NewWorkItemExtractor(cfg),
		dedup:     NewDeduplicationEngine(NewSimilarityMatcher(ai), cfg.ConfidenceThreshold),
		cfg:       cfg,
	}
}

// NewDailyAnalysisServiceWithDedup injects a custom dedup engine; used by
// tests and by callers substituting the assignment strategy.
func NewDailyAnalysisServiceWithDedup(stores *store.Stores, ai *AIService, dedup *DeduplicationEngine, cfg *config.AnalysisConfig) *DailyAnalysisService {
	return &DailyAnalysisService{
		stores:    stores,
		ai:        ai,
		extractor: NewWorkItemExtractor(cfg),
		dedup:     dedup,
		cfg:       cfg,
	}
}

// Analyze produces the day's aggregate record for one user.
//
// Repeated calls are idempotent: an existing record is returned unchanged
// unless force is set. Zero activity produces a valid zero-hour record
// without an AI call. Concurrent calls for the same (user, date) are safe:
// the loser of the create race re-fetches and returns the winner's row.
func (s *DailyAnalysisService) Analyze(ctx context.Context, userID uint, date time.Time, force bool) (*models.DailyCommitAnalysis, error) {
	day := store.Day(date)

	if !force {
		existing, err := s.stores.Analyses.GetByUserAndDate(ctx, userID, day)
		if err == nil {
			logger.Infof("[Analysis] Returning existing analysis for user %d on %s", userID, day.Format("2006-01-02"))
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, &ExternalServiceError{Op: "analysis lookup", Err: err}
		}
	}

	commits, report, err := s.gather(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	if len(commits) == 0 && report == nil {
		logger.Infof("[Analysis] No activity for user %d on %s, writing zero-hour record", userID, day.Format("2006-01-02"))
		return s.persist(ctx, s.zeroActivityRecord(userID, day))
	}

	analysis, err := s.analyzeActivity(ctx, userID, day, commits, report)
	if err != nil {
		return nil, err
	}

	persisted, err := s.persist(ctx, analysis)
	if err != nil {
		return nil, err
	}

	s.linkCommits(ctx, commits, persisted.ID)
	return persisted, nil
}

// gather fetches the day's commits and optional report. The two reads are
// independent; they may be mutually stale, which the persist path tolerates.
func (s *DailyAnalysisService) gather(ctx context.Context, userID uint, day time.Time) ([]models.Commit, *models.DailyReport, error) {
	commits, err := s.stores.Commits.GetByUserInRange(ctx, userID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, nil, &ExternalServiceError{Op: "commit fetch", Err: err}
	}

	if len(commits) > s.cfg.MaxCommitsPerDay {
		logger.Warnf("[Analysis] User %d has %d commits on %s, capping at %d",
			userID, len(commits), day.Format("2006-01-02"), s.cfg.MaxCommitsPerDay)
		commits = commits[:s.cfg.MaxCommitsPerDay]
	}

	report, err := s.stores.Reports.GetByUserAndDate(ctx, userID, day)
	if errors.Is(err, store.ErrNotFound) {
		report = nil
	} else if err != nil {
		return nil, nil, &ExternalServiceError{Op: "report fetch", Err: err}
	}

	return commits, report, nil
}

func (s *DailyAnalysisService) analyzeActivity(ctx context.Context, userID uint, day time.Time, commits []models.Commit, report *models.DailyReport) (*models.DailyCommitAnalysis, error) {
	commitItems := s.extractor.ExtractCommitItems(commits)
	reportItems := s.extractor.ExtractReportItems(report)
	if len(reportItems) > s.cfg.MaxReportLines {
		logger.Warnf("[Analysis] Report for user %d has %d lines, capping at %d", userID, len(reportItems), s.cfg.MaxReportLines)
		reportItems = reportItems[:s.cfg.MaxReportLines]
	}

	// Deterministic dedup for auditability; the AI call below performs its
	// own holistic reconciliation guided by the dedup instruction.
	var dedupResult DeduplicationResult
	if len(commitItems) > 0 && len(reportItems) > 0 {
		dedupResult = s.dedup.Deduplicate(ctx, commitItems, reportItems)
	} else {
		dedupResult.UnmatchedItems = reportItems
		for _, item := range commitItems {
			dedupResult.UniqueHours += item.EstimatedHours
		}
		for _, item := range reportItems {
			dedupResult.UniqueHours += item.EstimatedHours
		}
	}

	workCtx := s.buildContext(ctx, userID, day, commits, report)

	result, err := s.ai.AnalyzeDailyWork(ctx, workCtx)
	if err != nil {
		return nil, &ExternalServiceError{Op: "daily work analysis", Err: err}
	}

	clampResult(result, userID, day)

	analysis := &models.DailyCommitAnalysis{
		UserID:              userID,
		AnalysisDate:        day,
		TotalEstimatedHours: result.TotalEstimatedHours,
		CommitCount:         len(commits),
		AnalysisType:        models.AnalysisTypeAutomatic,
		ComplexityScore:     result.AverageComplexityScore,
		SeniorityScore:      result.AverageSeniorityScore,
		AnalysisVersion:     models.AnalysisVersion,
	}

	if report != nil {
		analysis.AnalysisType = models.AnalysisTypeWithReport
		reportID := report.ID
		analysis.DailyReportID = &reportID
	}

	repos := make([]string, 0, 2)
	seen := map[string]bool{}
	for _, c := range commits {
		analysis.TotalLinesAdded += c.Additions
		analysis.TotalLinesRemoved += c.Deletions
		if c.Repository != "" && !seen[c.Repository] {
			seen[c.Repository] = true
			repos = append(repos, c.Repository)
		}
	}
	analysis.SetRepositories(repos)

	payload := buildPayload(commitItems, reportItems, dedupResult, result)
	if err := analysis.SetPayload(payload); err != nil {
		return nil, fmt.Errorf("encode analysis payload: %w", err)
	}

	return analysis, nil
}

func (s *DailyAnalysisService) buildContext(ctx context.Context, userID uint, day time.Time, commits []models.Commit, report *models.DailyReport) *DailyWorkContext {
	userName := fmt.Sprintf("user-%d", userID)
	if user, err := s.stores.Users.GetByID(ctx, userID); err == nil {
		userName = user.Username
	}

	workCtx := &DailyWorkContext{
		AnalysisDate: day.Format("2006-01-02"),
		UserName:     userName,
		TotalCommits: len(commits),
	}

	seen := map[string]bool{}
	for _, c := range commits {
		hours := s.cfg.DefaultCommitHours
		if c.AIEstimatedHours != nil && *c.AIEstimatedHours > 0 {
			hours = *c.AIEstimatedHours
		}
		workCtx.Commits = append(workCtx.Commits, ContextCommit{
			Hash:           c.CommitHash,
			Message:        c.Message,
			Repository:     c.Repository,
			FilesChanged:   c.ChangedFileList(),
			Additions:      c.Additions,
			Deletions:      c.Deletions,
			EstimatedHours: hours,
			Timestamp:      c.CommittedAt.Format(time.RFC3339),
		})
		workCtx.TotalLinesChanged += c.Additions + c.Deletions
		if c.Repository != "" && !seen[c.Repository] {
			seen[c.Repository] = true
			workCtx.Repositories = append(workCtx.Repositories, c.Repository)
		}
	}

	if report != nil {
		workCtx.DailyReport = report.RawText
		workCtx.DeduplicationInstruction = deduplicationInstruction
	}

	return workCtx
}

// clampResult enforces the output ranges in place: hours to [0,24], scores
// to [1,10]. Out-of-range values are capped with a warning, not rejected.
func clampResult(result *DailyWorkResult, userID uint, day time.Time) {
	if result.TotalEstimatedHours < 0 {
		logger.Warnf("[Analysis] Negative hour estimate %.1f for user %d on %s, clamping to 0",
			result.TotalEstimatedHours, userID, day.Format("2006-01-02"))
		result.TotalEstimatedHours = 0
	}
	if result.TotalEstimatedHours > 24 {
		logger.Warnf("[Analysis] Hour estimate %.1f exceeds 24 for user %d on %s, capping",
			result.TotalEstimatedHours, userID, day.Format("2006-01-02"))
		result.TotalEstimatedHours = 24
	}
	result.AverageComplexityScore = clampScore(result.AverageComplexityScore, userID, day, "complexity")
	result.AverageSeniorityScore = clampScore(result.AverageSeniorityScore, userID, day, "seniority")
}

func clampScore(score float64, userID uint, day time.Time, name string) float64 {
	if score < 1 {
		if score != 0 {
			logger.Warnf("[Analysis] %s score %.1f below 1 for user %d on %s, clamping", name, score, userID, day.Format("2006-01-02"))
		}
		return 1
	}
	if score > 10 {
		logger.Warnf("[Analysis] %s score %.1f above 10 for user %d on %s, clamping", name, score, userID, day.Format("2006-01-02"))
		return 10
	}
	return score
}

// buildPayload assembles the persisted ai_analysis blob. The deterministic
// matches take precedence for deduplicated_items; the AI's own list is kept
// only when the engine produced none.
func buildPayload(commitItems, reportItems []WorkItem, dedupResult DeduplicationResult, result *DailyWorkResult) *models.AnalysisPayload {
	payload := &models.AnalysisPayload{
		WorkCategories:          result.WorkCategories,
		KeyAchievements:         result.KeyAchievements,
		WorkSummary:             result.WorkSummary,
		HourEstimationReasoning: result.HourEstimationReasoning,
		ConsistencyWithReport:   result.ConsistencyWithReport,
		Recommendations:         result.Recommendations,
		ConfidenceScore:         result.ConfidenceScore,
	}
	if payload.ConfidenceScore == 0 {
		payload.ConfidenceScore = dedupResult.AverageConfidence
	}

	for _, item := range commitItems {
		payload.WorkItems = append(payload.WorkItems, models.PayloadWorkItem{
			Source:         item.Source,
			Description:    item.Description,
			EstimatedHours: item.EstimatedHours,
		})
	}
	for _, item := range reportItems {
		payload.WorkItems = append(payload.WorkItems, models.PayloadWorkItem{
			Source:         item.Source,
			Description:    item.Description,
			EstimatedHours: item.EstimatedHours,
		})
	}

	for _, m := range dedupResult.MatchedItems {
		payload.DeduplicatedItems = append(payload.DeduplicatedItems, models.DeduplicatedItem{
			CommitDescription: m.CommitItem.Description,
			ReportDescription: m.ReportItem.Description,
			Confidence:        m.Confidence,
			Explanation:       m.Explanation,
			HoursCounted:      m.CommitItem.EstimatedHours,
		})
	}
	if len(payload.DeduplicatedItems) == 0 {
		payload.DeduplicatedItems = result.DeduplicatedItems
	}

	return payload
}

func (s *DailyAnalysisService) zeroActivityRecord(userID uint, day time.Time) *models.DailyCommitAnalysis {
	analysis := &models.DailyCommitAnalysis{
		UserID:              userID,
		AnalysisDate:        day,
		TotalEstimatedHours: 0,
		CommitCount:         0,
		AnalysisType:        models.AnalysisTypeAutomatic,
		AnalysisVersion:     models.AnalysisVersion,
	}
	// An empty payload keeps the read path uniform across record kinds.
	_ = analysis.SetPayload(&models.AnalysisPayload{WorkCategories: map[string]float64{}})
	return analysis
}

// persist upserts by (user_id, analysis_date). A concurrent create for the
// same key loses the race, catches the unique-key conflict and returns the
// winner's row; no error surfaces to the caller.
func (s *DailyAnalysisService) persist(ctx context.Context, analysis *models.DailyCommitAnalysis) (*models.DailyCommitAnalysis, error) {
	existing, err := s.stores.Analyses.GetByUserAndDate(ctx, analysis.UserID, analysis.AnalysisDate)
	if err == nil {
		analysis.ID = existing.ID
		analysis.CreatedAt = existing.CreatedAt
		if uerr := s.stores.Analyses.Update(ctx, analysis); uerr != nil {
			return nil, &ExternalServiceError{Op: "analysis update", Err: uerr}
		}
		return analysis, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &ExternalServiceError{Op: "analysis lookup", Err: err}
	}

	err = s.stores.Analyses.Create(ctx, analysis)
	if err == nil {
		return analysis, nil
	}
	if !errors.Is(err, store.ErrDuplicateKey) {
		return nil, &ExternalServiceError{Op: "analysis create", Err: err}
	}

	logger.Infof("[Analysis] Lost create race for user %d on %s, returning winner",
		analysis.UserID, analysis.AnalysisDate.Format("2006-01-02"))
	winner, ferr := s.stores.Analyses.GetByUserAndDate(ctx, analysis.UserID, analysis.AnalysisDate)
	if ferr != nil {
		return nil, &ExternalServiceError{Op: "analysis refetch", Err: ferr}
	}
	return winner, nil
}

// linkCommits associates the day's commits with the analysis row.
// Best-effort: a failure is logged and never fails the analysis.
func (s *DailyAnalysisService) linkCommits(ctx context.Context, commits []models.Commit, analysisID uint) {
	if len(commits) == 0 {
		return
	}
	ids := make([]uint, 0, len(commits))
	for _, c := range commits {
		ids = append(ids, c.ID)
	}
	if err := s.stores.Commits.LinkToAnalysis(ctx, ids, analysisID); err != nil {
		logger.Warnf("[Analysis] Failed to link %d commits to analysis %d: %v", len(ids), analysisID, err)
	}
}
