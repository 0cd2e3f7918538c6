package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/pkg/logger"
)

// Work item sources
const (
	WorkItemSourceCommit = "commit"
	WorkItemSourceReport = "report"
)

// maxFilesInDescription bounds the changed-file list appended to a commit
// description so pairwise matching prompts stay small.
const maxFilesInDescription = 5

// WorkItem is a normalized, comparable unit of developer activity derived
// from either a commit or a report line. Ephemeral: built per analysis run,
// never persisted directly.
type WorkItem struct {
	Source         string            `json:"source"` // commit, report
	Description    string            `json:"description"`
	EstimatedHours float64           `json:"estimated_hours"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// WorkItemExtractor turns commits and reports into work items. Pure
// transformation, no side effects beyond skip logging.
type WorkItemExtractor struct {
	defaultCommitHours float64
	defaultReportHours float64
}

func NewWorkItemExtractor(cfg *config.AnalysisConfig) *WorkItemExtractor {
	return &WorkItemExtractor{
		defaultCommitHours: cfg.DefaultCommitHours,
		defaultReportHours: cfg.DefaultReportHours,
	}
}

// ExtractCommitItems builds one work item per commit. Commits without a
// usable timestamp are skipped, not fatal. An empty input yields an empty
// result; that is a valid state.
func (e *WorkItemExtractor) ExtractCommitItems(commits []models.Commit) []WorkItem {
	items := make([]WorkItem, 0, len(commits))
	for _, commit := range commits {
		if commit.CommittedAt.IsZero() {
			logger.Warnf("[WorkItem] Skipping commit %s: missing timestamp", commit.CommitHash)
			continue
		}

		hours := e.defaultCommitHours
		if commit.AIEstimatedHours != nil && *commit.AIEstimatedHours > 0 {
			hours = *commit.AIEstimatedHours
		}

		items = append(items, WorkItem{
			Source:         WorkItemSourceCommit,
			Description:    commitDescription(&commit),
			EstimatedHours: hours,
			Timestamp:      commit.CommittedAt,
			Metadata: map[string]string{
				"commit_hash": commit.CommitHash,
				"repository":  commit.Repository,
			},
		})
	}
	return items
}

// ExtractReportItems splits the report narrative into non-empty, non-heading
// lines; each line becomes one work item with a flat default estimate, to be
// refined later by AI. Nil reports and whitespace-only text yield an empty
// result.
func (e *WorkItemExtractor) ExtractReportItems(report *models.DailyReport) []WorkItem {
	if report == nil || strings.TrimSpace(report.RawText) == "" {
		return []WorkItem{}
	}

	timestamp := report.ReportDate
	if timestamp.IsZero() {
		logger.Warnf("[WorkItem] Report %d has no report date, falling back to creation time", report.ID)
		timestamp = report.CreatedAt
	}

	lines := strings.Split(report.RawText, "\n")
	items := make([]WorkItem, 0, len(lines))
	for _, line := range lines {
		text := normalizeReportLine(line)
		if text == "" {
			continue
		}

		items = append(items, WorkItem{
			Source:         WorkItemSourceReport,
			Description:    text,
			EstimatedHours: e.defaultReportHours,
			Timestamp:      timestamp,
			Metadata: map[string]string{
				"report_id": fmt.Sprintf("%d", report.ID),
			},
		})
	}
	return items
}

// commitDescription combines the commit subject with a truncated list of
// changed files.
func commitDescription(commit *models.Commit) string {
	subject := commit.Message
	if idx := strings.Index(subject, "\n"); idx != -1 {
		subject = subject[:idx]
	}
	subject = strings.TrimSpace(subject)

	files := commit.ChangedFileList()
	if len(files) == 0 {
		return subject
	}

	shown := files
	extra := 0
	if len(files) > maxFilesInDescription {
		shown = files[:maxFilesInDescription]
		extra = len(files) - maxFilesInDescription
	}

	desc := subject + " (files: " + strings.Join(shown, ", ")
	if extra > 0 {
		desc += fmt.Sprintf(", +%d more", extra)
	}
	return desc + ")"
}

// normalizeReportLine strips list markers and returns "" for blank lines and
// headings.
func normalizeReportLine(line string) string {
	text := strings.TrimSpace(line)
	if text == "" {
		return ""
	}

	// Markdown headings and separator lines are structure, not work.
	if strings.HasPrefix(text, "#") {
		return ""
	}
	if strings.Trim(text, "-=*_") == "" {
		return ""
	}

	for _, prefix := range []string{"- ", "* ", "+ ", "• "} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
			break
		}
	}

	// Numbered list markers: "1. ", "2) "
	if len(text) > 2 {
		i := 0
		for i < len(text) && text[i] >= '0' && text[i] <= '9' {
			i++
		}
		if i > 0 && i < len(text)-1 && (text[i] == '.' || text[i] == ')') && text[i+1] == ' ' {
			text = strings.TrimSpace(text[i+2:])
		}
	}

	return text
}
