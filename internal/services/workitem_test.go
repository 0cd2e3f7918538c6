package services

import (
	"testing"
	"time"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/models"
)

func testAnalysisConfig() *config.AnalysisConfig {
	return &config.AnalysisConfig{
		ConfidenceThreshold: 0.8,
		MaxCommitsPerDay:    50,
		MaxReportLines:      30,
		DefaultCommitHours:  0.5,
		DefaultReportHours:  1.0,
		CountryCode:         "NONE",
	}
}

func TestExtractCommitItems(t *testing.T) {
	extractor := NewWorkItemExtractor(testAnalysisConfig())
	committedAt := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	hours := 2.5

	commits := []models.Commit{
		{
			CommitHash:  "abc123",
			Repository:  "devpulse/api",
			Message:     "Add webhook signature check\n\nlong body here",
			CommittedAt: committedAt,
		},
		{
			CommitHash:       "def456",
			Repository:       "devpulse/api",
			Message:          "Rework scheduler",
			CommittedAt:      committedAt,
			AIEstimatedHours: &hours,
		},
		{
			CommitHash: "no-timestamp",
			Message:    "orphan commit",
		},
	}

	items := extractor.ExtractCommitItems(commits)
	if len(items) != 2 {
		t.Fatalf("expected 2 items (timestampless commit skipped), got %d", len(items))
	}

	if items[0].Source != WorkItemSourceCommit {
		t.Errorf("source = %q, expected %q", items[0].Source, WorkItemSourceCommit)
	}
	if items[0].Description != "Add webhook signature check" {
		t.Errorf("description should be the subject line only, got %q", items[0].Description)
	}
	if items[0].EstimatedHours != 0.5 {
		t.Errorf("hours = %.2f, expected the 0.5 default", items[0].EstimatedHours)
	}
	if items[0].Metadata["commit_hash"] != "abc123" {
		t.Errorf("commit_hash metadata missing: %v", items[0].Metadata)
	}
	if items[1].EstimatedHours != 2.5 {
		t.Errorf("hours = %.2f, expected the AI estimate 2.5", items[1].EstimatedHours)
	}
}

func TestExtractCommitItemsTruncatesFileList(t *testing.T) {
	extractor := NewWorkItemExtractor(testAnalysisConfig())
	commit := models.Commit{
		CommitHash:   "abc",
		Message:      "big refactor",
		ChangedFiles: "a.go,b.go,c.go,d.go,e.go,f.go,g.go",
		CommittedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	items := extractor.ExtractCommitItems([]models.Commit{commit})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	want := "big refactor (files: a.go, b.go, c.go, d.go, e.go, +2 more)"
	if items[0].Description != want {
		t.Errorf("description = %q, expected %q", items[0].Description, want)
	}
}

func TestExtractReportItems(t *testing.T) {
	extractor := NewWorkItemExtractor(testAnalysisConfig())
	reportDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	report := &models.DailyReport{
		ID:         7,
		ReportDate: reportDate,
		RawText: `# Today

- Fixed the login redirect
* Reviewed webhook PR
1. Wrote migration script
2) Paired on incident

---
`,
	}

	items := extractor.ExtractReportItems(report)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d: %+v", len(items), items)
	}

	want := []string{
		"Fixed the login redirect",
		"Reviewed webhook PR",
		"Wrote migration script",
		"Paired on incident",
	}
	for i, w := range want {
		if items[i].Description != w {
			t.Errorf("item %d = %q, expected %q", i, items[i].Description, w)
		}
		if items[i].Source != WorkItemSourceReport {
			t.Errorf("item %d source = %q", i, items[i].Source)
		}
		if items[i].EstimatedHours != 1.0 {
			t.Errorf("item %d hours = %.2f, expected the 1.0 default", i, items[i].EstimatedHours)
		}
		if items[i].Metadata["report_id"] != "7" {
			t.Errorf("item %d report_id metadata = %v", i, items[i].Metadata)
		}
	}
}

func TestExtractReportItemsEmptyInputs(t *testing.T) {
	extractor := NewWorkItemExtractor(testAnalysisConfig())

	if items := extractor.ExtractReportItems(nil); len(items) != 0 {
		t.Errorf("nil report must yield no items, got %d", len(items))
	}
	if items := extractor.ExtractReportItems(&models.DailyReport{RawText: "   \n\t\n"}); len(items) != 0 {
		t.Errorf("whitespace report must yield no items, got %d", len(items))
	}
}

func TestNormalizeReportLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"plain text", "wrote docs", "wrote docs"},
		{"dash bullet", "- wrote docs", "wrote docs"},
		{"star bullet", "* wrote docs", "wrote docs"},
		{"unicode bullet", "• wrote docs", "wrote docs"},
		{"numbered dot", "12. wrote docs", "wrote docs"},
		{"numbered paren", "3) wrote docs", "wrote docs"},
		{"heading", "## Done", ""},
		{"separator", "-----", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeReportLine(tt.line); got != tt.expected {
				t.Errorf("normalizeReportLine(%q) = %q, expected %q", tt.line, got, tt.expected)
			}
		})
	}
}
