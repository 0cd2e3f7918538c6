package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
)

type fakeReportAnalyzer struct {
	calls  int
	result *models.ReportAIAnalysis
	err    error
}

func (f *fakeReportAnalyzer) AnalyzeReport(_ context.Context, _ string) (*models.ReportAIAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// recordingQueue captures enqueued tasks without processing them.
type recordingQueue struct {
	tasks []*AnalysisTask
}

func (q *recordingQueue) Enqueue(task *AnalysisTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func TestSubmitReport(t *testing.T) {
	stores := store.NewMemoryStores()
	ai := &fakeReportAnalyzer{result: &models.ReportAIAnalysis{Summary: "solid day", EstimatedHours: 6}}
	queue := &recordingQueue{}
	svc := &DailyReportService{stores: stores, ai: ai, queue: queue}

	report, err := svc.Submit(context.Background(), 1, &SubmitReportRequest{
		Date:    "2026-03-02",
		RawText: "  - Fixed the login redirect\n- Reviewed webhook PR  ",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if report.RawText != "- Fixed the login redirect\n- Reviewed webhook PR" {
		t.Errorf("text not trimmed: %q", report.RawText)
	}
	if ai.calls != 1 {
		t.Errorf("AI summary calls = %d, expected 1", ai.calls)
	}

	stored, err := stores.Reports.GetByUserAndDate(context.Background(), 1, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("report not persisted: %v", err)
	}
	if a := stored.GetAIAnalysis(); a == nil || a.Summary != "solid day" {
		t.Errorf("AI summary not attached: %+v", a)
	}

	// No analysis exists for the day yet, so nothing to re-analyze.
	if len(queue.tasks) != 0 {
		t.Errorf("expected no queued re-analysis, got %d", len(queue.tasks))
	}
}

func TestSubmitReportValidation(t *testing.T) {
	svc := &DailyReportService{stores: store.NewMemoryStores(), ai: &fakeReportAnalyzer{}}

	tests := []struct {
		name string
		req  SubmitReportRequest
	}{
		{"bad date", SubmitReportRequest{Date: "03/02/2026", RawText: "work"}},
		{"empty text", SubmitReportRequest{Date: "2026-03-02", RawText: "   "}},
		{"oversized text", SubmitReportRequest{Date: "2026-03-02", RawText: strings.Repeat("a", maxReportLength+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), 1, &tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSubmitReportSurvivesAIFailure(t *testing.T) {
	stores := store.NewMemoryStores()
	svc := &DailyReportService{stores: stores, ai: &fakeReportAnalyzer{err: errors.New("provider down")}}

	report, err := svc.Submit(context.Background(), 1, &SubmitReportRequest{
		Date:    "2026-03-02",
		RawText: "- did things",
	})
	if err != nil {
		t.Fatalf("submit must survive a failed AI summary: %v", err)
	}
	if report.GetAIAnalysis() != nil {
		t.Error("no AI summary should be attached on failure")
	}
}

func TestSubmitReportQueuesReanalysis(t *testing.T) {
	stores := store.NewMemoryStores()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := stores.Analyses.Create(context.Background(), &models.DailyCommitAnalysis{UserID: 1, AnalysisDate: day}); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	queue := &recordingQueue{}
	svc := &DailyReportService{stores: stores, ai: &fakeReportAnalyzer{result: &models.ReportAIAnalysis{}}, queue: queue}

	if _, err := svc.Submit(context.Background(), 1, &SubmitReportRequest{Date: "2026-03-02", RawText: "- late report"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 queued re-analysis, got %d", len(queue.tasks))
	}
	task := queue.tasks[0]
	if task.UserID != 1 || task.Date != "2026-03-02" || !task.Force {
		t.Errorf("queued task = %+v, expected a forced task for the day", task)
	}
}

func TestGetReportByDate(t *testing.T) {
	stores := store.NewMemoryStores()
	svc := &DailyReportService{stores: stores, ai: &fakeReportAnalyzer{result: &models.ReportAIAnalysis{}}}

	if _, err := svc.GetByDate(context.Background(), 1, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := svc.Submit(context.Background(), 1, &SubmitReportRequest{Date: "2026-03-02", RawText: "- work"}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Mid-day lookup normalizes to the report's day.
	got, err := svc.GetByDate(context.Background(), 1, time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if got.RawText != "- work" {
		t.Errorf("RawText = %q", got.RawText)
	}
}
