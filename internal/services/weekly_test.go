package services

import (
	"context"
	"testing"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
)

// monday is 2026-03-02, a plain week with no US holidays.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seedAnalysis(t *testing.T, stores *store.Stores, userID uint, date time.Time, hours float64, commits int, repos string) *models.DailyCommitAnalysis {
	t.Helper()
	a := &models.DailyCommitAnalysis{
		UserID:               userID,
		AnalysisDate:         date,
		TotalEstimatedHours:  hours,
		CommitCount:          commits,
		AnalysisType:         models.AnalysisTypeAutomatic,
		RepositoriesAnalyzed: repos,
	}
	if err := stores.Analyses.Create(context.Background(), a); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	return a
}

func TestAggregateWeek(t *testing.T) {
	stores := store.NewMemoryStores()
	agg := NewWeeklyAggregator(stores, NewHolidayService(), "NONE")

	mon := seedAnalysis(t, stores, 1, monday, 8, 5, "devpulse/api")
	mon.ComplexityScore = 7
	mon.SeniorityScore = 6
	_ = mon.SetPayload(&models.AnalysisPayload{WorkCategories: map[string]float64{"feature": 6, "bugfix": 2}})
	if err := stores.Analyses.Update(context.Background(), mon); err != nil {
		t.Fatalf("update analysis: %v", err)
	}

	wed := seedAnalysis(t, stores, 1, monday.Add(2*24*time.Hour), 2, 1, "devpulse/api,devpulse/web")
	_ = wed.SetPayload(&models.AnalysisPayload{WorkCategories: map[string]float64{"bugfix": 2}})
	if err := stores.Analyses.Update(context.Background(), wed); err != nil {
		t.Fatalf("update analysis: %v", err)
	}

	summary, err := agg.Aggregate(context.Background(), 1, monday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(summary.Days) != 7 {
		t.Fatalf("a week is always 7 days, got %d", len(summary.Days))
	}
	if summary.WeekStart != "2026-03-02" || summary.WeekEnd != "2026-03-08" {
		t.Errorf("week bounds = %s..%s", summary.WeekStart, summary.WeekEnd)
	}
	if summary.TotalHours != 10 {
		t.Errorf("TotalHours = %.2f, expected 10", summary.TotalHours)
	}
	if summary.TotalCommits != 6 {
		t.Errorf("TotalCommits = %d, expected 6", summary.TotalCommits)
	}
	if summary.WorkingDays != 2 {
		t.Errorf("WorkingDays = %d, expected 2", summary.WorkingDays)
	}
	if summary.DaysWithActivity != 2 {
		t.Errorf("DaysWithActivity = %d, expected 2", summary.DaysWithActivity)
	}
	if summary.ExpectedWorkdays != 5 {
		t.Errorf("ExpectedWorkdays = %d, expected 5 under NONE", summary.ExpectedWorkdays)
	}
	if summary.AverageHoursPerDay != 10.0/7 {
		t.Errorf("AverageHoursPerDay = %.4f, expected 10/7", summary.AverageHoursPerDay)
	}
	if summary.AverageHoursPerWorkingDay != 5 {
		t.Errorf("AverageHoursPerWorkingDay = %.2f, expected 5", summary.AverageHoursPerWorkingDay)
	}
	if summary.AverageHoursPerExpectedWorkday != 2 {
		t.Errorf("AverageHoursPerExpectedWorkday = %.2f, expected 2", summary.AverageHoursPerExpectedWorkday)
	}
	if summary.MostProductiveDay != "2026-03-02" {
		t.Errorf("MostProductiveDay = %s", summary.MostProductiveDay)
	}
	if summary.LeastProductiveDay != "2026-03-04" {
		t.Errorf("LeastProductiveDay = %s", summary.LeastProductiveDay)
	}

	// Scores average over scored days only; Wednesday carries none.
	if summary.AverageComplexityScore != 7 || summary.AverageSeniorityScore != 6 {
		t.Errorf("score averages = %.1f/%.1f, expected 7/6",
			summary.AverageComplexityScore, summary.AverageSeniorityScore)
	}

	if len(summary.Repositories) != 2 {
		t.Errorf("Repositories = %v, expected a 2-repo union", summary.Repositories)
	}
	if summary.WorkCategories["bugfix"] != 4 {
		t.Errorf("bugfix hours = %.1f, expected the summed 4", summary.WorkCategories["bugfix"])
	}

	// Tuesday has no row: present but zero-valued.
	tue := summary.Days[1]
	if tue.HasAnalysis || tue.Hours != 0 || tue.CommitCount != 0 {
		t.Errorf("missing day must be zero-valued: %+v", tue)
	}
	if !tue.IsWorkday {
		t.Error("Tuesday must be a workday under NONE")
	}
	if summary.Days[5].IsWorkday {
		t.Error("Saturday must not be a workday under NONE")
	}
}

func TestAggregateEmptyWeek(t *testing.T) {
	stores := store.NewMemoryStores()
	agg := NewWeeklyAggregator(stores, NewHolidayService(), "NONE")

	summary, err := agg.Aggregate(context.Background(), 1, monday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if summary.TotalHours != 0 || summary.WorkingDays != 0 || summary.DaysWithActivity != 0 {
		t.Errorf("empty week must be all zero: %+v", summary)
	}
	if summary.AverageHoursPerDay != 0 || summary.AverageHoursPerWorkingDay != 0 || summary.AverageHoursPerExpectedWorkday != 0 {
		t.Error("averages over zero days must stay zero, not NaN")
	}
	if summary.MostProductiveDay != "" || summary.LeastProductiveDay != "" {
		t.Error("no productive days without activity")
	}
	if len(summary.Days) != 7 {
		t.Errorf("still 7 day slots, got %d", len(summary.Days))
	}
}

func TestAggregateZeroHourCommitDay(t *testing.T) {
	stores := store.NewMemoryStores()
	agg := NewWeeklyAggregator(stores, NewHolidayService(), "NONE")

	seedAnalysis(t, stores, 1, monday, 10, 4, "")
	// Tuesday carried commits but no reconciled hours.
	seedAnalysis(t, stores, 1, monday.Add(24*time.Hour), 0, 3, "")

	summary, err := agg.Aggregate(context.Background(), 1, monday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if summary.WorkingDays != 1 {
		t.Errorf("WorkingDays = %d, only the 10h day counts", summary.WorkingDays)
	}
	if summary.DaysWithActivity != 2 {
		t.Errorf("DaysWithActivity = %d, expected 2", summary.DaysWithActivity)
	}
	if summary.AverageHoursPerDay != 10.0/7 {
		t.Errorf("AverageHoursPerDay = %.4f, expected 10/7", summary.AverageHoursPerDay)
	}
	if summary.AverageHoursPerWorkingDay != 10 {
		t.Errorf("AverageHoursPerWorkingDay = %.2f, expected 10", summary.AverageHoursPerWorkingDay)
	}
}

func TestAggregateTieKeepsEarliestDay(t *testing.T) {
	stores := store.NewMemoryStores()
	agg := NewWeeklyAggregator(stores, NewHolidayService(), "NONE")

	seedAnalysis(t, stores, 1, monday, 4, 2, "")
	seedAnalysis(t, stores, 1, monday.Add(24*time.Hour), 4, 3, "")

	summary, err := agg.Aggregate(context.Background(), 1, monday)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if summary.MostProductiveDay != "2026-03-02" {
		t.Errorf("MostProductiveDay = %s, ties keep the earliest day", summary.MostProductiveDay)
	}
	if summary.LeastProductiveDay != "2026-03-02" {
		t.Errorf("LeastProductiveDay = %s, ties keep the earliest day", summary.LeastProductiveDay)
	}
}

func TestAggregateNormalizesWeekStart(t *testing.T) {
	stores := store.NewMemoryStores()
	agg := NewWeeklyAggregator(stores, NewHolidayService(), "NONE")

	seedAnalysis(t, stores, 1, monday, 3, 1, "")

	// A mid-day timestamp must aggregate the same week as midnight.
	summary, err := agg.Aggregate(context.Background(), 1, monday.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if summary.WeekStart != "2026-03-02" {
		t.Errorf("WeekStart = %s, expected the normalized 2026-03-02", summary.WeekStart)
	}
	if summary.TotalHours != 3 {
		t.Errorf("TotalHours = %.2f, expected 3", summary.TotalHours)
	}
}
