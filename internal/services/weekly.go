package services

import (
	"context"
	"errors"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
)

// DaySummary is one slot of the weekly view. A day without an analysis row
// still appears, zero-valued, so the week is always seven entries long.
type DaySummary struct {
	Date         string  `json:"date"`
	Weekday      string  `json:"weekday"`
	Hours        float64 `json:"hours"`
	CommitCount  int     `json:"commit_count"`
	AnalysisType string  `json:"analysis_type,omitempty"`
	IsWorkday    bool    `json:"is_workday"`
	HasAnalysis  bool    `json:"has_analysis"`
}

type WeeklySummary struct {
	WeekStart    string       `json:"week_start"`
	WeekEnd      string       `json:"week_end"`
	Days         []DaySummary `json:"days"`
	TotalHours   float64      `json:"total_hours"`
	TotalCommits int          `json:"total_commits"`
	// WorkingDays counts days with hours > 0. DaysWithActivity also counts
	// zero-hour days that still carried commits.
	WorkingDays      int `json:"working_days"`
	DaysWithActivity int `json:"days_with_activity"`
	ExpectedWorkdays int `json:"expected_workdays"`
	// AverageHoursPerDay spreads the total over all seven days;
	// AverageHoursPerWorkingDay divides by WorkingDays, and
	// AverageHoursPerExpectedWorkday by the holiday-calendar workday count.
	AverageHoursPerDay             float64            `json:"average_hours_per_day"`
	AverageHoursPerWorkingDay      float64            `json:"average_hours_per_working_day"`
	AverageHoursPerExpectedWorkday float64            `json:"average_hours_per_expected_workday"`
	AverageComplexityScore         float64            `json:"average_complexity_score"`
	AverageSeniorityScore          float64            `json:"average_seniority_score"`
	Repositories                   []string           `json:"repositories"`
	WorkCategories                 map[string]float64 `json:"work_categories"`
	MostProductiveDay              string             `json:"most_productive_day,omitempty"`
	LeastProductiveDay             string             `json:"least_productive_day,omitempty"`
}

// WeeklyAggregator folds seven daily analysis rows into one summary. It only
// reads what the daily pipeline already persisted; it never triggers analysis.
type WeeklyAggregator struct {
	stores      *store.Stores
	holidays    *HolidayService
	countryCode string
}

func NewWeeklyAggregator(stores *store.Stores, holidays *HolidayService, countryCode string) *WeeklyAggregator {
	if countryCode == "" {
		countryCode = "NONE"
	}
	return &WeeklyAggregator{stores: stores, holidays: holidays, countryCode: countryCode}
}

// Aggregate summarizes the seven days starting at weekStart (normalized to
// midnight UTC). Missing daily rows count as zero activity rather than error.
func (w *WeeklyAggregator) Aggregate(ctx context.Context, userID uint, weekStart time.Time) (*WeeklySummary, error) {
	start := store.Day(weekStart)
	end := start.Add(7 * 24 * time.Hour)

	analyses, err := w.stores.Analyses.GetByUserInRange(ctx, userID, start, end)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, &ExternalServiceError{Op: "weekly analysis fetch", Err: err}
	}

	byDay := make(map[time.Time]*models.DailyCommitAnalysis, len(analyses))
	for i := range analyses {
		a := &analyses[i]
		byDay[store.Day(a.AnalysisDate)] = a
	}

	summary := &WeeklySummary{
		WeekStart:      start.Format("2006-01-02"),
		WeekEnd:        start.Add(6 * 24 * time.Hour).Format("2006-01-02"),
		Days:           make([]DaySummary, 0, 7),
		WorkCategories: make(map[string]float64),
	}

	var (
		complexitySum, senioritySum float64
		scoredDays                  int
		repoSeen                    = map[string]bool{}
		bestDay, worstDay           *DaySummary
	)

	for i := 0; i < 7; i++ {
		date := start.Add(time.Duration(i) * 24 * time.Hour)
		day := DaySummary{
			Date:      date.Format("2006-01-02"),
			Weekday:   date.Weekday().String(),
			IsWorkday: w.holidays.IsWorkday(date, w.countryCode),
		}
		if day.IsWorkday {
			summary.ExpectedWorkdays++
		}

		if a, ok := byDay[date]; ok {
			day.HasAnalysis = true
			day.Hours = a.TotalEstimatedHours
			day.CommitCount = a.CommitCount
			day.AnalysisType = a.AnalysisType

			summary.TotalHours += a.TotalEstimatedHours
			summary.TotalCommits += a.CommitCount

			if a.ComplexityScore > 0 || a.SeniorityScore > 0 {
				complexitySum += a.ComplexityScore
				senioritySum += a.SeniorityScore
				scoredDays++
			}

			for _, repo := range a.Repositories() {
				if repo != "" && !repoSeen[repo] {
					repoSeen[repo] = true
					summary.Repositories = append(summary.Repositories, repo)
				}
			}

			payload := a.GetPayload()
			for category, hours := range payload.WorkCategories {
				summary.WorkCategories[category] += hours
			}
		}

		summary.Days = append(summary.Days, day)
		current := &summary.Days[len(summary.Days)-1]

		if current.Hours > 0 {
			summary.WorkingDays++
		}
		if current.Hours > 0 || current.CommitCount > 0 {
			summary.DaysWithActivity++
			// Strict comparisons keep the earliest day on ties.
			if bestDay == nil || current.Hours > bestDay.Hours {
				bestDay = current
			}
			if worstDay == nil || current.Hours < worstDay.Hours {
				worstDay = current
			}
		}
	}

	summary.AverageHoursPerDay = summary.TotalHours / 7
	if summary.WorkingDays > 0 {
		summary.AverageHoursPerWorkingDay = summary.TotalHours / float64(summary.WorkingDays)
	}
	if summary.ExpectedWorkdays > 0 {
		summary.AverageHoursPerExpectedWorkday = summary.TotalHours / float64(summary.ExpectedWorkdays)
	}
	if scoredDays > 0 {
		summary.AverageComplexityScore = complexitySum / float64(scoredDays)
		summary.AverageSeniorityScore = senioritySum / float64(scoredDays)
	}
	if bestDay != nil {
		summary.MostProductiveDay = bestDay.Date
	}
	if worstDay != nil {
		summary.LeastProductiveDay = worstDay.Date
	}

	return summary, nil
}
