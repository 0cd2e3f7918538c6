package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Analysis types
const (
	AnalysisTypeAutomatic  = "automatic"   // commits only
	AnalysisTypeWithReport = "with_report" // commits reconciled against an EOD report
)

// AnalysisVersion tags the persisted AI payload schema so future format
// changes can be migrated deterministically.
const AnalysisVersion = "v1"

// DailyCommitAnalysis is the per-(user, day) aggregate produced by the
// unified daily work analysis. At most one row per (user_id, analysis_date),
// enforced by the unique index; created lazily, updated in place on forced
// re-analysis.
type DailyCommitAnalysis struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"uniqueIndex:idx_analyses_user_date;not null" json:"user_id"`
	AnalysisDate         time.Time `gorm:"uniqueIndex:idx_analyses_user_date;not null" json:"analysis_date"`
	TotalEstimatedHours  float64   `gorm:"type:decimal(4,2)" json:"total_estimated_hours"` // clamped to [0,24]
	CommitCount          int       `json:"commit_count"`
	DailyReportID        *uint     `json:"daily_report_id"`
	AnalysisType         string    `gorm:"size:20;default:automatic" json:"analysis_type"`
	AIAnalysis           string    `gorm:"type:text" json:"ai_analysis"` // JSON AnalysisPayload
	ComplexityScore      float64   `json:"complexity_score"` // 1-10
	SeniorityScore       float64   `json:"seniority_score"`  // 1-10
	RepositoriesAnalyzed string    `gorm:"size:1000" json:"repositories_analyzed"` // comma-joined
	TotalLinesAdded      int       `json:"total_lines_added"`
	TotalLinesRemoved    int       `json:"total_lines_removed"`
	AnalysisVersion      string    `gorm:"size:10;default:v1" json:"analysis_version"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (DailyCommitAnalysis) TableName() string { return "daily_commit_analyses" }

// PayloadWorkItem is a normalized unit of work inside the stored payload.
type PayloadWorkItem struct {
	Source         string  `json:"source"` // commit, report
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// DeduplicatedItem records a commit/report pair that was collapsed into a
// single hour allocation.
type DeduplicatedItem struct {
	CommitDescription string  `json:"commit_description"`
	ReportDescription string  `json:"report_description"`
	Confidence        float64 `json:"confidence"`
	Explanation       string  `json:"explanation"`
	HoursCounted      float64 `json:"hours_counted"` // commit-side hours; report side contributes zero
}

// AnalysisPayload is the structured ai_analysis blob.
type AnalysisPayload struct {
	WorkItems               []PayloadWorkItem  `json:"work_items"`
	DeduplicatedItems       []DeduplicatedItem `json:"deduplicated_items"`
	WorkCategories          map[string]float64 `json:"work_categories"`
	KeyAchievements         []string           `json:"key_achievements"`
	ConfidenceScore         float64            `json:"confidence_score"`
	WorkSummary             string             `json:"work_summary"`
	HourEstimationReasoning string             `json:"hour_estimation_reasoning"`
	ConsistencyWithReport   string             `json:"consistency_with_report"`
	Recommendations         []string           `json:"recommendations"`
}

// GetPayload decodes the stored payload; returns an empty payload when absent
// or invalid rather than failing the read path.
func (a *DailyCommitAnalysis) GetPayload() *AnalysisPayload {
	p := &AnalysisPayload{WorkCategories: map[string]float64{}}
	if a.AIAnalysis == "" {
		return p
	}
	if err := json.Unmarshal([]byte(a.AIAnalysis), p); err != nil {
		return &AnalysisPayload{WorkCategories: map[string]float64{}}
	}
	if p.WorkCategories == nil {
		p.WorkCategories = map[string]float64{}
	}
	return p
}

// SetPayload encodes and stores the payload.
func (a *DailyCommitAnalysis) SetPayload(p *AnalysisPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	a.AIAnalysis = string(data)
	return nil
}

// Repositories splits the stored comma-joined repository list.
func (a *DailyCommitAnalysis) Repositories() []string {
	if a.RepositoriesAnalyzed == "" {
		return nil
	}
	parts := strings.Split(a.RepositoriesAnalyzed, ",")
	repos := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			repos = append(repos, p)
		}
	}
	return repos
}

// SetRepositories stores a repository list as a comma-joined string.
func (a *DailyCommitAnalysis) SetRepositories(repos []string) {
	a.RepositoriesAnalyzed = strings.Join(repos, ",")
}
