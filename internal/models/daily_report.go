package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// DailyReport is a user's end-of-day narrative report.
// One row per (user, calendar day); updated during clarification rounds.
type DailyReport struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"uniqueIndex:idx_reports_user_date;not null" json:"user_id"`
	User               *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReportDate         time.Time      `gorm:"uniqueIndex:idx_reports_user_date;not null" json:"report_date"`
	RawText            string         `gorm:"type:text" json:"raw_text"`
	AIAnalysis         string         `gorm:"type:text" json:"ai_analysis"` // JSON ReportAIAnalysis
	ClarificationCount int            `gorm:"default:0" json:"clarification_count"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DailyReport) TableName() string { return "daily_reports" }

// ReportAIAnalysis is the AI-derived view of a narrative report.
type ReportAIAnalysis struct {
	Summary        string   `json:"summary"`
	EstimatedHours float64  `json:"estimated_hours"`
	Achievements   []string `json:"key_achievements"`
	Blockers       []string `json:"blockers"`
	Sentiment      string   `json:"sentiment"`
}

// GetAIAnalysis decodes the stored AI analysis; returns nil when absent or invalid.
func (r *DailyReport) GetAIAnalysis() *ReportAIAnalysis {
	if r.AIAnalysis == "" {
		return nil
	}
	var a ReportAIAnalysis
	if err := json.Unmarshal([]byte(r.AIAnalysis), &a); err != nil {
		return nil
	}
	return &a
}

// SetAIAnalysis encodes and stores the AI analysis.
func (r *DailyReport) SetAIAnalysis(a *ReportAIAnalysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	r.AIAnalysis = string(data)
	return nil
}
