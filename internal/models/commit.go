package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Commit represents a single version-control commit attributed to a user.
// Identity key is the commit hash; re-analysis updates the AI fields in place.
type Commit struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index:idx_commits_user_date" json:"user_id"`
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CommitHash   string         `gorm:"uniqueIndex;size:100;not null" json:"commit_hash"`
	Repository   string         `gorm:"size:200;index" json:"repository"`
	Branch       string         `gorm:"size:200" json:"branch"`
	Message      string         `gorm:"type:text" json:"message"`
	CommitURL    string         `gorm:"size:500" json:"commit_url"`
	AuthorName   string         `gorm:"size:200;index" json:"author_name"`
	AuthorEmail  string         `gorm:"size:255" json:"author_email"`
	Additions    int            `json:"additions"`
	Deletions    int            `json:"deletions"`
	FilesChanged int            `json:"files_changed"`
	ChangedFiles string         `gorm:"type:text" json:"changed_files"` // comma-joined paths, truncated on ingest
	CommittedAt  time.Time      `gorm:"index:idx_commits_user_date" json:"committed_at"`

	// Per-commit AI analysis, filled by the analysis pipeline
	AIEstimatedHours *float64   `json:"ai_estimated_hours"`
	ComplexityScore  *float64   `json:"complexity_score"` // 1-10
	SeniorityScore   *float64   `json:"seniority_score"`  // 1-10
	RiskLevel        string     `gorm:"size:20" json:"risk_level"` // low, medium, high
	AnalyzedAt       *time.Time `json:"analyzed_at"`

	// Link to the day's aggregate analysis, best-effort
	DailyAnalysisID *uint `gorm:"index" json:"daily_analysis_id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Commit) TableName() string { return "commits" }

// ChangedFileList splits the stored comma-joined file list.
func (c *Commit) ChangedFileList() []string {
	if c.ChangedFiles == "" {
		return nil
	}
	parts := strings.Split(c.ChangedFiles, ",")
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}
	return files
}
