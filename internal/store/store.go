// Package store defines the storage ports for the daily work analysis core.
// Two implementations exist: a GORM-backed one for production and an
// in-memory one for tests. Selection happens via constructor injection.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/devpulse/devpulse/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicateKey is returned when a create violates a unique key.
	// Callers recover by re-fetching the winning row.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Day normalizes a timestamp to its calendar day (midnight UTC). All
// per-day keys in the store go through this so lookups and unique-key
// writes agree on the boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CommitStore reads and writes ingested commits.
type CommitStore interface {
	// GetByUserInRange returns commits in [start, end). Range queries
	// across the store treat end as exclusive.
	GetByUserInRange(ctx context.Context, userID uint, start, end time.Time) ([]models.Commit, error)
	GetByHash(ctx context.Context, hash string) (*models.Commit, error)
	Create(ctx context.Context, c *models.Commit) error
	Update(ctx context.Context, c *models.Commit) error
	// LinkToAnalysis associates commits with a daily analysis row.
	LinkToAnalysis(ctx context.Context, commitIDs []uint, analysisID uint) error
}

// DailyReportStore reads and writes end-of-day reports.
type DailyReportStore interface {
	GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.DailyReport, error)
	Upsert(ctx context.Context, r *models.DailyReport) error
}

// AnalysisStore reads and writes daily commit analyses. Create must return
// ErrDuplicateKey when a row for the same (user_id, analysis_date) exists.
type AnalysisStore interface {
	GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.DailyCommitAnalysis, error)
	// GetByUserInRange returns analyses whose day falls in [start, end),
	// ordered by analysis date. end is exclusive, same as CommitStore.
	GetByUserInRange(ctx context.Context, userID uint, start, end time.Time) ([]models.DailyCommitAnalysis, error)
	Create(ctx context.Context, a *models.DailyCommitAnalysis) error
	Update(ctx context.Context, a *models.DailyCommitAnalysis) error
}

// UserStore reads users for batch analysis and commit attribution.
type UserStore interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetActive(ctx context.Context) ([]models.User, error)
	GetByGitIdentity(ctx context.Context, name, email string) (*models.User, error)
}

// Stores bundles all ports for wiring convenience.
type Stores struct {
	Commits  CommitStore
	Reports  DailyReportStore
	Analyses AnalysisStore
	Users    UserStore
}
