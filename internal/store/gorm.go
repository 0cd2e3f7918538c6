package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"gorm.io/gorm"
)

// NewGormStores builds the production store set on a shared *gorm.DB.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Commits:  &gormCommitStore{db: db},
		Reports:  &gormReportStore{db: db},
		Analyses: &gormAnalysisStore{db: db},
		Users:    &gormUserStore{db: db},
	}
}

// isDuplicateKeyError detects unique-constraint violations across the three
// supported drivers. GORM's translated error covers mysql/postgres; the
// string checks cover sqlite and untranslated paths.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

type gormCommitStore struct {
	db *gorm.DB
}

func (s *gormCommitStore) GetByUserInRange(ctx context.Context, userID uint, start, end time.Time) ([]models.Commit, error) {
	var commits []models.Commit
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND committed_at >= ? AND committed_at < ?", userID, start, end).
		Order("committed_at ASC").
		Find(&commits).Error
	return commits, err
}

func (s *gormCommitStore) GetByHash(ctx context.Context, hash string) (*models.Commit, error) {
	var commit models.Commit
	err := s.db.WithContext(ctx).Where("commit_hash = ?", hash).First(&commit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

func (s *gormCommitStore) Create(ctx context.Context, c *models.Commit) error {
	err := s.db.WithContext(ctx).Create(c).Error
	if isDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *gormCommitStore) Update(ctx context.Context, c *models.Commit) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func (s *gormCommitStore) LinkToAnalysis(ctx context.Context, commitIDs []uint, analysisID uint) error {
	if len(commitIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Commit{}).
		Where("id IN ?", commitIDs).
		Update("daily_analysis_id", analysisID).Error
}

type gormReportStore struct {
	db *gorm.DB
}

func (s *gormReportStore) GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.DailyReport, error) {
	var report models.DailyReport
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND report_date = ?", userID, Day(date)).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *gormReportStore) Upsert(ctx context.Context, r *models.DailyReport) error {
	r.ReportDate = Day(r.ReportDate)
	if r.ID != 0 {
		return s.db.WithContext(ctx).Save(r).Error
	}
	err := s.db.WithContext(ctx).Create(r).Error
	if !isDuplicateKeyError(err) {
		return err
	}
	// Same (user, day) already exists: merge into the existing row.
	var existing models.DailyReport
	if ferr := s.db.WithContext(ctx).
		Where("user_id = ? AND report_date = ?", r.UserID, r.ReportDate).
		First(&existing).Error; ferr != nil {
		return ferr
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(r).Error
}

type gormAnalysisStore struct {
	db *gorm.DB
}

func (s *gormAnalysisStore) GetByUserAndDate(ctx context.Context, userID uint, date time.Time) (*models.DailyCommitAnalysis, error) {
	var analysis models.DailyCommitAnalysis
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND analysis_date = ?", userID, Day(date)).
		First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *gormAnalysisStore) GetByUserInRange(ctx context.Context, userID uint, start, end time.Time) ([]models.DailyCommitAnalysis, error) {
	var analyses []models.DailyCommitAnalysis
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND analysis_date >= ? AND analysis_date < ?", userID, Day(start), Day(end)).
		Order("analysis_date ASC").
		Find(&analyses).Error
	return analyses, err
}

func (s *gormAnalysisStore) Create(ctx context.Context, a *models.DailyCommitAnalysis) error {
	a.AnalysisDate = Day(a.AnalysisDate)
	err := s.db.WithContext(ctx).Create(a).Error
	if isDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (s *gormAnalysisStore) Update(ctx context.Context, a *models.DailyCommitAnalysis) error {
	a.AnalysisDate = Day(a.AnalysisDate)
	return s.db.WithContext(ctx).Save(a).Error
}

type gormUserStore struct {
	db *gorm.DB
}

func (s *gormUserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetActive(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&users).Error
	return users, err
}

func (s *gormUserStore) GetByGitIdentity(ctx context.Context, name, email string) (*models.User, error) {
	var user models.User
	q := s.db.WithContext(ctx)
	if email != "" {
		if err := q.Where("git_email = ?", email).First(&user).Error; err == nil {
			return &user, nil
		}
	}
	err := s.db.WithContext(ctx).Where("git_name = ? OR username = ?", name, name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
