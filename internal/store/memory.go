package store

import (
	"context"
	"sync"
	"time"

	"github.com/devpulse/devpulse/internal/models"
)

// NewMemoryStores builds an in-memory store set. Used by tests; behaves like
// the GORM set including ErrDuplicateKey on unique-key conflicts.
func NewMemoryStores() *Stores {
	return &Stores{
		Commits:  &memCommitStore{byHash: map[string]*models.Commit{}},
		Reports:  &memReportStore{byKey: map[reportKey]*models.DailyReport{}},
		Analyses: &memAnalysisStore{byKey: map[analysisKey]*models.DailyCommitAnalysis{}},
		Users:    &memUserStore{byID: map[uint]*models.User{}},
	}
}

// SeedUser inserts a user into an in-memory user store; no-op for other backends.
func SeedUser(s *Stores, u models.User) {
	if m, ok := s.Users.(*memUserStore); ok {
		m.AddUser(u)
	}
}

type reportKey struct {
	userID uint
	day    time.Time
}

type analysisKey struct {
	userID uint
	day    time.Time
}

type memCommitStore struct {
	mu     sync.Mutex
	nextID uint
	byHash map[string]*models.Commit
}

func (s *memCommitStore) GetByUserInRange(_ context.Context, userID uint, start, end time.Time) ([]models.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Commit
	for _, c := range s.byHash {
		if c.UserID == userID && !c.CommittedAt.Before(start) && c.CommittedAt.Before(end) {
			out = append(out, *c)
		}
	}
	// Stable order matches the GORM store's committed_at ASC.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CommittedAt.Before(out[j-1].CommittedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *memCommitStore) GetByHash(_ context.Context, hash string) (*models.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCommitStore) Create(_ context.Context, c *models.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[c.CommitHash]; exists {
		return ErrDuplicateKey
	}
	s.nextID++
	c.ID = s.nextID
	cp := *c
	s.byHash[c.CommitHash] = &cp
	return nil
}

func (s *memCommitStore) Update(_ context.Context, c *models.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.byHash[c.CommitHash] = &cp
	return nil
}

func (s *memCommitStore) LinkToAnalysis(_ context.Context, commitIDs []uint, analysisID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[uint]bool, len(commitIDs))
	for _, id := range commitIDs {
		ids[id] = true
	}
	for _, c := range s.byHash {
		if ids[c.ID] {
			aid := analysisID
			c.DailyAnalysisID = &aid
		}
	}
	return nil
}

type memReportStore struct {
	mu     sync.Mutex
	nextID uint
	byKey  map[reportKey]*models.DailyReport
}

func (s *memReportStore) GetByUserAndDate(_ context.Context, userID uint, date time.Time) (*models.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byKey[reportKey{userID, Day(date)}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memReportStore) Upsert(_ context.Context, r *models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ReportDate = Day(r.ReportDate)
	key := reportKey{r.UserID, r.ReportDate}
	if existing, ok := s.byKey[key]; ok {
		r.ID = existing.ID
	} else {
		s.nextID++
		r.ID = s.nextID
	}
	cp := *r
	s.byKey[key] = &cp
	return nil
}

type memAnalysisStore struct {
	mu     sync.Mutex
	nextID uint
	byKey  map[analysisKey]*models.DailyCommitAnalysis
}

func (s *memAnalysisStore) GetByUserAndDate(_ context.Context, userID uint, date time.Time) (*models.DailyCommitAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byKey[analysisKey{userID, Day(date)}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAnalysisStore) GetByUserInRange(_ context.Context, userID uint, start, end time.Time) ([]models.DailyCommitAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	startDay, endDay := Day(start), Day(end)
	var out []models.DailyCommitAnalysis
	for key, a := range s.byKey {
		if key.userID == userID && !key.day.Before(startDay) && key.day.Before(endDay) {
			out = append(out, *a)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].AnalysisDate.Before(out[j-1].AnalysisDate); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *memAnalysisStore) Create(_ context.Context, a *models.DailyCommitAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.AnalysisDate = Day(a.AnalysisDate)
	key := analysisKey{a.UserID, a.AnalysisDate}
	if _, exists := s.byKey[key]; exists {
		return ErrDuplicateKey
	}
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.byKey[key] = &cp
	return nil
}

func (s *memAnalysisStore) Update(_ context.Context, a *models.DailyCommitAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.AnalysisDate = Day(a.AnalysisDate)
	a.UpdatedAt = time.Now()
	cp := *a
	s.byKey[analysisKey{a.UserID, a.AnalysisDate}] = &cp
	return nil
}

type memUserStore struct {
	mu   sync.Mutex
	byID map[uint]*models.User
}

// AddUser seeds a user for tests.
func (s *memUserStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = &u
}

func (s *memUserStore) GetByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetActive(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.byID {
		if u.IsActive {
			out = append(out, *u)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *memUserStore) GetByGitIdentity(_ context.Context, name, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if email != "" && u.GitEmail == email {
			cp := *u
			return &cp, nil
		}
	}
	for _, u := range s.byID {
		if u.GitName == name || u.Username == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
