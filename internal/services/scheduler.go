package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/logger"
)

// AnalysisScheduler runs the nightly batch: one analysis task per active
// user for the previous calendar day. Tasks go through the queue so the
// batch shares retry and concurrency behavior with on-demand requests.
type AnalysisScheduler struct {
	stores        *store.Stores
	queue         TaskQueue
	cronScheduler *cron.Cron
	cronExpr      string
}

func NewAnalysisScheduler(stores *store.Stores, queue TaskQueue, cronExpr string) *AnalysisScheduler {
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	return &AnalysisScheduler{
		stores:   stores,
		queue:    queue,
		cronExpr: cronExpr,
	}
}

func (s *AnalysisScheduler) Start() error {
	s.cronScheduler = cron.New()

	_, err := s.cronScheduler.AddFunc(s.cronExpr, func() {
		s.RunNightlyBatch(context.Background())
	})
	if err != nil {
		return err
	}

	s.cronScheduler.Start()
	logger.Infof("[Scheduler] Nightly analysis scheduled (cron: %s)", s.cronExpr)
	return nil
}

func (s *AnalysisScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

// RunNightlyBatch enqueues yesterday's analysis for every active user. A
// per-user enqueue failure is logged and the batch moves on.
func (s *AnalysisScheduler) RunNightlyBatch(ctx context.Context) {
	users, err := s.stores.Users.GetActive(ctx)
	if err != nil {
		logger.Errorf("[Scheduler] Failed to list active users: %v", err)
		return
	}

	yesterday := store.Day(time.Now().UTC().Add(-24 * time.Hour))
	date := yesterday.Format("2006-01-02")

	logger.Infof("[Scheduler] Nightly batch for %s: %d users", date, len(users))

	enqueued := 0
	for _, user := range users {
		task := &AnalysisTask{UserID: user.ID, Date: date}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Warnf("[Scheduler] Failed to enqueue analysis for user %d: %v", user.ID, err)
			continue
		}
		enqueued++
	}

	logger.Infof("[Scheduler] Nightly batch enqueued %d/%d tasks", enqueued, len(users))
}
