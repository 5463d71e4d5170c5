package scheduler

import (
	"context"
	"sync"
	"time"

	"onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/internal/email/usecase"

	"go.uber.org/zap"
)

// FetchScheduler runs an incremental fetch-all on a fixed interval. Runs
// never overlap: a tick that arrives while a run is in progress is skipped.
type FetchScheduler struct {
	fetchUsecase usecase.FetchUsecase
	interval     time.Duration
	log          *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewFetchScheduler(fetchUsecase usecase.FetchUsecase, interval time.Duration, log *zap.Logger) *FetchScheduler {
	return &FetchScheduler{
		fetchUsecase: fetchUsecase,
		interval:     interval,
		log:          log.Named("fetch-scheduler"),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start begins the scheduler loop. It returns immediately; the loop ends
// on Stop or when ctx is done.
func (s *FetchScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("interval not set, scheduler disabled")
		close(s.done)
		return
	}

	s.log.Info("starting fetch scheduler", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-s.stopChan:
				s.log.Info("scheduler stopped")
				return
			case <-ctx.Done():
				s.log.Info("scheduler stopped", zap.Error(ctx.Err()))
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-progress run to finish.
func (s *FetchScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *FetchScheduler) runOnce(ctx context.Context) {
	summary, err := s.fetchUsecase.FetchAll(ctx, domain.FetchIncremental, "")
	if err != nil {
		s.log.Error("scheduled fetch failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled fetch finished",
		zap.Int("users_processed", summary.UsersProcessed),
		zap.Int("users_failed", summary.UsersFailed),
		zap.Int("messages_fetched", summary.MessagesFetched))
}
