package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const defaultReaperInterval = 5 * time.Minute

// ThreadDeleter removes a thread together with its report.
type ThreadDeleter interface {
	DeleteThread(ctx context.Context, threadID string) error
}

// ThreadReaper periodically destroys threads idle for longer than ttl.
type ThreadReaper struct {
	threads domain.ThreadStore
	deleter ThreadDeleter
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewThreadReaper(ts domain.ThreadStore, d ThreadDeleter, ttl time.Duration, logger *zap.Logger) *ThreadReaper {
	return &ThreadReaper{
		threads:  ts,
		deleter:  d,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		interval: defaultReaperInterval,
		stopCh:   make(chan struct{}),
	}
}

func (r *ThreadReaper) SetInterval(d time.Duration) {
	r.interval = d
}

// Start runs the reaper on a periodic schedule in a background goroutine.
func (r *ThreadReaper) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("thread reaper started", zap.Duration("interval", r.interval), zap.Duration("ttl", r.ttl))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				r.Run(ctx)
				cancel()
			case <-r.stopCh:
				r.logger.Info("thread reaper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the reaper.
func (r *ThreadReaper) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// Run performs one sweep and returns the number of threads removed.
func (r *ThreadReaper) Run(ctx context.Context) int {
	ids, err := r.threads.ListIdle(ctx, r.now().Add(-r.ttl))
	if err != nil {
		r.logger.Error("failed to list idle threads", zap.Error(err))
		return 0
	}

	removed := 0
	for _, id := range ids {
		if err := r.deleter.DeleteThread(ctx, id); err != nil && !errors.Is(err, ErrThreadNotFound) {
			r.logger.Warn("failed to delete idle thread", zap.String("thread_id", id), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("deleted idle threads", zap.Int("count", removed))
	}
	return removed
}
