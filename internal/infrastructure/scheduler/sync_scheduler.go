package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/application/syncengine"
	"github.com/salespipe/backend/internal/domain/shared"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/runlock"
)

// SyncSchedulerConfig holds configuration for the periodic sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler runs at all
	Enabled bool
	// Interval is the time between scheduled sync runs
	Interval time.Duration
	// Jitter is the maximum random delay added to each tick, spreading
	// load when multiple instances share a schedule
	Jitter time.Duration
	// LookbackDays is the sync window of a scheduled run
	LookbackDays int
	// RunTimeout bounds a single scheduled run
	RunTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns default scheduler configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:      false,
		Interval:     6 * time.Hour,
		Jitter:       5 * time.Minute,
		LookbackDays: 3,
		RunTimeout:   15 * time.Minute,
	}
}

// SyncScheduler triggers the sales sync on a fixed interval. A tick that
// finds a run already in flight is skipped, not queued.
type SyncScheduler struct {
	config SyncSchedulerConfig
	sync   *syncengine.SalesSyncService
	lock   runlock.RunLock
	log    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSyncScheduler creates a new SyncScheduler
func NewSyncScheduler(config SyncSchedulerConfig, syncService *syncengine.SalesSyncService, lock runlock.RunLock, log *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		config: config,
		sync:   syncService,
		lock:   lock,
		log:    log,
	}
}

// Start launches the scheduler loop. It is a no-op when the scheduler is
// disabled or already running.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.Enabled || s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)
	s.log.Info("sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("lookback_days", s.config.LookbackDays))
}

// Stop terminates the scheduler loop and waits for it to exit
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("sync scheduler stopped")
}

func (s *SyncScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.config.Jitter > 0 {
				delay := time.Duration(rand.Int63n(int64(s.config.Jitter)))
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
			}
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one scheduled sync under the run lock
func (s *SyncScheduler) runOnce(ctx context.Context) {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrSyncInProgress) {
			s.log.Info("scheduled sync skipped, run already in flight")
		} else {
			s.log.Error("scheduled sync lock acquisition failed", zap.Error(err))
		}
		return
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()
	runCtx, log := logger.WithRunID(runCtx, s.log, uuid.NewString())

	result, err := s.sync.Run(runCtx, syncengine.SyncRequest{Days: s.config.LookbackDays})
	if err != nil {
		log.Error("scheduled sync failed", zap.Error(err))
		return
	}
	log.Info("scheduled sync finished",
		zap.Int("appended", result.Appended),
		zap.Int("duplicates", result.Duplicates))
}
