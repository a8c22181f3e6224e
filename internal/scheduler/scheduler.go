package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

const (
	defaultRefreshInterval   = 6 * time.Hour
	defaultHeartbeatInterval = 30 * time.Minute
)

type Config struct {
	RefreshInterval   time.Duration
	HeartbeatInterval time.Duration
	// RunOnStart triggers a cycle immediately instead of waiting one full
	// interval after boot.
	RunOnStart bool
}

// Scheduler owns the periodic refresh loop and an independent liveness
// heartbeat. It is a process-scoped service with an explicit start/stop
// lifecycle; nothing here lives in package globals.
type Scheduler struct {
	refresh   *usecase.RefreshService
	dashboard *usecase.DashboardService
	logger    *logging.Logger

	refreshEvery   time.Duration
	heartbeatEvery time.Duration
	runOnStart     bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	cycleCount atomic.Int64
	lastCycle  atomic.Value // usecase.RefreshResult
}

func New(refresh *usecase.RefreshService, dashboard *usecase.DashboardService, logger *logging.Logger, cfg Config) (*Scheduler, error) {
	if refresh == nil {
		return nil, fmt.Errorf("refresh service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}

	return &Scheduler{
		refresh:        refresh,
		dashboard:      dashboard,
		logger:         logger,
		refreshEvery:   cfg.RefreshInterval,
		heartbeatEvery: cfg.HeartbeatInterval,
		runOnStart:     cfg.RunOnStart,
	}, nil
}

// Start launches the loops. Calling Start on a running scheduler is an
// error; Stop then Start is fine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx, s.done)

	s.logger.InfoContext(ctx, "scheduler started",
		"refresh_interval", s.refreshEvery.String(),
		"heartbeat_interval", s.heartbeatEvery.String())
	return nil
}

// Stop halts the loops and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
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
	s.logger.Info("scheduler stopped", "cycles_completed", s.cycleCount.Load())
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	refreshTicker := time.NewTicker(s.refreshEvery)
	defer refreshTicker.Stop()
	heartbeatTicker := time.NewTicker(s.heartbeatEvery)
	defer heartbeatTicker.Stop()

	if s.runOnStart {
		s.runCycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			s.runCycle(ctx)
		case <-heartbeatTicker.C:
			s.heartbeat(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	result, err := s.refresh.RefreshAll(ctx, student.Filter{})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.ErrorContext(ctx, "refresh cycle failed", "error", err)
		return
	}

	s.cycleCount.Add(1)
	s.lastCycle.Store(result)
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}

func (s *Scheduler) heartbeat(ctx context.Context) {
	args := []any{"cycles_completed", s.cycleCount.Load()}
	if last, ok := s.lastCycle.Load().(usecase.RefreshResult); ok {
		args = append(args,
			"last_refreshed", last.RefreshedCount,
			"last_failed", last.FailedCount,
			"last_new_performances", last.NewPerformances)
	}
	s.logger.InfoContext(ctx, "scheduler heartbeat", args...)
}
