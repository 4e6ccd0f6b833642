/*
scheduler.go - Automated vacation completion sweeper

PURPOSE:
  Periodically marks vacation blocks whose last day has passed as
  COMPLETED, so the calendar and the yearly quota reflect what was taken.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Sweeps once immediately on Start
  - RunNow and the ticker share one mutex, so sweeps never overlap
  - A failed sweep is logged and retried on the next tick

CONFIGURATION:
  - Interval: VACATION_SWEEP_INTERVAL (default: 1 hour)
  - Enabled:  ENABLE_SCHEDULER

USAGE:
  sweeper := NewVacationSweeper(handler.Vacations, time.Hour, logger)
  sweeper.Start(ctx)
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: CompleteVacations endpoint (manual sweep)
  - vacation/service.go: CompleteDue
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the part of vacation.Service the sweeper drives.
type Sweeper interface {
	CompleteDue(ctx context.Context) (int, error)
}

// VacationSweeper completes due vacation blocks on a ticker.
type VacationSweeper struct {
	Service  Sweeper
	Interval time.Duration
	Logger   *zap.Logger

	runMu   sync.Mutex // serializes sweeps
	mu      sync.Mutex // guards the fields below
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
	lastN   int
}

// NewVacationSweeper creates a sweeper. A non-positive interval means 1h.
func NewVacationSweeper(svc Sweeper, interval time.Duration, logger *zap.Logger) *VacationSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VacationSweeper{Service: svc, Interval: interval, Logger: logger.Named("sweeper")}
}

// Start begins sweeping until Stop is called or ctx is done. Starting a
// running sweeper is a no-op.
func (s *VacationSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx, s.done)

	s.Logger.Info("started", zap.Duration("interval", s.Interval))
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *VacationSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("stopped")
}

func (s *VacationSweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *VacationSweeper) sweep(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil && ctx.Err() == nil {
		s.Logger.Error("sweep failed", zap.Error(err))
	}
}

// RunNow performs one sweep and returns how many blocks were completed.
func (s *VacationSweeper) RunNow(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	n, err := s.Service.CompleteDue(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastN = n
	s.mu.Unlock()

	if n > 0 {
		s.Logger.Info("sweep completed", zap.Int("completed", n))
	}
	return n, err
}

// LastRun returns when the last sweep ran and how many blocks it completed.
func (s *VacationSweeper) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastN
}
