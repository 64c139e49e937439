package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/service"
)

// DeadlineChecker runs one deadline sweep.
type DeadlineChecker interface {
	CheckDeadlines(ctx context.Context) (service.SweepResult, error)
}

// SLASweeper periodically checks response deadlines.
type SLASweeper struct {
	checker  DeadlineChecker
	lease    *Lease
	interval time.Duration
	logger   *zap.Logger
}

// NewSLASweeper builds the sweeper. A nil lease runs every tick locally.
func NewSLASweeper(checker DeadlineChecker, lease *Lease, interval time.Duration, logger *zap.Logger) *SLASweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lease == nil {
		lease = NewLease(nil, "", 0, logger)
	}
	return &SLASweeper{checker: checker, lease: lease, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *SLASweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sla sweeper started", zap.Duration("interval", s.interval))
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("sla sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one sweep if this instance wins the lease. Reports whether a
// sweep ran.
func (s *SLASweeper) Tick(ctx context.Context) bool {
	if !s.lease.Acquire(ctx) {
		return false
	}
	defer s.lease.Release(context.WithoutCancel(ctx))

	if _, err := s.checker.CheckDeadlines(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("deadline sweep failed", zap.Error(err))
	}
	return true
}
