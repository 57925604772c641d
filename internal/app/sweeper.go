package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
)

type SweepRepository interface {
	// ListActiveExpiredHolds returns holds with status active and
	// expires_at < now.
	ListActiveExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error)
	// ExpireHold marks the hold expired only if it is still active and
	// past expiration at now. It reports whether a row changed.
	ExpireHold(ctx context.Context, holdID string, now time.Time, reason string) (bool, error)
}

// Sweeper moves logically expired holds to the expired status. Availability
// is already correct without it; it only converges stored status.
type Sweeper struct {
	repo  SweepRepository
	clock clock.Clock
	settings

	// mu makes sweeps single-flight across Run and RunOnce callers.
	mu sync.Mutex
}

func NewSweeper(repo SweepRepository, clk clock.Clock, opts ...Option) *Sweeper {
	return &Sweeper{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned int
	Expired int
	// Skipped holds changed state between the scan and their update.
	Skipped int
	Failed  int
}

// Interval is the period Run sweeps at.
func (s *Sweeper) Interval() time.Duration {
	return s.sweepInterval
}

// RunOnce performs a single sweep. A failure on one hold is logged and
// counted; the sweep moves on to the next. Only a failure to list holds is
// returned.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "sweeper.run_once")
	defer span.End()

	now := s.clock.Now()
	holds, err := s.repo.ListActiveExpiredHolds(ctx, now)
	if err != nil {
		span.RecordError(err)
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(holds)}
	for _, hold := range holds {
		ok, err := s.repo.ExpireHold(ctx, hold.ID, now, domain.ReleaseReasonExpiration)
		if err != nil {
			result.Failed++
			s.logger.Error("expire hold", zap.String("hold_id", hold.ID), zap.Error(err))
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}
		result.Expired++
		reason := domain.ReleaseReasonExpiration
		hold.Status = domain.HoldStatusExpired
		hold.ReleasedAt = &now
		hold.ReleaseReason = &reason
		s.publish(ctx, events.HoldEvent(events.TypeHoldExpired, hold, reason, now))
	}

	span.SetAttributes(
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.expired", result.Expired),
		attribute.Int("sweep.failed", result.Failed),
	)
	if result.Scanned > 0 {
		s.logger.Info("released expired holds",
			zap.Int("expired", result.Expired),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
// A sweep in progress when ctx is cancelled runs to completion before Run
// returns.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	s.logger.Info("hold sweeper started", zap.Duration("interval", s.sweepInterval))
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hold sweeper stopped")
			return
		case <-ticker.C():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("hold sweep failed", zap.Error(err))
	}
}
