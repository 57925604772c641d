package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
)

const (
	defaultHoldTTL       = 15 * time.Minute
	defaultSweepInterval = 5 * time.Minute

	// maxCodeAttempts bounds retries when a generated code collides.
	maxCodeAttempts = 3
)

var tracer = otel.Tracer("github.com/jwenger100/event-tickets-reservations/internal/app")

type settings struct {
	logger        *zap.Logger
	publisher     events.Publisher
	holdTTL       time.Duration
	sweepInterval time.Duration
	serviceFeeBP  int
	taxBP         int
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:        zap.NewNop(),
		publisher:     events.NopPublisher{},
		holdTTL:       defaultHoldTTL,
		sweepInterval: defaultSweepInterval,
		serviceFeeBP:  domain.DefaultServiceFeeBP,
		taxBP:         domain.DefaultTaxBP,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures the services in this package. Each service reads only the
// settings it needs.
type Option func(*settings)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithSweepInterval overrides how often Sweeper.Run sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithRates overrides the service fee and tax rates, in basis points.
func WithRates(serviceFeeBP, taxBP int) Option {
	return func(s *settings) {
		if serviceFeeBP >= 0 {
			s.serviceFeeBP = serviceFeeBP
		}
		if taxBP >= 0 {
			s.taxBP = taxBP
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher sets where lifecycle events go after commit.
func WithPublisher(p events.Publisher) Option {
	return func(s *settings) {
		if p != nil {
			s.publisher = p
		}
	}
}

func (s settings) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
