package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

// StockCounter sums the quantities that currently consume a pool's stock.
type StockCounter interface {
	// SumActiveHoldQuantity sums holds with status active and expires_at >= now.
	SumActiveHoldQuantity(ctx context.Context, poolID string, now time.Time) (int, error)
	SumCompletedSaleQuantity(ctx context.Context, poolID string) (int, error)
}

type InventoryRepository interface {
	StockCounter
	GetTicketPool(ctx context.Context, poolID string) (domain.TicketPool, error)
}

// InventoryService is the read side of the engine. It never writes.
type InventoryService struct {
	repo  InventoryRepository
	clock clock.Clock
}

func NewInventoryService(repo InventoryRepository, clk clock.Clock) *InventoryService {
	return &InventoryService{
		repo:  repo,
		clock: clk,
	}
}

// Availability is a point-in-time view of one pool.
type Availability struct {
	PoolID     string
	TotalStock int
	Reserved   int
	Sold       int
	Available  int
	AsOf       time.Time
}

// AvailableCount returns how many tickets of the pool can still be held.
func (s *InventoryService) AvailableCount(ctx context.Context, poolID string) (int, error) {
	report, err := s.Report(ctx, poolID)
	if err != nil {
		return 0, err
	}
	return report.Available, nil
}

func (s *InventoryService) Report(ctx context.Context, poolID string) (Availability, error) {
	ctx, span := tracer.Start(ctx, "inventory.report")
	defer span.End()
	span.SetAttributes(attribute.String("pool.id", poolID))

	pool, err := s.repo.GetTicketPool(ctx, poolID)
	if err != nil {
		return Availability{}, err
	}
	report, err := countAvailability(ctx, s.repo, pool, s.clock.Now())
	if err != nil {
		return Availability{}, err
	}
	span.SetAttributes(attribute.Int("inventory.available", report.Available))
	return report, nil
}

// countAvailability derives availability from live rows; pool.TotalStock is
// never decremented. Inside a transaction ctx it reads through that
// transaction.
func countAvailability(ctx context.Context, counter StockCounter, pool domain.TicketPool, now time.Time) (Availability, error) {
	reserved, err := counter.SumActiveHoldQuantity(ctx, pool.ID, now)
	if err != nil {
		return Availability{}, err
	}
	sold, err := counter.SumCompletedSaleQuantity(ctx, pool.ID)
	if err != nil {
		return Availability{}, err
	}

	// The floor only protects display callers from a bookkeeping error.
	available := pool.TotalStock - reserved - sold
	if available < 0 {
		available = 0
	}

	return Availability{
		PoolID:     pool.ID,
		TotalStock: pool.TotalStock,
		Reserved:   reserved,
		Sold:       sold,
		Available:  available,
		AsOf:       now,
	}, nil
}
