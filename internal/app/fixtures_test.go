package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
	"github.com/jwenger100/event-tickets-reservations/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

var testCustomer = domain.Customer{
	Name:  "Ada Lovelace",
	Email: "ada@example.com",
	Phone: "+44 20 7946 0000",
}

// seedPool stores an on-sale event with one active pool and returns both.
func seedPool(t *testing.T, store *memory.Store, stock int, priceCents int64) (domain.Event, domain.TicketPool) {
	t.Helper()
	ctx := context.Background()

	event := domain.Event{
		ID:        "event-1",
		Name:      "Summer Concert",
		StartsAt:  testNow.Add(30 * 24 * time.Hour),
		Status:    domain.EventStatusOnSale,
		CreatedAt: testNow,
	}
	require.NoError(t, store.CreateEvent(ctx, event))

	pool := domain.TicketPool{
		ID:         "pool-1",
		EventID:    event.ID,
		Name:       "General Admission",
		PriceCents: priceCents,
		TotalStock: stock,
		MaxPerHold: domain.DefaultMaxPerHold,
		IsActive:   true,
		CreatedAt:  testNow,
	}
	require.NoError(t, store.CreateTicketPool(ctx, pool))
	return event, pool
}

func holdInput(event domain.Event, pool domain.TicketPool, quantity int) CreateHoldInput {
	return CreateHoldInput{
		EventID:  event.ID,
		PoolID:   pool.ID,
		Customer: testCustomer,
		Quantity: quantity,
	}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func eventOfType(t events.Type) interface{} {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == t })
}
