package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

var now = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateEvent(ctx, domain.Event{ID: "e1", Name: "Show", Status: domain.EventStatusOnSale, CreatedAt: now}))
	require.NoError(t, s.CreateTicketPool(ctx, domain.TicketPool{ID: "p1", EventID: "e1", Name: "GA", PriceCents: 100, TotalStock: 10, IsActive: true}))
	return s
}

func activeHold(id, code string, qty int, expires time.Time) domain.Hold {
	return domain.Hold{
		ID:        id,
		Code:      code,
		EventID:   "e1",
		PoolID:    "p1",
		Quantity:  qty,
		Status:    domain.HoldStatusActive,
		CreatedAt: now,
		ExpiresAt: expires,
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.CreateHold(ctx, activeHold("h0", "RES0", 1, now.Add(time.Hour))))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.CreateHold(ctx, activeHold("h1", "RES1", 2, now.Add(time.Hour))))
		ok, err := s.CancelHold(ctx, "h0", now, "test")
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetHold(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	_, err = s.GetHoldByCode(ctx, "RES1")
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)

	h0, err := s.GetHold(ctx, "h0")
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusActive, h0.Status)
	assert.Nil(t, h0.ReleasedAt)
}

func TestCreateHold_UniqueCodeAndIdempotencyKey(t *testing.T) {
	t.Parallel()

	s := seed(t)
	ctx := context.Background()

	h := activeHold("h1", "RES1", 1, now.Add(time.Hour))
	h.IdempotencyKey = "k"
	require.NoError(t, s.CreateHold(ctx, h))

	dupCode := activeHold("h2", "RES1", 1, now.Add(time.Hour))
	assert.ErrorIs(t, s.CreateHold(ctx, dupCode), domain.ErrDuplicateCode)

	dupKey := activeHold("h3", "RES3", 1, now.Add(time.Hour))
	dupKey.IdempotencyKey = "k"
	assert.ErrorIs(t, s.CreateHold(ctx, dupKey), domain.ErrIdempotencyConflict)

	found, err := s.FindHoldByIdempotencyKey(ctx, "p1", "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "h1", found.ID)

	missing, err := s.FindHoldByIdempotencyKey(ctx, "p1", "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSumActiveHoldQuantity_BoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.CreateHold(ctx, activeHold("h1", "RES1", 3, now)))

	n, err := s.SumActiveHoldQuantity(ctx, "p1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.SumActiveHoldQuantity(ctx, "p1", now.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.Zero(t, n)

	expired, err := s.ListActiveExpiredHolds(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = s.ListActiveExpiredHolds(ctx, now.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.Len(t, expired, 1)
}

func TestGuardedUpdates(t *testing.T) {
	t.Parallel()

	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.CreateHold(ctx, activeHold("h1", "RES1", 1, now)))

	ok, err := s.ExpireHold(ctx, "h1", now, domain.ReleaseReasonExpiration)
	require.NoError(t, err)
	assert.False(t, ok, "not yet past expiration")

	later := now.Add(time.Minute)
	ok, err = s.ExpireHold(ctx, "h1", later, domain.ReleaseReasonExpiration)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExpireHold(ctx, "h1", later, domain.ReleaseReasonExpiration)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CancelHold(ctx, "h1", later, "late")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.MarkHoldConverted(ctx, "h1", "s1", later), domain.ErrHoldNotActive)
	assert.ErrorIs(t, s.MarkHoldConverted(ctx, "missing", "s1", later), domain.ErrHoldNotFound)
}
