package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/testutil"
)

func TestHoldRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewHoldRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("GetTicketPoolForUpdate joins the event and reports missing pools", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, poolID := testutil.InsertEventAndPool(t, ctx, pool, "Concert", 100, 5000)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			p, err := repo.GetTicketPoolForUpdate(txCtx, poolID)
			require.NoError(t, err)
			assert.Equal(t, eventID, p.EventID)
			assert.Equal(t, 100, p.TotalStock)
			assert.Equal(t, int64(5000), p.PriceCents)
			assert.Equal(t, domain.DefaultMaxPerHold, p.MaxPerHold)
			assert.Equal(t, domain.EventStatusOnSale, p.EventStatus)

			_, err = repo.GetTicketPoolForUpdate(txCtx, "00000000-0000-0000-0000-000000000001")
			assert.ErrorIs(t, err, domain.ErrTicketPoolNotFound)
			return nil
		})
		require.NoError(t, err)

		_, err = repo.GetTicketPool(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("SumActiveHoldQuantity counts holds until expires_at inclusive", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, poolID := testutil.InsertEventAndPool(t, ctx, pool, "Concert", 100, 5000)
		now := time.Now().UTC().Truncate(time.Microsecond)

		testutil.InsertHold(t, ctx, pool, domain.Hold{EventID: eventID, PoolID: poolID, Quantity: 3, Status: domain.HoldStatusActive, ExpiresAt: now})
		testutil.InsertHold(t, ctx, pool, domain.Hold{EventID: eventID, PoolID: poolID, Quantity: 4, Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Second)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{EventID: eventID, PoolID: poolID, Quantity: 5, Status: domain.HoldStatusCancelled, ExpiresAt: now.Add(time.Hour)})

		total, err := repo.SumActiveHoldQuantity(ctx, poolID, now)
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		expired, err := repo.ListActiveExpiredHolds(ctx, now)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, 4, expired[0].Quantity)
	})

	t.Run("CreateHold maps unique violations", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, poolID := testutil.InsertEventAndPool(t, ctx, pool, "Concert", 100, 5000)
		now := time.Now().UTC()

		hold := domain.Hold{
			ID: "11111111-1111-1111-1111-111111111111", Code: "RESAAAA0001", EventID: eventID, PoolID: poolID,
			Customer: domain.Customer{Name: "A", Email: "a@example.com", Phone: "1"},
			Quantity: 1, UnitPriceCents: 5000, TotalCents: 5000, Status: domain.HoldStatusActive,
			CreatedAt: now, ExpiresAt: now.Add(15 * time.Minute), TimeoutMinutes: 15, IdempotencyKey: "k1",
		}
		require.NoError(t, repo.CreateHold(ctx, hold))

		dupCode := hold
		dupCode.ID = "22222222-2222-2222-2222-222222222222"
		dupCode.IdempotencyKey = ""
		assert.ErrorIs(t, repo.CreateHold(ctx, dupCode), domain.ErrDuplicateCode)

		dupKey := hold
		dupKey.ID = "33333333-3333-3333-3333-333333333333"
		dupKey.Code = "RESAAAA0003"
		assert.ErrorIs(t, repo.CreateHold(ctx, dupKey), domain.ErrIdempotencyConflict)

		found, err := repo.FindHoldByIdempotencyKey(ctx, poolID, "k1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, hold.ID, found.ID)
		assert.Equal(t, hold.Customer, found.Customer)

		byCode, err := repo.GetHoldByCode(ctx, "RESAAAA0001")
		require.NoError(t, err)
		assert.Equal(t, hold.ID, byCode.ID)
	})

	t.Run("guarded updates only touch active holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, poolID := testutil.InsertEventAndPool(t, ctx, pool, "Concert", 100, 5000)
		now := time.Now().UTC().Truncate(time.Microsecond)

		live := testutil.InsertHold(t, ctx, pool, domain.Hold{EventID: eventID, PoolID: poolID, Quantity: 1, Status: domain.HoldStatusActive, ExpiresAt: now.Add(time.Minute)})
		lapsed := testutil.InsertHold(t, ctx, pool, domain.Hold{EventID: eventID, PoolID: poolID, Quantity: 1, Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute)})

		ok, err := repo.ExtendHold(ctx, live, now, 10)
		require.NoError(t, err)
		assert.True(t, ok)
		h, err := repo.GetHold(ctx, live)
		require.NoError(t, err)
		assert.Equal(t, now.Add(11*time.Minute), h.ExpiresAt)
		assert.Equal(t, 25, h.TimeoutMinutes)

		ok, err = repo.ExtendHold(ctx, lapsed, now, 10)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.ExpireHold(ctx, live, now, domain.ReleaseReasonExpiration)
		require.NoError(t, err)
		assert.False(t, ok, "not past expiration")

		ok, err = repo.ExpireHold(ctx, lapsed, now, domain.ReleaseReasonExpiration)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.CancelHold(ctx, lapsed, now, domain.ReleaseReasonCustomer)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.CancelHold(ctx, live, now, domain.ReleaseReasonCustomer)
		require.NoError(t, err)
		assert.True(t, ok)
		h, err = repo.GetHold(ctx, live)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, h.Status)
		require.NotNil(t, h.ReleaseReason)
		assert.Equal(t, domain.ReleaseReasonCustomer, *h.ReleaseReason)

		_, err = repo.GetHold(ctx, "00000000-0000-0000-0000-000000000009")
		assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	})
}

func TestHoldService_PostgresConcurrentCreates(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	eventID, poolID := testutil.InsertEventAndPool(t, ctx, pool, "Concert", 10, 5000)
	repo := NewHoldRepository(pool)
	svc := app.NewHoldService(repo, clock.NewSystem())

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateHold(ctx, app.CreateHoldInput{
				EventID:  eventID,
				PoolID:   poolID,
				Customer: domain.Customer{Name: "N", Email: "n@example.com", Phone: "1"},
				Quantity: 1,
			})
			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientInventory) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	reserved, err := repo.SumActiveHoldQuantity(ctx, poolID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 10, reserved)
}
