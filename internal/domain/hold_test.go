package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHold_LogicalState(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	active := Hold{Status: HoldStatusActive, ExpiresAt: now}
	assert.True(t, active.IsLogicallyActive(now), "expiration instant is still inside the window")
	assert.False(t, active.IsLogicallyExpired(now))

	lagging := Hold{Status: HoldStatusActive, ExpiresAt: now.Add(-time.Second)}
	assert.False(t, lagging.IsLogicallyActive(now))
	assert.True(t, lagging.IsLogicallyExpired(now))

	cancelled := Hold{Status: HoldStatusCancelled, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, cancelled.IsLogicallyActive(now))
	assert.False(t, cancelled.IsLogicallyExpired(now))
}

func TestTicketPool_CheckOnSale(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	base := TicketPool{EventStatus: EventStatusOnSale, IsActive: true}

	assert.NoError(t, base.CheckOnSale(now))

	scheduled := base
	scheduled.EventStatus = EventStatusScheduled
	assert.ErrorIs(t, scheduled.CheckOnSale(now), ErrNotOnSale)

	inactive := base
	inactive.IsActive = false
	assert.ErrorIs(t, inactive.CheckOnSale(now), ErrPoolInactive)

	notStarted := base
	notStarted.SaleStartAt = &after
	assert.ErrorIs(t, notStarted.CheckOnSale(now), ErrOutsideWindow)

	ended := base
	ended.SaleEndAt = &before
	assert.True(t, errors.Is(ended.CheckOnSale(now), ErrNotOnSale))

	inWindow := base
	inWindow.SaleStartAt = &before
	inWindow.SaleEndAt = &after
	assert.NoError(t, inWindow.CheckOnSale(now))
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrHoldNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrTicketPoolNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrHoldNotActive, ErrInvalidState)
	assert.ErrorIs(t, ErrHoldExpired, ErrExpired)
	assert.ErrorIs(t, ErrInvalidQuantity, ErrValidation)
	assert.NotErrorIs(t, ErrHoldExpired, ErrInvalidState)
}
