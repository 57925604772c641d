package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every sentinel below wraps exactly one of these, so callers can
// branch on the kind with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrNotOnSale             = errors.New("not on sale")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidState          = errors.New("invalid state")
	ErrExpired               = errors.New("expired")
	ErrValidation            = errors.New("validation error")
)

var (
	ErrEventNotFound      = fmt.Errorf("event %w", ErrNotFound)
	ErrTicketPoolNotFound = fmt.Errorf("ticket pool %w", ErrNotFound)
	ErrHoldNotFound       = fmt.Errorf("hold %w", ErrNotFound)
	ErrSaleNotFound       = fmt.Errorf("sale %w", ErrNotFound)

	ErrEventNotOnSale = fmt.Errorf("event is %w", ErrNotOnSale)
	ErrPoolInactive   = fmt.Errorf("ticket pool is inactive: %w", ErrNotOnSale)
	ErrOutsideWindow  = fmt.Errorf("outside sale window: %w", ErrNotOnSale)

	ErrHoldNotActive = fmt.Errorf("hold is not active: %w", ErrInvalidState)
	ErrHoldExpired   = fmt.Errorf("hold %w", ErrExpired)

	ErrInvalidQuantity       = fmt.Errorf("quantity must be positive: %w", ErrValidation)
	ErrQuantityOverLimit     = fmt.Errorf("quantity exceeds per-hold limit: %w", ErrValidation)
	ErrInvalidExtension      = fmt.Errorf("extension must be positive: %w", ErrValidation)
	ErrCustomerRequired      = fmt.Errorf("customer name, email and phone are required: %w", ErrValidation)
	ErrPaymentMethodRequired = fmt.Errorf("payment method required: %w", ErrValidation)
	ErrInvalidID             = fmt.Errorf("invalid id: %w", ErrValidation)
	ErrEventNameRequired     = fmt.Errorf("event name required: %w", ErrValidation)
	ErrPoolNameRequired      = fmt.Errorf("ticket pool name required: %w", ErrValidation)
	ErrInvalidStock          = fmt.Errorf("total stock must not be negative: %w", ErrValidation)
	ErrInvalidPrice          = fmt.Errorf("price must be positive: %w", ErrValidation)
	ErrInvalidEventStatus    = fmt.Errorf("unknown event status: %w", ErrValidation)
	ErrIdempotencyConflict   = fmt.Errorf("idempotency key reused with different quantity: %w", ErrValidation)
	ErrInvalidSaleWindow     = fmt.Errorf("sale window ends before it starts: %w", ErrValidation)
	ErrDuplicateCode         = errors.New("duplicate code")
	ErrPoolNameAlreadyExists = fmt.Errorf("ticket pool name already used for event: %w", ErrValidation)
)
