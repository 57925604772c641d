package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive          HoldStatus = "active"
	HoldStatusExpired         HoldStatus = "expired"
	HoldStatusCancelled       HoldStatus = "cancelled"
	HoldStatusConvertedToSale HoldStatus = "converted_to_sale"
)

// MaxExtensionMinutes caps a single extension of a hold.
const MaxExtensionMinutes = 24 * 60

const (
	ReleaseReasonCustomer   = "Cancelled by customer"
	ReleaseReasonExpiration = "Automatic expiration"
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

// Hold represents reserved inventory for a limited time.
//
// Status is what is stored; whether the hold still reserves stock is
// IsLogicallyActive, which also looks at the clock. The sweeper converges the
// two but is not required for correctness.
type Hold struct {
	ID             string
	Code           string
	EventID        string
	PoolID         string
	Customer       Customer
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
	Status         HoldStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
	TimeoutMinutes int
	IdempotencyKey string
	SaleID         *string
	ConvertedAt    *time.Time
	ReleasedAt     *time.Time
	ReleaseReason  *string
}

// IsLogicallyActive reports whether the hold still owns its quantity at now.
func (h Hold) IsLogicallyActive(now time.Time) bool {
	return h.Status == HoldStatusActive && !now.After(h.ExpiresAt)
}

// IsLogicallyExpired reports an active hold whose window has passed but which
// the sweeper has not released yet.
func (h Hold) IsLogicallyExpired(now time.Time) bool {
	return h.Status == HoldStatusActive && now.After(h.ExpiresAt)
}
