package domain

import "time"

type SaleStatus string

// Completed is the only status produced here; payment and refund states are
// owned downstream.
const SaleStatusCompleted SaleStatus = "completed"

// Sale is an immutable record of a converted hold. Customer and price fields
// are copied from the hold so the sale stands on its own.
type Sale struct {
	ID                   string
	HoldID               string
	EventID              string
	PoolID               string
	Customer             Customer
	Quantity             int
	UnitPriceCents       int64
	TotalCents           int64
	ServiceFeeCents      int64
	TaxCents             int64
	FinalCents           int64
	Status               SaleStatus
	PaymentMethod        string
	PaymentTransactionID string
	ConfirmationCode     string
	Notes                string
	SoldAt               time.Time
	PaidAt               time.Time
}
