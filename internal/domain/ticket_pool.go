package domain

import "time"

const DefaultMaxPerHold = 10

// TicketPool is the sellable stock of one ticket type within one event.
// TotalStock is a static ceiling: holds and sales never decrement it.
type TicketPool struct {
	ID          string
	EventID     string
	Name        string
	PriceCents  int64
	TotalStock  int
	MaxPerHold  int
	IsActive    bool
	SaleStartAt *time.Time
	SaleEndAt   *time.Time
	CreatedAt   time.Time

	// Populated from the parent event when the pool is loaded for a hold.
	EventStatus   EventStatus
	EventStartsAt time.Time
}

// CheckOnSale returns a NotOnSale error unless the parent event is on sale,
// the pool is active and now falls inside the optional sale window.
func (p TicketPool) CheckOnSale(now time.Time) error {
	if p.EventStatus != EventStatusOnSale {
		return ErrEventNotOnSale
	}
	if !p.IsActive {
		return ErrPoolInactive
	}
	if p.SaleStartAt != nil && now.Before(*p.SaleStartAt) {
		return ErrOutsideWindow
	}
	if p.SaleEndAt != nil && now.After(*p.SaleEndAt) {
		return ErrOutsideWindow
	}
	return nil
}
