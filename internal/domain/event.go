package domain

import "time"

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusOnSale    EventStatus = "on_sale"
	EventStatusSoldOut   EventStatus = "sold_out"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusScheduled, EventStatusOnSale, EventStatusSoldOut, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// Event represents a ticketed event. Ticket pools reference it by ID.
type Event struct {
	ID        string
	Name      string
	StartsAt  time.Time
	Status    EventStatus
	CreatedAt time.Time
}
