// Package events describes the hold and sale lifecycle notifications emitted
// after a state change commits, and the publishers that deliver them.
package events

import (
	"context"
	"time"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type Type string

const (
	TypeHoldCreated   Type = "hold.created"
	TypeHoldCancelled Type = "hold.cancelled"
	TypeHoldExtended  Type = "hold.extended"
	TypeHoldExpired   Type = "hold.expired"
	TypeSaleCompleted Type = "sale.completed"
)

// Event is one lifecycle notification. Key is the ticket pool ID so that
// all notifications for a pool land on the same partition in order.
type Event struct {
	Type       Type      `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher delivers events. Publishing is best effort: callers log failures
// and never roll back a committed change because of them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type HoldData struct {
	HoldID     string     `json:"hold_id"`
	Code       string     `json:"code"`
	EventID    string     `json:"event_id"`
	PoolID     string     `json:"pool_id"`
	Quantity   int        `json:"quantity"`
	TotalCents int64      `json:"total_cents"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type SaleData struct {
	SaleID           string `json:"sale_id"`
	HoldID           string `json:"hold_id"`
	EventID          string `json:"event_id"`
	PoolID           string `json:"pool_id"`
	Quantity         int    `json:"quantity"`
	FinalCents       int64  `json:"final_cents"`
	ConfirmationCode string `json:"confirmation_code"`
	CustomerEmail    string `json:"customer_email"`
}

// HoldEvent builds a hold notification of type t.
func HoldEvent(t Type, h domain.Hold, reason string, at time.Time) Event {
	return Event{
		Type:       t,
		Key:        h.PoolID,
		OccurredAt: at,
		Data: HoldData{
			HoldID:     h.ID,
			Code:       h.Code,
			EventID:    h.EventID,
			PoolID:     h.PoolID,
			Quantity:   h.Quantity,
			TotalCents: h.TotalCents,
			Status:     string(h.Status),
			ExpiresAt:  h.ExpiresAt,
			ReleasedAt: h.ReleasedAt,
			Reason:     reason,
		},
	}
}

func SaleEvent(s domain.Sale) Event {
	return Event{
		Type:       TypeSaleCompleted,
		Key:        s.PoolID,
		OccurredAt: s.SoldAt,
		Data: SaleData{
			SaleID:           s.ID,
			HoldID:           s.HoldID,
			EventID:          s.EventID,
			PoolID:           s.PoolID,
			Quantity:         s.Quantity,
			FinalCents:       s.FinalCents,
			ConfirmationCode: s.ConfirmationCode,
			CustomerEmail:    s.Customer.Email,
		},
	}
}
