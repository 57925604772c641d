package app

import (
	"context"
	"strings"
	"time"

	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

// AdminRepository is the event/ticket-pool store the engine reads from.
type AdminRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	SetEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error
	CreateTicketPool(ctx context.Context, pool domain.TicketPool) error
	ListTicketPoolsByEvent(ctx context.Context, eventID string) ([]domain.TicketPool, error)
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name     string
	StartsAt *time.Time
	Status   domain.EventStatus
}

func (s *AdminService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	status := in.Status
	if status == "" {
		status = domain.EventStatusScheduled
	}
	if !status.Valid() {
		return domain.Event{}, domain.ErrInvalidEventStatus
	}

	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = in.StartsAt.UTC()
	}

	event := domain.Event{
		ID:        newID(),
		Name:      in.Name,
		StartsAt:  startsAt,
		Status:    status,
		CreatedAt: now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *AdminService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

// SetEventStatus moves an event between scheduled, on_sale and the closed
// states. Holds can only be created while it is on_sale.
func (s *AdminService) SetEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error {
	if eventID == "" {
		return domain.ErrInvalidID
	}
	if !status.Valid() {
		return domain.ErrInvalidEventStatus
	}
	return s.repo.SetEventStatus(ctx, eventID, status)
}

type CreateTicketPoolInput struct {
	EventID     string
	Name        string
	PriceCents  int64
	TotalStock  int
	MaxPerHold  int
	Inactive    bool
	SaleStartAt *time.Time
	SaleEndAt   *time.Time
}

func (s *AdminService) CreateTicketPool(ctx context.Context, in CreateTicketPoolInput) (domain.TicketPool, error) {
	if in.EventID == "" {
		return domain.TicketPool{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.TicketPool{}, domain.ErrPoolNameRequired
	}
	if in.TotalStock < 0 {
		return domain.TicketPool{}, domain.ErrInvalidStock
	}
	if in.PriceCents <= 0 {
		return domain.TicketPool{}, domain.ErrInvalidPrice
	}
	if in.SaleStartAt != nil && in.SaleEndAt != nil && in.SaleEndAt.Before(*in.SaleStartAt) {
		return domain.TicketPool{}, domain.ErrInvalidSaleWindow
	}
	maxPerHold := in.MaxPerHold
	if maxPerHold <= 0 {
		maxPerHold = domain.DefaultMaxPerHold
	}

	pool := domain.TicketPool{
		ID:          newID(),
		EventID:     in.EventID,
		Name:        in.Name,
		PriceCents:  in.PriceCents,
		TotalStock:  in.TotalStock,
		MaxPerHold:  maxPerHold,
		IsActive:    !in.Inactive,
		SaleStartAt: in.SaleStartAt,
		SaleEndAt:   in.SaleEndAt,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.CreateTicketPool(ctx, pool); err != nil {
		return domain.TicketPool{}, err
	}
	return pool, nil
}

func (s *AdminService) ListTicketPools(ctx context.Context, eventID string) ([]domain.TicketPool, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTicketPoolsByEvent(ctx, eventID)
}
