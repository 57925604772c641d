package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
)

type HoldRepository interface {
	StockCounter
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// GetTicketPoolForUpdate locks the pool row until the transaction ends,
	// serialising concurrent creates against the same pool.
	GetTicketPoolForUpdate(ctx context.Context, poolID string) (domain.TicketPool, error)
	FindHoldByIdempotencyKey(ctx context.Context, poolID, key string) (*domain.Hold, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	GetHoldByCode(ctx context.Context, code string) (domain.Hold, error)
	// CancelHold releases the hold only if it is still active. It reports
	// whether a row changed.
	CancelHold(ctx context.Context, holdID string, at time.Time, reason string) (bool, error)
	// ExtendHold pushes expires_at forward only if the hold is active and
	// not past its expiration at now. It reports whether a row changed.
	ExtendHold(ctx context.Context, holdID string, now time.Time, additionalMinutes int) (bool, error)
}

type HoldService struct {
	repo  HoldRepository
	clock clock.Clock
	settings
}

func NewHoldService(repo HoldRepository, clk clock.Clock, opts ...Option) *HoldService {
	return &HoldService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

type CreateHoldInput struct {
	EventID        string
	PoolID         string
	Customer       domain.Customer
	Quantity       int
	IdempotencyKey string
}

func (in CreateHoldInput) validate() error {
	if in.EventID == "" || in.PoolID == "" {
		return domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if strings.TrimSpace(in.Customer.Name) == "" ||
		strings.TrimSpace(in.Customer.Email) == "" ||
		strings.TrimSpace(in.Customer.Phone) == "" {
		return domain.ErrCustomerRequired
	}
	return nil
}

// CreateHold reserves quantity tickets of a pool for the configured TTL.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("pool.id", in.PoolID),
		attribute.Int("hold.quantity", in.Quantity),
	)

	if err := in.validate(); err != nil {
		return domain.Hold{}, err
	}

	var (
		result  domain.Hold
		created bool
		err     error
	)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		result, created, err = s.createHold(ctx, in)
		if !errors.Is(err, domain.ErrDuplicateCode) {
			break
		}
		s.logger.Warn("hold code collision, retrying", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Hold{}, err
	}

	if created {
		s.logger.Info("hold created",
			zap.String("hold_id", result.ID),
			zap.String("pool_id", result.PoolID),
			zap.Int("quantity", result.Quantity),
			zap.Time("expires_at", result.ExpiresAt),
		)
		s.publish(ctx, events.HoldEvent(events.TypeHoldCreated, result, "", result.CreatedAt))
	}
	span.SetAttributes(attribute.String("hold.id", result.ID))
	return result, nil
}

func (s *HoldService) createHold(ctx context.Context, in CreateHoldInput) (domain.Hold, bool, error) {
	now := s.clock.Now()
	var (
		result  domain.Hold
		created bool
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pool, err := s.repo.GetTicketPoolForUpdate(txCtx, in.PoolID)
		if err != nil {
			return err
		}
		if pool.EventID != in.EventID {
			return domain.ErrTicketPoolNotFound
		}

		if in.IdempotencyKey != "" {
			existing, err := s.repo.FindHoldByIdempotencyKey(txCtx, in.PoolID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.Quantity != in.Quantity {
					return domain.ErrIdempotencyConflict
				}
				result = *existing
				return nil
			}
		}

		if err := pool.CheckOnSale(now); err != nil {
			return err
		}
		if pool.MaxPerHold > 0 && in.Quantity > pool.MaxPerHold {
			return domain.ErrQuantityOverLimit
		}

		availability, err := countAvailability(txCtx, s.repo, pool, now)
		if err != nil {
			return err
		}
		if in.Quantity > availability.Available {
			return domain.ErrInsufficientInventory
		}

		// The unit price is frozen here; conversion never re-reads the pool.
		hold := domain.Hold{
			ID:             newID(),
			Code:           newHoldCode(),
			EventID:        pool.EventID,
			PoolID:         pool.ID,
			Customer:       in.Customer,
			Quantity:       in.Quantity,
			UnitPriceCents: pool.PriceCents,
			TotalCents:     pool.PriceCents * int64(in.Quantity),
			Status:         domain.HoldStatusActive,
			CreatedAt:      now,
			ExpiresAt:      now.Add(s.holdTTL),
			TimeoutMinutes: int(s.holdTTL / time.Minute),
			IdempotencyKey: in.IdempotencyKey,
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		created = true
		return nil
	})
	if err != nil {
		return domain.Hold{}, false, err
	}
	return result, created, nil
}

func (s *HoldService) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	if holdID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	return s.repo.GetHold(ctx, holdID)
}

// GetHoldByCode looks a hold up by its customer-facing code.
func (s *HoldService) GetHoldByCode(ctx context.Context, code string) (domain.Hold, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return s.repo.GetHoldByCode(ctx, code)
}

// CancelHold releases an active hold. It returns false, not an error, when the
// hold does not exist or is already terminal.
func (s *HoldService) CancelHold(ctx context.Context, holdID, reason string) (bool, error) {
	ctx, span := tracer.Start(ctx, "hold.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("hold.id", holdID))

	if reason == "" {
		reason = domain.ReleaseReasonCustomer
	}
	now := s.clock.Now()

	ok, err := s.repo.CancelHold(ctx, holdID, now, reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return false, nil
		}
		span.RecordError(err)
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.logger.Info("hold cancelled", zap.String("hold_id", holdID), zap.String("reason", reason))
	s.publishReleased(ctx, events.TypeHoldCancelled, holdID, reason, now)
	return true, nil
}

// ExtendHold pushes an active hold's expiration forward without re-checking
// inventory. A hold already past its expiration is not extended, and neither
// is one asked for more than domain.MaxExtensionMinutes at once.
func (s *HoldService) ExtendHold(ctx context.Context, holdID string, additionalMinutes int) (bool, error) {
	ctx, span := tracer.Start(ctx, "hold.extend")
	defer span.End()
	span.SetAttributes(
		attribute.String("hold.id", holdID),
		attribute.Int("hold.additional_minutes", additionalMinutes),
	)

	if additionalMinutes <= 0 || additionalMinutes > domain.MaxExtensionMinutes {
		return false, nil
	}
	now := s.clock.Now()

	ok, err := s.repo.ExtendHold(ctx, holdID, now, additionalMinutes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return false, nil
		}
		span.RecordError(err)
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.logger.Info("hold extended", zap.String("hold_id", holdID), zap.Int("minutes", additionalMinutes))
	if hold, err := s.repo.GetHold(ctx, holdID); err == nil {
		s.publish(ctx, events.HoldEvent(events.TypeHoldExtended, hold, "", now))
	}
	return true, nil
}

// IsHoldValid reports whether the hold exists, is active and has not passed
// its expiration, regardless of whether the sweeper has run.
func (s *HoldService) IsHoldValid(ctx context.Context, holdID string) (bool, error) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return false, nil
		}
		return false, err
	}
	return hold.IsLogicallyActive(s.clock.Now()), nil
}

func (s *HoldService) publishReleased(ctx context.Context, t events.Type, holdID, reason string, at time.Time) {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		s.logger.Warn("load released hold for event", zap.String("hold_id", holdID), zap.Error(err))
		return
	}
	s.publish(ctx, events.HoldEvent(t, hold, reason, at))
}
