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

type SaleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	CreateSale(ctx context.Context, sale domain.Sale) error
	// MarkHoldConverted links an active hold to its sale. It returns
	// domain.ErrHoldNotActive if the hold is no longer active.
	MarkHoldConverted(ctx context.Context, holdID, saleID string, at time.Time) error
	GetSale(ctx context.Context, saleID string) (domain.Sale, error)
	GetSaleByConfirmationCode(ctx context.Context, code string) (domain.Sale, error)
}

// SaleService converts holds into completed sales.
type SaleService struct {
	repo  SaleRepository
	clock clock.Clock
	settings
}

func NewSaleService(repo SaleRepository, clk clock.Clock, opts ...Option) *SaleService {
	return &SaleService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

type ConvertHoldInput struct {
	HoldID               string
	PaymentMethod        string
	PaymentTransactionID string
	Notes                string
}

// ConvertHold turns a logically active hold into a completed sale. The sale
// insert and the hold update commit together.
func (s *SaleService) ConvertHold(ctx context.Context, in ConvertHoldInput) (domain.Sale, error) {
	ctx, span := tracer.Start(ctx, "sale.convert_hold")
	defer span.End()
	span.SetAttributes(attribute.String("hold.id", in.HoldID))

	if in.HoldID == "" {
		return domain.Sale{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return domain.Sale{}, domain.ErrPaymentMethodRequired
	}

	var (
		sale domain.Sale
		err  error
	)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		sale, err = s.convert(ctx, in)
		if !errors.Is(err, domain.ErrDuplicateCode) {
			break
		}
		s.logger.Warn("confirmation code collision, retrying", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Sale{}, err
	}

	s.logger.Info("hold converted to sale",
		zap.String("hold_id", sale.HoldID),
		zap.String("sale_id", sale.ID),
		zap.Int64("final_cents", sale.FinalCents),
	)
	s.publish(ctx, events.SaleEvent(sale))
	span.SetAttributes(attribute.String("sale.id", sale.ID))
	return sale, nil
}

func (s *SaleService) convert(ctx context.Context, in ConvertHoldInput) (domain.Sale, error) {
	now := s.clock.Now()
	var result domain.Sale

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusActive {
			return domain.ErrHoldNotActive
		}
		// Stored status can lag the clock; the expiration time decides.
		if now.After(hold.ExpiresAt) {
			return domain.ErrHoldExpired
		}

		charges := domain.ComputeCharges(hold.TotalCents, s.serviceFeeBP, s.taxBP)
		sale := domain.Sale{
			ID:                   newID(),
			HoldID:               hold.ID,
			EventID:              hold.EventID,
			PoolID:               hold.PoolID,
			Customer:             hold.Customer,
			Quantity:             hold.Quantity,
			UnitPriceCents:       hold.UnitPriceCents,
			TotalCents:           charges.TotalCents,
			ServiceFeeCents:      charges.ServiceFeeCents,
			TaxCents:             charges.TaxCents,
			FinalCents:           charges.FinalCents,
			Status:               domain.SaleStatusCompleted,
			PaymentMethod:        in.PaymentMethod,
			PaymentTransactionID: in.PaymentTransactionID,
			ConfirmationCode:     newConfirmationCode(),
			Notes:                in.Notes,
			SoldAt:               now,
			PaidAt:               now,
		}

		if err := s.repo.CreateSale(txCtx, sale); err != nil {
			return err
		}
		if err := s.repo.MarkHoldConverted(txCtx, hold.ID, sale.ID, now); err != nil {
			return err
		}

		result = sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return result, nil
}

func (s *SaleService) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	if saleID == "" {
		return domain.Sale{}, domain.ErrInvalidID
	}
	return s.repo.GetSale(ctx, saleID)
}

func (s *SaleService) GetSaleByConfirmationCode(ctx context.Context, code string) (domain.Sale, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return s.repo.GetSaleByConfirmationCode(ctx, code)
}
