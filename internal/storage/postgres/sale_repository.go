package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type SaleRepository struct {
	db
}

func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{db: db{pool: pool}}
}

func (r *SaleRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return getHold(ctx, r.db, `SELECT `+holdColumns+` FROM holds WHERE id = $1 FOR UPDATE`, holdID)
}

func (r *SaleRepository) CreateSale(ctx context.Context, sale domain.Sale) error {
	const stmt = `
INSERT INTO sales (
	id, hold_id, event_id, pool_id, customer_name, customer_email, customer_phone,
	quantity, unit_price_cents, total_cents, service_fee_cents, tax_cents, final_cents,
	status, payment_method, payment_transaction_id, confirmation_code, notes, sold_at, paid_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.exec(ctx, stmt,
		sale.ID,
		sale.HoldID,
		sale.EventID,
		sale.PoolID,
		sale.Customer.Name,
		sale.Customer.Email,
		sale.Customer.Phone,
		sale.Quantity,
		sale.UnitPriceCents,
		sale.TotalCents,
		sale.ServiceFeeCents,
		sale.TaxCents,
		sale.FinalCents,
		sale.Status,
		sale.PaymentMethod,
		sale.PaymentTransactionID,
		sale.ConfirmationCode,
		sale.Notes,
		sale.SoldAt,
		sale.PaidAt,
	)
	if err != nil {
		switch {
		case uniqueViolationOn(err, constraintSaleConfirmation):
			return domain.ErrDuplicateCode
		case uniqueViolationOn(err, constraintSaleHold):
			return domain.ErrHoldNotActive
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		case isForeignKeyViolation(err):
			return domain.ErrHoldNotFound
		}
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

func (r *SaleRepository) MarkHoldConverted(ctx context.Context, holdID, saleID string, at time.Time) error {
	const stmt = `
UPDATE holds
SET status = 'converted_to_sale', sale_id = $2, converted_at = $3
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, holdID, saleID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark hold converted: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrHoldNotActive
	}
	return nil
}

const saleColumns = `
id, COALESCE(hold_id::text, ''), event_id, pool_id, customer_name, customer_email, customer_phone,
quantity, unit_price_cents, total_cents, service_fee_cents, tax_cents, final_cents,
status, payment_method, payment_transaction_id, confirmation_code, notes, sold_at, paid_at`

func (r *SaleRepository) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	return r.getSale(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, saleID)
}

func (r *SaleRepository) GetSaleByConfirmationCode(ctx context.Context, code string) (domain.Sale, error) {
	return r.getSale(ctx, `SELECT `+saleColumns+` FROM sales WHERE confirmation_code = $1`, code)
}

func (r *SaleRepository) getSale(ctx context.Context, query, arg string) (domain.Sale, error) {
	var (
		s      domain.Sale
		status string
	)
	err := r.queryRow(ctx, query, arg).Scan(
		&s.ID, &s.HoldID, &s.EventID, &s.PoolID,
		&s.Customer.Name, &s.Customer.Email, &s.Customer.Phone,
		&s.Quantity, &s.UnitPriceCents, &s.TotalCents, &s.ServiceFeeCents, &s.TaxCents, &s.FinalCents,
		&status, &s.PaymentMethod, &s.PaymentTransactionID, &s.ConfirmationCode, &s.Notes,
		&s.SoldAt, &s.PaidAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Sale{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("get sale: %w", err)
	}
	s.Status = domain.SaleStatus(status)
	s.SoldAt = s.SoldAt.UTC()
	s.PaidAt = s.PaidAt.UTC()
	return s, nil
}
