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

// HoldRepository serves the hold lifecycle, availability reads and the sweeper.
type HoldRepository struct {
	db
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{db: db{pool: pool}}
}

const poolSelect = `
SELECT p.id, p.event_id, p.name, p.price_cents, p.total_stock, p.max_per_hold, p.is_active,
       p.sale_start_at, p.sale_end_at, p.created_at, e.status, e.starts_at
FROM ticket_pools p
JOIN events e ON e.id = p.event_id`

func scanTicketPool(row pgx.Row) (domain.TicketPool, error) {
	var (
		p           domain.TicketPool
		eventStatus string
	)
	err := row.Scan(
		&p.ID, &p.EventID, &p.Name, &p.PriceCents, &p.TotalStock, &p.MaxPerHold, &p.IsActive,
		&p.SaleStartAt, &p.SaleEndAt, &p.CreatedAt, &eventStatus, &p.EventStartsAt,
	)
	if err != nil {
		return domain.TicketPool{}, err
	}
	p.EventStatus = domain.EventStatus(eventStatus)
	p.SaleStartAt = utcPtr(p.SaleStartAt)
	p.SaleEndAt = utcPtr(p.SaleEndAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.EventStartsAt = p.EventStartsAt.UTC()
	return p, nil
}

func (r *HoldRepository) GetTicketPool(ctx context.Context, poolID string) (domain.TicketPool, error) {
	return r.getTicketPool(ctx, poolSelect+` WHERE p.id = $1`, poolID)
}

// GetTicketPoolForUpdate locks only the pool row; the event row stays
// writable so admins can change its status during a sale.
func (r *HoldRepository) GetTicketPoolForUpdate(ctx context.Context, poolID string) (domain.TicketPool, error) {
	return r.getTicketPool(ctx, poolSelect+` WHERE p.id = $1 FOR UPDATE OF p`, poolID)
}

func (r *HoldRepository) getTicketPool(ctx context.Context, query, poolID string) (domain.TicketPool, error) {
	p, err := scanTicketPool(r.queryRow(ctx, query, poolID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.TicketPool{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TicketPool{}, domain.ErrTicketPoolNotFound
		}
		return domain.TicketPool{}, fmt.Errorf("get ticket pool: %w", err)
	}
	return p, nil
}

func (r *HoldRepository) SumActiveHoldQuantity(ctx context.Context, poolID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM holds
WHERE pool_id = $1 AND status = 'active' AND expires_at >= $2`

	var total int
	if err := r.queryRow(ctx, query, poolID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return total, nil
}

func (r *HoldRepository) SumCompletedSaleQuantity(ctx context.Context, poolID string) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM sales
WHERE pool_id = $1 AND status = 'completed'`

	var total int
	if err := r.queryRow(ctx, query, poolID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum completed sales: %w", err)
	}
	return total, nil
}

const holdColumns = `
id, code, event_id, pool_id, customer_name, customer_email, customer_phone,
quantity, unit_price_cents, total_cents, status, created_at, expires_at, timeout_minutes,
COALESCE(idempotency_key, ''), sale_id, converted_at, released_at, release_reason`

func scanHold(row pgx.Row) (domain.Hold, error) {
	var (
		h      domain.Hold
		status string
	)
	err := row.Scan(
		&h.ID, &h.Code, &h.EventID, &h.PoolID,
		&h.Customer.Name, &h.Customer.Email, &h.Customer.Phone,
		&h.Quantity, &h.UnitPriceCents, &h.TotalCents, &status,
		&h.CreatedAt, &h.ExpiresAt, &h.TimeoutMinutes,
		&h.IdempotencyKey, &h.SaleID, &h.ConvertedAt, &h.ReleasedAt, &h.ReleaseReason,
	)
	if err != nil {
		return domain.Hold{}, err
	}
	h.Status = domain.HoldStatus(status)
	h.CreatedAt = h.CreatedAt.UTC()
	h.ExpiresAt = h.ExpiresAt.UTC()
	h.ConvertedAt = utcPtr(h.ConvertedAt)
	h.ReleasedAt = utcPtr(h.ReleasedAt)
	return h, nil
}

func (r *HoldRepository) FindHoldByIdempotencyKey(ctx context.Context, poolID, key string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE pool_id = $1 AND idempotency_key = $2`

	h, err := scanHold(r.queryRow(ctx, query, poolID, key))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by idempotency key: %w", err)
	}
	return &h, nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (
	id, code, event_id, pool_id, customer_name, customer_email, customer_phone,
	quantity, unit_price_cents, total_cents, status, created_at, expires_at, timeout_minutes,
	idempotency_key
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''))`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.Code,
		hold.EventID,
		hold.PoolID,
		hold.Customer.Name,
		hold.Customer.Email,
		hold.Customer.Phone,
		hold.Quantity,
		hold.UnitPriceCents,
		hold.TotalCents,
		hold.Status,
		hold.CreatedAt,
		hold.ExpiresAt,
		hold.TimeoutMinutes,
		hold.IdempotencyKey,
	)
	if err != nil {
		switch {
		case uniqueViolationOn(err, constraintHoldCode):
			return domain.ErrDuplicateCode
		case uniqueViolationOn(err, constraintHoldIdempotency):
			return domain.ErrIdempotencyConflict
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		case isForeignKeyViolation(err):
			return domain.ErrTicketPoolNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	return getHold(ctx, r.db, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, holdID)
}

func (r *HoldRepository) GetHoldByCode(ctx context.Context, code string) (domain.Hold, error) {
	return getHold(ctx, r.db, `SELECT `+holdColumns+` FROM holds WHERE code = $1`, code)
}

func getHold(ctx context.Context, d db, query string, arg string) (domain.Hold, error) {
	h, err := scanHold(d.queryRow(ctx, query, arg))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepository) CancelHold(ctx context.Context, holdID string, at time.Time, reason string) (bool, error) {
	const stmt = `
UPDATE holds
SET status = 'cancelled', released_at = $2, release_reason = $3
WHERE id = $1 AND status = 'active'`

	return r.guardedUpdate(ctx, "cancel hold", stmt, holdID, at, reason)
}

func (r *HoldRepository) ExtendHold(ctx context.Context, holdID string, now time.Time, additionalMinutes int) (bool, error) {
	const stmt = `
UPDATE holds
SET expires_at = expires_at + make_interval(mins => $3),
    timeout_minutes = timeout_minutes + $3
WHERE id = $1 AND status = 'active' AND expires_at >= $2`

	return r.guardedUpdate(ctx, "extend hold", stmt, holdID, now, additionalMinutes)
}

func (r *HoldRepository) ListActiveExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	query := `SELECT ` + holdColumns + `
FROM holds
WHERE status = 'active' AND expires_at < $1
ORDER BY expires_at ASC`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate holds: %w", rows.Err())
	}
	return holds, nil
}

func (r *HoldRepository) ExpireHold(ctx context.Context, holdID string, now time.Time, reason string) (bool, error) {
	const stmt = `
UPDATE holds
SET status = 'expired', released_at = $2, release_reason = $3
WHERE id = $1 AND status = 'active' AND expires_at < $2`

	return r.guardedUpdate(ctx, "expire hold", stmt, holdID, now, reason)
}

func (r *HoldRepository) guardedUpdate(ctx context.Context, op, stmt string, args ...any) (bool, error) {
	tag, err := r.exec(ctx, stmt, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() == 1, nil
}
