package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type AdminRepository struct {
	db
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db{pool: pool}}
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, starts_at, status, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.exec(ctx, stmt, event.ID, event.Name, event.StartsAt, event.Status, event.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `
SELECT id, name, starts_at, status, created_at
FROM events
ORDER BY created_at ASC`
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			event  domain.Event
			status string
		)
		if err := rows.Scan(&event.ID, &event.Name, &event.StartsAt, &status, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Status = domain.EventStatus(status)
		event.StartsAt = event.StartsAt.UTC()
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *AdminRepository) SetEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error {
	tag, err := r.exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, eventID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *AdminRepository) CreateTicketPool(ctx context.Context, pool domain.TicketPool) error {
	const stmt = `
INSERT INTO ticket_pools (
	id, event_id, name, price_cents, total_stock, max_per_hold, is_active,
	sale_start_at, sale_end_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.exec(ctx, stmt,
		pool.ID,
		pool.EventID,
		pool.Name,
		pool.PriceCents,
		pool.TotalStock,
		pool.MaxPerHold,
		pool.IsActive,
		pool.SaleStartAt,
		pool.SaleEndAt,
		pool.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if uniqueViolationOn(err, constraintPoolName) {
			return domain.ErrPoolNameAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create ticket pool: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListTicketPoolsByEvent(ctx context.Context, eventID string) ([]domain.TicketPool, error) {
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`
	var exists bool
	if err := r.queryRow(ctx, existsQuery, eventID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, domain.ErrEventNotFound
	}

	rows, err := r.query(ctx, poolSelect+` WHERE p.event_id = $1 ORDER BY p.created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list ticket pools: %w", err)
	}
	defer rows.Close()

	var pools []domain.TicketPool
	for rows.Next() {
		pool, err := scanTicketPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket pool: %w", err)
		}
		pools = append(pools, pool)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ticket pools: %w", rows.Err())
	}
	return pools, nil
}
