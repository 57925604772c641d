// Package memory is an in-process implementation of every repository the app
// layer needs. Transactions hold a store-wide write lock, so a check-then-write
// inside WithTx cannot interleave with another transaction. A failed
// transaction is rolled back from an undo journal.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	events map[string]domain.Event
	pools  map[string]domain.TicketPool
	holds  map[string]domain.Hold
	sales  map[string]domain.Sale

	holdCodes map[string]string
	saleCodes map[string]string
}

func New() *Store {
	return &Store{
		events:    make(map[string]domain.Event),
		pools:     make(map[string]domain.TicketPool),
		holds:     make(map[string]domain.Hold),
		sales:     make(map[string]domain.Sale),
		holdCodes: make(map[string]string),
		saleCodes: make(map[string]string),
	}
}

type txKey struct{}

type tx struct {
	undo []func()
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// WithTx runs fn with exclusive access to the store. Nested calls join the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{}
	txCtx := context.WithValue(ctx, txKey{}, t)
	err := fn(txCtx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) read(ctx context.Context, fn func()) {
	if txFromContext(ctx) != nil {
		fn()
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write runs fn under the write lock, or inside the caller's transaction.
// fn records how to revert each change through the journal it is given.
func (s *Store) write(ctx context.Context, fn func(journal func(undo func())) error) error {
	if t := txFromContext(ctx); t != nil {
		return fn(func(undo func()) { t.undo = append(t.undo, undo) })
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var undo []func()
	err := fn(func(u func()) { undo = append(undo, u) })
	if err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	return err
}

func (s *Store) putHold(journal func(func()), h domain.Hold) {
	prev, existed := s.holds[h.ID]
	s.holds[h.ID] = h
	journal(func() {
		if existed {
			s.holds[h.ID] = prev
		} else {
			delete(s.holds, h.ID)
		}
	})
}

// Events and pools.

func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	return s.write(ctx, func(journal func(func())) error {
		s.events[event.ID] = event
		journal(func() { delete(s.events, event.ID) })
		return nil
	})
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var out []domain.Event
	s.read(ctx, func() {
		for _, e := range s.events {
			out = append(out, e)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error {
	return s.write(ctx, func(journal func(func())) error {
		event, ok := s.events[eventID]
		if !ok {
			return domain.ErrEventNotFound
		}
		prev := event.Status
		event.Status = status
		s.events[eventID] = event
		journal(func() {
			event.Status = prev
			s.events[eventID] = event
		})
		return nil
	})
}

func (s *Store) CreateTicketPool(ctx context.Context, pool domain.TicketPool) error {
	return s.write(ctx, func(journal func(func())) error {
		if _, ok := s.events[pool.EventID]; !ok {
			return domain.ErrEventNotFound
		}
		for _, p := range s.pools {
			if p.EventID == pool.EventID && p.Name == pool.Name {
				return domain.ErrPoolNameAlreadyExists
			}
		}
		s.pools[pool.ID] = pool
		journal(func() { delete(s.pools, pool.ID) })
		return nil
	})
}

func (s *Store) ListTicketPoolsByEvent(ctx context.Context, eventID string) ([]domain.TicketPool, error) {
	var (
		out    []domain.TicketPool
		exists bool
	)
	s.read(ctx, func() {
		_, exists = s.events[eventID]
		for _, p := range s.pools {
			if p.EventID == eventID {
				out = append(out, s.withEvent(p))
			}
		}
	})
	if !exists {
		return nil, domain.ErrEventNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetTicketPool(ctx context.Context, poolID string) (domain.TicketPool, error) {
	var (
		pool domain.TicketPool
		ok   bool
	)
	s.read(ctx, func() {
		pool, ok = s.pools[poolID]
		if ok {
			pool = s.withEvent(pool)
		}
	})
	if !ok {
		return domain.TicketPool{}, domain.ErrTicketPoolNotFound
	}
	return pool, nil
}

// GetTicketPoolForUpdate is GetTicketPool; the transaction already holds the
// store-wide lock.
func (s *Store) GetTicketPoolForUpdate(ctx context.Context, poolID string) (domain.TicketPool, error) {
	return s.GetTicketPool(ctx, poolID)
}

func (s *Store) withEvent(p domain.TicketPool) domain.TicketPool {
	if e, ok := s.events[p.EventID]; ok {
		p.EventStatus = e.Status
		p.EventStartsAt = e.StartsAt
	}
	return p
}

// Inventory sums.

func (s *Store) SumActiveHoldQuantity(ctx context.Context, poolID string, now time.Time) (int, error) {
	total := 0
	s.read(ctx, func() {
		for _, h := range s.holds {
			if h.PoolID == poolID && h.IsLogicallyActive(now) {
				total += h.Quantity
			}
		}
	})
	return total, nil
}

func (s *Store) SumCompletedSaleQuantity(ctx context.Context, poolID string) (int, error) {
	total := 0
	s.read(ctx, func() {
		for _, sale := range s.sales {
			if sale.PoolID == poolID && sale.Status == domain.SaleStatusCompleted {
				total += sale.Quantity
			}
		}
	})
	return total, nil
}

// Holds.

func (s *Store) CreateHold(ctx context.Context, hold domain.Hold) error {
	return s.write(ctx, func(journal func(func())) error {
		if _, ok := s.pools[hold.PoolID]; !ok {
			return domain.ErrTicketPoolNotFound
		}
		if _, ok := s.holdCodes[hold.Code]; ok {
			return domain.ErrDuplicateCode
		}
		if hold.IdempotencyKey != "" {
			for _, h := range s.holds {
				if h.PoolID == hold.PoolID && h.IdempotencyKey == hold.IdempotencyKey {
					return domain.ErrIdempotencyConflict
				}
			}
		}
		s.putHold(journal, hold)
		s.holdCodes[hold.Code] = hold.ID
		journal(func() { delete(s.holdCodes, hold.Code) })
		return nil
	})
}

func (s *Store) FindHoldByIdempotencyKey(ctx context.Context, poolID, key string) (*domain.Hold, error) {
	var found *domain.Hold
	s.read(ctx, func() {
		for _, h := range s.holds {
			if h.PoolID == poolID && h.IdempotencyKey == key {
				h := h
				found = &h
				return
			}
		}
	})
	return found, nil
}

func (s *Store) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	var (
		hold domain.Hold
		ok   bool
	)
	s.read(ctx, func() { hold, ok = s.holds[holdID] })
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}

func (s *Store) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.GetHold(ctx, holdID)
}

func (s *Store) GetHoldByCode(ctx context.Context, code string) (domain.Hold, error) {
	var (
		hold domain.Hold
		ok   bool
	)
	s.read(ctx, func() {
		var id string
		if id, ok = s.holdCodes[code]; ok {
			hold, ok = s.holds[id]
		}
	})
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}

func (s *Store) CancelHold(ctx context.Context, holdID string, at time.Time, reason string) (bool, error) {
	changed := false
	err := s.write(ctx, func(journal func(func())) error {
		h, ok := s.holds[holdID]
		if !ok || h.Status != domain.HoldStatusActive {
			return nil
		}
		h.Status = domain.HoldStatusCancelled
		h.ReleasedAt = &at
		h.ReleaseReason = &reason
		s.putHold(journal, h)
		changed = true
		return nil
	})
	return changed, err
}

func (s *Store) ExtendHold(ctx context.Context, holdID string, now time.Time, additionalMinutes int) (bool, error) {
	changed := false
	err := s.write(ctx, func(journal func(func())) error {
		h, ok := s.holds[holdID]
		if !ok || !h.IsLogicallyActive(now) {
			return nil
		}
		h.ExpiresAt = h.ExpiresAt.Add(time.Duration(additionalMinutes) * time.Minute)
		h.TimeoutMinutes += additionalMinutes
		s.putHold(journal, h)
		changed = true
		return nil
	})
	return changed, err
}

func (s *Store) MarkHoldConverted(ctx context.Context, holdID, saleID string, at time.Time) error {
	return s.write(ctx, func(journal func(func())) error {
		h, ok := s.holds[holdID]
		if !ok {
			return domain.ErrHoldNotFound
		}
		if h.Status != domain.HoldStatusActive {
			return domain.ErrHoldNotActive
		}
		h.Status = domain.HoldStatusConvertedToSale
		h.SaleID = &saleID
		h.ConvertedAt = &at
		s.putHold(journal, h)
		return nil
	})
}

func (s *Store) ListActiveExpiredHolds(ctx context.Context, now time.Time) ([]domain.Hold, error) {
	var out []domain.Hold
	s.read(ctx, func() {
		for _, h := range s.holds {
			if h.IsLogicallyExpired(now) {
				out = append(out, h)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Store) ExpireHold(ctx context.Context, holdID string, now time.Time, reason string) (bool, error) {
	changed := false
	err := s.write(ctx, func(journal func(func())) error {
		h, ok := s.holds[holdID]
		if !ok || !h.IsLogicallyExpired(now) {
			return nil
		}
		h.Status = domain.HoldStatusExpired
		h.ReleasedAt = &now
		h.ReleaseReason = &reason
		s.putHold(journal, h)
		changed = true
		return nil
	})
	return changed, err
}

// Sales.

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) error {
	return s.write(ctx, func(journal func(func())) error {
		if _, ok := s.saleCodes[sale.ConfirmationCode]; ok {
			return domain.ErrDuplicateCode
		}
		for _, existing := range s.sales {
			if existing.HoldID == sale.HoldID {
				return domain.ErrHoldNotActive
			}
		}
		s.sales[sale.ID] = sale
		s.saleCodes[sale.ConfirmationCode] = sale.ID
		journal(func() {
			delete(s.sales, sale.ID)
			delete(s.saleCodes, sale.ConfirmationCode)
		})
		return nil
	})
}

func (s *Store) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	var (
		sale domain.Sale
		ok   bool
	)
	s.read(ctx, func() { sale, ok = s.sales[saleID] })
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return sale, nil
}

func (s *Store) GetSaleByConfirmationCode(ctx context.Context, code string) (domain.Sale, error) {
	var (
		sale domain.Sale
		ok   bool
	)
	s.read(ctx, func() {
		var id string
		if id, ok = s.saleCodes[code]; ok {
			sale, ok = s.sales[id]
		}
	})
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return sale, nil
}
