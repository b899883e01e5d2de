package orders

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores orders in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Order
	byToken map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Order),
		byToken: make(map[string]string),
	}
}

// Create stores the order.
func (r *MemoryRepo) Create(ctx context.Context, order Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[order.CorrelationToken]; ok {
		return ErrDuplicateToken
	}
	r.byID[order.ID] = cloneOrder(order)
	r.byToken[order.CorrelationToken] = order.ID
	return nil
}

// GetByID returns an order by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, orderID string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.byID[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return cloneOrder(order), nil
}

// GetByCorrelationToken returns the order created with token.
func (r *MemoryRepo) GetByCorrelationToken(ctx context.Context, token string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[token]
	if !ok {
		return Order{}, ErrNotFound
	}
	return cloneOrder(r.byID[id]), nil
}

// List returns orders newest first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Order, 0, len(r.byID))
	for _, order := range r.byID {
		all = append(all, cloneOrder(order))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Order{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Transition applies change if the current status is in from.
func (r *MemoryRepo) Transition(ctx context.Context, orderID string, from []Status, change StatusChange) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.byID[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	if !slices.Contains(from, order.Status) {
		return Order{}, ErrStatusConflict
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	order = change.apply(order)
	r.byID[orderID] = order
	return cloneOrder(order), nil
}

// ListStale returns processing orders started before cutoff, oldest first.
func (r *MemoryRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var stale []Order
	for _, order := range r.byID {
		if order.Status == StatusProcessing && order.StartedAt != nil && order.StartedAt.Before(cutoff) {
			stale = append(stale, cloneOrder(order))
		}
	}
	r.mu.RUnlock()

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].StartedAt.Before(*stale[j].StartedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func cloneOrder(o Order) Order {
	o.FocusAreas = slices.Clone(o.FocusAreas)
	if o.StartedAt != nil {
		t := *o.StartedAt
		o.StartedAt = &t
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		o.CompletedAt = &t
	}
	return o
}

var _ Repo = (*MemoryRepo)(nil)
