package orders

import (
	"context"
	"time"
)

// Repo defines persistence operations for orders.
type Repo interface {
	// Create inserts a new order. A reused correlation token yields
	// ErrDuplicateToken.
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	GetByCorrelationToken(ctx context.Context, token string) (Order, error)
	// List returns orders newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit, offset int) ([]Order, error)
	// Transition applies change only while the order's status is one of
	// from, returning the updated order. It returns ErrNotFound when the
	// order does not exist and ErrStatusConflict when the status guard
	// does not hold.
	Transition(ctx context.Context, orderID string, from []Status, change StatusChange) (Order, error)
	// ListStale returns processing orders whose started_at is before cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
}
