package cache

import (
	"context"
	"time"
)

// Cache stores rendered views keyed by string. A miss is reported with
// ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (Nop) Delete(ctx context.Context, keys ...string) error { return nil }

var _ Cache = Nop{}
