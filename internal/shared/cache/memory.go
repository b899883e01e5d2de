package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMemorySize = 1024
	defaultMemoryTTL  = 30 * time.Second
)

// Memory is an in-process LRU cache with a single expiry for all entries.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory constructs a Memory cache holding at most size entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached value for key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	val, ok := m.lru.Get(key)
	return val, ok, nil
}

// Set stores value; the per-call ttl is ignored in favour of the cache expiry.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_ = ttl
	m.lru.Add(key, value)
	return nil
}

// Delete removes keys.
func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.lru.Remove(key)
	}
	return nil
}

var _ Cache = (*Memory)(nil)
