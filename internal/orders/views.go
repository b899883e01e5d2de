package orders

import (
	"context"
	"encoding/json"
	"time"

	"bookreport-backend/internal/shared/cache"
	"bookreport-backend/internal/shared/telemetry"
)

const defaultViewTTL = 30 * time.Second

// ViewCache holds serialized views of completed orders for the detail and
// session reads. Only completed orders are stored: they never change again,
// so a read that races a status change can never cache an older state, and
// caches that are local to one process stay correct when another process
// finishes the order.
type ViewCache struct {
	Cache cache.Cache
	TTL   time.Duration
}

func orderViewKey(id string) string {
	return "order:" + id
}

func sessionViewKey(token string) string {
	return "order:session:" + token
}

func (v *ViewCache) ttl() time.Duration {
	if v.TTL <= 0 {
		return defaultViewTTL
	}
	return v.TTL
}

func (v *ViewCache) get(ctx context.Context, key string, dst any) bool {
	if v == nil || v.Cache == nil {
		return false
	}
	raw, ok, err := v.Cache.Get(ctx, key)
	if err != nil {
		telemetry.Warn("orders.cache_get_failed", map[string]any{"key": key, "error": err.Error()})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		_ = v.Cache.Delete(ctx, key)
		return false
	}
	return true
}

// putOrder stores order under key when it is completed.
func (v *ViewCache) putOrder(ctx context.Context, key string, order Order) {
	if v == nil || v.Cache == nil || order.Status != StatusCompleted {
		return
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := v.Cache.Set(ctx, key, raw, v.ttl()); err != nil {
		telemetry.Warn("orders.cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// OrderChanged invalidates the detail and session views of order.
func (v *ViewCache) OrderChanged(ctx context.Context, order Order) {
	if v == nil || v.Cache == nil {
		return
	}
	keys := []string{orderViewKey(order.ID)}
	if order.CorrelationToken != "" {
		keys = append(keys, sessionViewKey(order.CorrelationToken))
	}
	if err := v.Cache.Delete(ctx, keys...); err != nil {
		telemetry.Warn("orders.cache_invalidate_failed", map[string]any{"order_id": order.ID, "error": err.Error()})
	}
}
