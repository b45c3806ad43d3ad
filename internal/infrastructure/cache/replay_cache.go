package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/redis/go-redis/v9"
)

var _ idempotency.ReplayCache = (*ReplayCache)(nil)

// ReplayCache guarda las respuestas COMPLETED por clave de idempotencia con TTL.
type ReplayCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewReplayCache ttl <= 0 usa una hora.
func NewReplayCache(rdb redis.Cmdable, ttl time.Duration) *ReplayCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReplayCache{rdb: rdb, ttl: ttl}
}

func replayKey(tenantID, key string) string {
	return "idem:" + tenantID + ":" + key
}

// Get devuelve nil, nil si la clave no está en caché.
func (c *ReplayCache) Get(ctx context.Context, tenantID, key string) (*idempotency.CachedResponse, error) {
	val, err := c.rdb.Get(ctx, replayKey(tenantID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var resp idempotency.CachedResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("decodificar respuesta en caché: %w", err)
	}
	return &resp, nil
}

// Put guarda la respuesta; una respuesta completada no cambia, así que sobrescribir es seguro.
func (c *ReplayCache) Put(ctx context.Context, tenantID, key string, resp idempotency.CachedResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, replayKey(tenantID, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
