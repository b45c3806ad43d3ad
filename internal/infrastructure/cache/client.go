// Package cache adapta Redis como caché de respuestas idempotentes y lock entre instancias.
// Redis es opcional: PostgreSQL sigue siendo la fuente de verdad.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/pos-core/pkg/config"
	"github.com/redis/go-redis/v9"
)

// NewClient conecta a Redis y verifica la conexión con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 50,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar redis %s: %w", cfg.Address, err)
	}
	return client, nil
}
