package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/pos-core/internal/application/filing"
	"github.com/redis/go-redis/v9"
)

var _ filing.Locker = (*Locker)(nil)

// Locker lock distribuido con redislock. No reintenta: si el lock está tomado devuelve
// filing.ErrLockBusy y el despachador pospone el documento.
type Locker struct {
	client *redislock.Client
}

// NewLocker construye el locker sobre el cliente Redis.
func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Obtain toma el lock por ttl.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (filing.Unlocker, error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, filing.ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}
