// Package lock implementa quote.Locker: redislock sobre go-redis cuando hay
// Redis configurado y un bloqueo en memoria para un único proceso.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Cotizaciones-api/internal/application/quote"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/pkg/config"
)

var _ quote.Locker = (*RedisLocker)(nil)

// NewRedisClient conecta a Redis y verifica con PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisLocker bloqueo distribuido; sin reintentos: si la clave está tomada falla enseguida.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker construye el locker sobre un cliente go-redis.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain toma la clave por ttl. domain.ErrConflict si otro la tiene.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (quote.Lock, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: redislock.NoRetry()})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s en uso", domain.ErrConflict, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return &redisLock{lk: lk}, nil
}

type redisLock struct {
	lk *redislock.Lock
}

// Release libera la clave; si el ttl ya venció no es error.
func (l *redisLock) Release(ctx context.Context) error {
	if err := l.lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release lock %s: %w", l.lk.Key(), err)
	}
	return nil
}
