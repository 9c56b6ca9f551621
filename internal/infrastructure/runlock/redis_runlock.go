package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/salespipe/backend/internal/domain/shared"
)

const defaultLockKey = "sync:run:lock"

// releaseScript deletes the lock only when the caller still owns it, so
// a run that outlives its TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// RedisRunLock is a distributed run lock suitable for multi-instance
// deployments. Acquisition is a single SETNX with TTL.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ RunLock = (*RedisRunLock)(nil)

// RedisLockConfig holds Redis connection configuration
type RedisLockConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisRunLock creates a run lock backed by a new Redis connection
func NewRedisRunLock(cfg RedisLockConfig, ttl time.Duration) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunLockWithClient(client, defaultLockKey, ttl), nil
}

// NewRedisRunLockWithClient creates a run lock on an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisRunLockWithClient(client *redis.Client, key string, ttl time.Duration) *RedisRunLock {
	if key == "" {
		key = defaultLockKey
	}
	return &RedisRunLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock with SETNX. The stored value identifies the
// holder so release is owner-checked.
func (l *RedisRunLock) Acquire(ctx context.Context) (func(), error) {
	holder := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, holder, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock: acquire: %w", err)
	}
	if !ok {
		return nil, shared.ErrSyncInProgress
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Best effort; an expired lock is already gone
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, holder).Err()
	}
	return release, nil
}
