package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix     = "audit:append-lock:"
	redisLockMinBackoff = 5 * time.Millisecond
	redisLockMaxBackoff = 100 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAppendLocker serializes appends for one organization across processes with a
// SET NX PX lock. The lock expires after ttl so a crashed holder cannot wedge a chain; the
// unique (organization_id, sequence_number) constraint still protects the chain if a holder
// outlives its ttl.
type RedisAppendLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisAppendLocker creates a RedisAppendLocker.
func NewRedisAppendLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisAppendLocker {
	return &RedisAppendLocker{client: client, ttl: ttl, logger: logger}
}

// RedisLockKey returns the Redis key of an organization's append lock.
func RedisLockKey(organizationID string) string {
	return redisLockPrefix + organizationID
}

func (r *RedisAppendLocker) Lock(ctx context.Context, organizationID string) (func(), error) {
	key := RedisLockKey(organizationID)
	token := uuid.NewString()
	backoff := redisLockMinBackoff

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire append lock: %w", err)
		}
		if ok {
			break
		}

		wait := backoff/2 + rand.N(backoff/2+1)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff = min(backoff*2, redisLockMaxBackoff)
	}

	return func() {
		// The request context may already be done; release on a short independent deadline.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil &&
			!errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to release append lock",
				slog.String("organization_id", organizationID),
				slog.Any("error", err),
			)
		}
	}, nil
}

// OpenRedis parses url (e.g., redis://localhost:6379/0), connects and pings.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
