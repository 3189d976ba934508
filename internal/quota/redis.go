// internal/quota/redis.go
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/permitwise/permitwise/internal/types"
)

// counterTTL outlives the day the counter covers so clock skew between
// instances cannot resurrect a half-expired counter, while still letting
// Redis reclaim old keys.
const counterTTL = 48 * time.Hour

// RedisLimiter enforces daily limits with Redis counters, shared across
// instances.
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
}

// NewRedisLimiter creates a limiter over an existing Redis client.
func NewRedisLimiter(client redis.UniversalClient, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit}
}

// Allow implements Limiter. INCR-then-check keeps the charge atomic under
// concurrent turns; the key expires after its day has passed.
func (l *RedisLimiter) Allow(ctx context.Context, callerID string) error {
	key := dayKey(callerID, time.Now())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("quota incr: %w", err)
	}
	if count == 1 {
		// First turn of the day sets the expiry; failures here leave an
		// unexpiring counter, which the next day's key makes harmless.
		if err := l.client.Expire(ctx, key, counterTTL).Err(); err != nil {
			return fmt.Errorf("quota expire: %w", err)
		}
	}

	if count > int64(l.limit) {
		return types.ErrQuotaExceeded
	}
	return nil
}
