package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

// redisRateLimiter shares the fixed-window counters across instances. Same
// counting semantics as the in-memory limiter; the window is the key's TTL.
type redisRateLimiter struct {
	log   *logger.Logger
	rdb   *goredis.Client
	rules map[string]RateLimitRule
}

func NewRedisRateLimiter(baseLog *logger.Logger, rules map[string]RateLimitRule) (RateLimiter, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if rules == nil {
		rules = DefaultRateLimitRules()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisRateLimiter{
		log:   baseLog.With("service", "RedisRateLimiter"),
		rdb:   rdb,
		rules: rules,
	}, nil
}

func (l *redisRateLimiter) Check(ctx context.Context, actorID uuid.UUID, operationClass string) error {
	if actorID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	rule, ok := l.rules[operationClass]
	if !ok || rule.MaxRequests <= 0 {
		return fmt.Errorf("%w: unknown operation class %q", faults.ErrInvalidArgument, operationClass)
	}

	key := fmt.Sprintf("ratelimit:%s:%s", actorID.String(), operationClass)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		// Fail open on counter-store outages; the feature quota still bounds
		// per-job spend.
		l.log.Warn("rate limit counter unavailable, allowing request", "operation_class", operationClass, "error", err)
		return nil
	}
	if count == 1 {
		if err := l.rdb.PExpire(ctx, key, rule.Window()).Err(); err != nil {
			l.log.Warn("rate limit expiry set failed", "operation_class", operationClass, "error", err)
		}
	}
	if count > int64(rule.MaxRequests) {
		ttl, err := l.rdb.PTTL(ctx, key).Result()
		resetMinutes := rule.WindowMinutes
		if err == nil && ttl > 0 {
			resetMinutes = minutesUntil(time.Now(), time.Now().Add(ttl))
		}
		return &faults.RateLimitError{
			OperationClass: operationClass,
			ResetInMinutes: resetMinutes,
		}
	}
	return nil
}
