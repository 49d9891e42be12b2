package locking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisClient is the subset of *redis.Client used by RedisLocker
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a Locker shared by every processor instance. A lock expires
// after TTL if its holder dies.
type RedisLocker struct {
	client    RedisClient
	logger    *slog.Logger
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker namespaces every key under prefix, joined with a colon:
// prefix "closure-lock" locks "category:films" as "closure-lock:category:films".
func NewRedisLocker(client RedisClient, logger *slog.Logger, prefix string, ttl, retryWait time.Duration) *RedisLocker {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisLocker{
		client:    client,
		logger:    logger,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: retryWait,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryWait)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, redisKey)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("Failed to release lock", "key", redisKey, "error", err)
			}
		})
	}, nil
}
