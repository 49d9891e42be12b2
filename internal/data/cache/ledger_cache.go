// Package cache provides Redis read-through caches in front of the
// PostgreSQL repositories.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
)

// RedisClient is the subset of *redis.Client used by the caches
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// LedgerRepository caches recipient balances in front of a ledger.Repository.
// Appends pass through untouched: they run inside the closure transaction,
// so balances are invalidated by the outbox publisher once it has committed.
type LedgerRepository struct {
	ledger.Repository
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewLedgerRepository(primary ledger.Repository, client RedisClient, ttl time.Duration, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{
		Repository: primary,
		client:     client,
		ttl:        ttl,
		logger:     logger,
	}
}

// WithTx keeps the cache around the transactional repository
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		Repository: r.Repository.WithTx(tx),
		client:     r.client,
		ttl:        r.ttl,
		logger:     r.logger,
	}
}

// SumNetByRecipient serves the balance from Redis when present
func (r *LedgerRepository) SumNetByRecipient(ctx context.Context, recipientID string) (int64, error) {
	key := balanceKey(recipientID)

	cached, err := r.client.Get(ctx, key).Result()
	if err == nil {
		if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return balance, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("Balance cache read failed, using primary store", "recipient_id", recipientID, "error", err)
	}

	balance, err := r.Repository.SumNetByRecipient(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	if err := r.client.Set(ctx, key, strconv.FormatInt(balance, 10), r.ttl).Err(); err != nil {
		r.logger.Warn("Failed to cache balance", "recipient_id", recipientID, "error", err)
	}
	return balance, nil
}

// Invalidate drops the cached balances of recipientIDs
func (r *LedgerRepository) Invalidate(ctx context.Context, recipientIDs ...string) {
	if len(recipientIDs) == 0 {
		return
	}
	keys := make([]string, len(recipientIDs))
	for i, id := range recipientIDs {
		keys[i] = balanceKey(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("Failed to invalidate cached balances", "recipients", len(keys), "error", err)
	}
}

// Recipients lists the distinct recipients of entries. Platform lines have no
// recipient and are skipped.
func Recipients(entries []ledger.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	var ids []string
	for _, e := range entries {
		if e.RecipientID == nil {
			continue
		}
		if _, ok := seen[*e.RecipientID]; ok {
			continue
		}
		seen[*e.RecipientID] = struct{}{}
		ids = append(ids, *e.RecipientID)
	}
	return ids
}

func balanceKey(recipientID string) string { return fmt.Sprintf("balance:%s", recipientID) }
