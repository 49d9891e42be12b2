// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a pgx.Tx so that a closure writes its ledger
// lines, audit entry and outbox message atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/platform/persistence"
)

const ledgerColumns = `id, transaction_type, reference_type, reference_id, recipient_id, role, rank,
		gross_amount_cents, net_amount_cents, fee_cents, external_payment_ref,
		idempotency_key, payout_rule, status, created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so ledger lines are
// written atomically with the audit entry and the outbox message.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts entries, skipping any whose idempotency key is already
// stored. Entries with a zero CreatedAt are stamped with the current time.
func (r *LedgerRepository) Append(ctx context.Context, entries []ledger.Entry) (int, error) {
	query := `
		INSERT INTO financial_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	inserted := 0
	for i := range entries {
		e := &entries[i]
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		result, err := r.querier.Exec(ctx, query,
			e.ID,
			e.TransactionType,
			e.ReferenceType,
			e.ReferenceID,
			e.RecipientID,
			e.Role,
			e.Rank,
			e.GrossAmountCents,
			e.NetAmountCents,
			e.FeeCents,
			e.ExternalPaymentRef,
			e.IdempotencyKey,
			e.PayoutRule,
			e.Status,
			e.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to append ledger entry",
				"idempotency_key", e.IdempotencyKey,
				"reference_id", e.ReferenceID,
				"error", err,
			)
			return inserted, fmt.Errorf("failed to append ledger entry: %w", err)
		}
		inserted += int(result.RowsAffected())
	}

	if skipped := len(entries) - inserted; skipped > 0 {
		r.logger.Warn("Skipped ledger entries with existing idempotency keys", "skipped", skipped)
	}
	return inserted, nil
}

// GetByIdempotencyKey returns ErrEntryNotFound if no entry carries key.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM financial_ledger
		WHERE idempotency_key = $1
	`

	entry, err := scanLedgerEntry(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{IdempotencyKey: key}
		}
		r.logger.Error("Failed to get ledger entry", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// GetByReference returns every line of a closure in insertion order.
func (r *LedgerRepository) GetByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM financial_ledger
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY seq ASC
	`

	return r.queryEntries(ctx, "reference_id", referenceID, query, referenceType, referenceID)
}

// CountByReference counts the ledger lines already written for a closure
func (r *LedgerRepository) CountByReference(ctx context.Context, referenceType, referenceID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM financial_ledger
		WHERE reference_type = $1 AND reference_id = $2
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, referenceType, referenceID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries",
			"reference_type", referenceType,
			"reference_id", referenceID,
			"error", err,
		)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// GetByRecipient retrieves paginated entries of a recipient, newest first
func (r *LedgerRepository) GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM financial_ledger
		WHERE recipient_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryEntries(ctx, "recipient_id", recipientID, query, recipientID, limit, offset)
}

// CountByRecipient counts every entry of a recipient
func (r *LedgerRepository) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM financial_ledger
		WHERE recipient_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		r.logger.Error("Failed to count recipient ledger entries", "recipient_id", recipientID, "error", err)
		return 0, fmt.Errorf("failed to count recipient ledger entries: %w", err)
	}
	return count, nil
}

// SumNetByRecipient derives a recipient balance from the append-only ledger
func (r *LedgerRepository) SumNetByRecipient(ctx context.Context, recipientID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(net_amount_cents), 0)::BIGINT
		FROM financial_ledger
		WHERE recipient_id = $1
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, recipientID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum recipient ledger entries", "recipient_id", recipientID, "error", err)
		return 0, fmt.Errorf("failed to sum recipient ledger entries: %w", err)
	}
	return total, nil
}

func (r *LedgerRepository) queryEntries(ctx context.Context, logKey, logValue, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", logKey, logValue, "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", logKey, logValue, "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLedgerEntry(row rowScanner) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.TransactionType,
		&e.ReferenceType,
		&e.ReferenceID,
		&e.RecipientID,
		&e.Role,
		&e.Rank,
		&e.GrossAmountCents,
		&e.NetAmountCents,
		&e.FeeCents,
		&e.ExternalPaymentRef,
		&e.IdempotencyKey,
		&e.PayoutRule,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
