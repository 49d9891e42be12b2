package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL.
// Chain heads live in audit_chain_heads; the head row is the single-writer
// lock of its chain.
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. GetTailHash and Append
// must share one transaction for the head row lock to hold.
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetTailHash creates the chain head on first use and locks it with
// SELECT ... FOR UPDATE until the surrounding transaction ends.
func (r *AuditRepository) GetTailHash(ctx context.Context, chainID string) (string, error) {
	ensure := `
		INSERT INTO audit_chain_heads (chain_id, tail_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id) DO NOTHING
	`
	if _, err := r.querier.Exec(ctx, ensure, chainID, audit.GenesisHash, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to initialize audit chain head", "chain_id", chainID, "error", err)
		return "", fmt.Errorf("failed to initialize audit chain head: %w", err)
	}

	query := `
		SELECT tail_hash
		FROM audit_chain_heads
		WHERE chain_id = $1
		FOR UPDATE
	`
	var tail string
	if err := r.querier.QueryRow(ctx, query, chainID).Scan(&tail); err != nil {
		r.logger.Error("Failed to lock audit chain head", "chain_id", chainID, "error", err)
		return "", fmt.Errorf("failed to lock audit chain head: %w", err)
	}
	return tail, nil
}

// Append stores entry and advances the chain head from entry.PreviousHash to
// entry.CurrentHash. A head that moved meanwhile yields audit.ErrStaleTail.
func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) (*audit.Entry, error) {
	insert := `
		INSERT INTO audit_log (id, chain_id, actor, action, subject_type, subject_id, details, previous_hash, current_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.querier.Exec(ctx, insert,
		entry.ID,
		entry.ChainID,
		entry.Actor,
		entry.Action,
		entry.SubjectType,
		entry.SubjectID,
		entry.Details,
		entry.PreviousHash,
		entry.CurrentHash,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to insert audit entry",
			"chain_id", entry.ChainID,
			"subject_id", entry.SubjectID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	advance := `
		UPDATE audit_chain_heads
		SET tail_hash = $1, updated_at = $2
		WHERE chain_id = $3 AND tail_hash = $4
	`
	result, err := r.querier.Exec(ctx, advance, entry.CurrentHash, time.Now().UTC(), entry.ChainID, entry.PreviousHash)
	if err != nil {
		r.logger.Error("Failed to advance audit chain head", "chain_id", entry.ChainID, "error", err)
		return nil, fmt.Errorf("failed to advance audit chain head: %w", err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Warn("Audit chain head moved during append",
			"chain_id", entry.ChainID,
			"previous_hash", entry.PreviousHash,
		)
		return nil, audit.ErrStaleTail
	}

	return entry, nil
}

// ListChain returns a page of a chain, oldest first
func (r *AuditRepository) ListChain(ctx context.Context, chainID string, limit, offset int) ([]*audit.Entry, error) {
	query := `
		SELECT id, chain_id, actor, action, subject_type, subject_id, details, previous_hash, current_hash, created_at
		FROM audit_log
		WHERE chain_id = $1
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, chainID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list audit chain", "chain_id", chainID, "error", err)
		return nil, fmt.Errorf("failed to list audit chain: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(
			&e.ID,
			&e.ChainID,
			&e.Actor,
			&e.Action,
			&e.SubjectType,
			&e.SubjectID,
			&e.Details,
			&e.PreviousHash,
			&e.CurrentHash,
			&e.Timestamp,
		); err != nil {
			r.logger.Error("Failed to scan audit entry", "chain_id", chainID, "error", err)
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over audit entries", "chain_id", chainID, "error", err)
		return nil, fmt.Errorf("error iterating over audit entries: %w", err)
	}
	return entries, nil
}
