package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages append-only ledger persistence. Append ignores entries
// whose idempotency key already exists and reports how many were inserted.
type Repository interface {
	Append(ctx context.Context, entries []Entry) (int, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)
	GetByReference(ctx context.Context, referenceType, referenceID string) ([]*Entry, error)
	CountByReference(ctx context.Context, referenceType, referenceID string) (int64, error)
	GetByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*Entry, error)
	CountByRecipient(ctx context.Context, recipientID string) (int64, error)
	SumNetByRecipient(ctx context.Context, recipientID string) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	IdempotencyKey string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.IdempotencyKey
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// An empty target key matches any ErrEntryNotFound
	if t.IdempotencyKey == "" {
		return true
	}
	return e.IdempotencyKey == t.IdempotencyKey
}
