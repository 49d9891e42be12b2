package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrStaleTail is returned when the chain head moved between reading the
// tail hash and appending.
var ErrStaleTail = errors.New("audit chain tail moved during append")

// SerializationError reports audit details that could not be canonicalized.
type SerializationError struct {
	Cause error
}

func (e SerializationError) Error() string {
	return fmt.Sprintf("audit details serialization failed: %v", e.Cause)
}

func (e SerializationError) Unwrap() error {
	return e.Cause
}

// Repository stores audit chains. GetTailHash locks the chain head for the
// rest of the surrounding transaction.
type Repository interface {
	GetTailHash(ctx context.Context, chainID string) (string, error)
	Append(ctx context.Context, entry *Entry) (*Entry, error)
	ListChain(ctx context.Context, chainID string, limit, offset int) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}

// AppendTo chains rec onto the current tail of chainID and stores it.
func AppendTo(ctx context.Context, repo Repository, chainID string, rec Record) (*Entry, error) {
	prev, err := repo.GetTailHash(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit tail: %w", err)
	}
	entry, err := NewEntry(chainID, prev, rec)
	if err != nil {
		return nil, err
	}
	stored, err := repo.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return stored, nil
}
