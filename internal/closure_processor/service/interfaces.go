package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// ProcessingService defines the interface for processing closure requests.
type ProcessingService interface {
	ProcessClosure(ctx context.Context, request *shared.ClosureRequest) error
}

// TxStarter opens the database transaction of a closure
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ClosureValidator validates closure requests before processing
type ClosureValidator interface {
	Validate(ctx context.Context, request *shared.ClosureRequest) error
	CheckIdempotency(ctx context.Context, request *shared.ClosureRequest) (bool, error)
}

// PayoutCalculator runs the distribution rule of a closure
type PayoutCalculator interface {
	Calculate(request *shared.ClosureRequest) (*payout.Calculation, error)
}

// LedgerWriter appends the ledger lines of a calculation
type LedgerWriter interface {
	WriteEntries(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation) ([]ledger.Entry, error)
}

// AuditRecorder chains the audit entry of an executed payout
type AuditRecorder interface {
	RecordPayout(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation, entries []ledger.Entry) (*audit.Entry, error)
}

// OutboxManager handles the creation of outbox entries for processed closures
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *closure.PayoutEvent) error
}

// FailureRecorder records closures that were rejected or must wait
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.ClosureRequest, cause error) error
}
