package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

type LedgerWriterImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewLedgerWriter(ledgerRepo ledger.Repository, logger *slog.Logger) service.LedgerWriter {
	return &LedgerWriterImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// WriteEntries appends one ledger line per payout line inside tx. Lines whose
// idempotency key already exists are skipped by the store.
func (w *LedgerWriterImpl) WriteEntries(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation) ([]ledger.Entry, error) {
	entries := ledger.ToLedgerEntries(calc, ledger.Reference{Type: request.ReferenceType, ID: request.ReferenceID})
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			w.logger.Error("Calculation produced an unstorable ledger line",
				"closure_id", request.ClosureID.String(),
				"role", e.Role,
				"error", err,
			)
			return nil, fmt.Errorf("closure %s: %w", request.ClosureID, err)
		}
	}

	inserted, err := w.ledgerRepo.WithTx(tx).Append(ctx, entries)
	if err != nil {
		w.logger.Error("Failed to append ledger entries",
			"closure_id", request.ClosureID.String(),
			"entries", len(entries),
			"error", err,
		)
		return nil, fmt.Errorf("failed to append ledger entries for closure %s: %w", request.ClosureID, err)
	}

	if inserted != len(entries) {
		w.logger.Warn("Some ledger entries already existed",
			"closure_id", request.ClosureID.String(),
			"entries", len(entries),
			"inserted", inserted,
		)
	}
	return entries, nil
}
