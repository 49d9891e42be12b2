package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

type ClosureValidatorImpl struct {
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewClosureValidator(ledgerRepo ledger.Repository, outboxRepo outbox.Repository, logger *slog.Logger) service.ClosureValidator {
	return &ClosureValidatorImpl{
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Validate checks closure request validity
func (v *ClosureValidatorImpl) Validate(ctx context.Context, request *shared.ClosureRequest) error {
	if err := closure.Validate(request); err != nil {
		v.logger.Error("Invalid closure request",
			"closure_id", request.ClosureID.String(),
			"kind", request.Kind,
			"error", err,
		)
		return err
	}
	return nil
}

// CheckIdempotency reports whether the request was already committed. A
// reference is closed at most once: ledger lines plus an outbox message for
// this closure id mean a redelivery, while ledger lines written by another
// closure id make this request a duplicate, returned as
// shared.ErrReferenceClosed.
func (v *ClosureValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.ClosureRequest) (bool, error) {
	count, err := v.ledgerRepo.CountByReference(ctx, request.ReferenceType, request.ReferenceID)
	if err != nil {
		v.logger.Error("Failed to check ledger for idempotency",
			"reference_type", request.ReferenceType,
			"reference_id", request.ReferenceID,
			"error", err,
		)
		return false, fmt.Errorf("idempotency check failed for %s: %w", request.LockKey(), err)
	}
	if count == 0 {
		return false, nil
	}

	existing, err := v.outboxRepo.GetByClosureID(ctx, request.ClosureID)
	switch {
	case err == nil:
		v.logger.Info("Closure already processed (idempotency)",
			"closure_id", request.ClosureID.String(),
			"outbox_id", existing.ID,
			"ledger_entries", count,
		)
		return true, nil
	case errors.Is(err, outbox.ErrMessageNotFound{}):
		v.logger.Warn("Reference already closed by another closure",
			"closure_id", request.ClosureID.String(),
			"reference_type", request.ReferenceType,
			"reference_id", request.ReferenceID,
		)
		return false, fmt.Errorf("%w: %s has %d ledger lines", shared.ErrReferenceClosed, request.LockKey(), count)
	default:
		return false, fmt.Errorf("idempotency check failed for closure %s: %w", request.ClosureID, err)
	}
}
