package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

type FailureRecorderImpl struct {
	db         service.TxStarter
	auditRepo  audit.Repository
	outboxRepo outbox.Repository
	actor      string
	logger     *slog.Logger
}

func NewFailureRecorder(
	db service.TxStarter,
	auditRepo audit.Repository,
	outboxRepo outbox.Repository,
	actor string,
	logger *slog.Logger,
) service.FailureRecorder {
	return &FailureRecorderImpl{
		db:         db,
		auditRepo:  auditRepo,
		outboxRepo: outboxRepo,
		actor:      actor,
		logger:     logger,
	}
}

// rejectionDetails is the audited summary of a closure that produced no payout
type rejectionDetails struct {
	ClosureID string `json:"closure_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	PotCents  int64  `json:"pot_cents"`
	NProjects int    `json:"n_projects,omitempty"`
}

// RecordFailure audits a rejected or waiting closure and announces it through
// the outbox, in its own transaction. A closure already announced is skipped.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.ClosureRequest, cause error) (err error) {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}
	status := closure.StatusFor(cause)

	existing, err := r.outboxRepo.GetByClosureID(ctx, request.ClosureID)
	if err != nil && !errors.Is(err, outbox.ErrMessageNotFound{}) {
		logger.Error("Failed to look up outbox message for failed closure", "closure_id", request.ClosureID.String(), "error", err)
		return fmt.Errorf("failed to look up closure %s: %w", request.ClosureID, err)
	}
	if existing != nil {
		logger.Info("Closure outcome already recorded", "closure_id", request.ClosureID.String(), "outbox_id", existing.ID)
		return nil
	}

	logger.Info("Recording failed closure", "closure_id", request.ClosureID.String(), "status", status, "reason", cause.Error())

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin DB transaction for failed closure %s: %w", request.ClosureID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback failure record", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	entry, err := audit.AppendTo(ctx, r.auditRepo.WithTx(tx), audit.ChainID(request.ReferenceType), audit.Record{
		Actor:       r.actor,
		Action:      audit.ActionClosureRejected,
		SubjectType: request.ReferenceType,
		SubjectID:   request.ReferenceID,
		Details: rejectionDetails{
			ClosureID: request.ClosureID.String(),
			Kind:      string(request.Kind),
			Status:    string(status),
			Reason:    cause.Error(),
			PotCents:  request.PotCents,
			NProjects: request.NProjects,
		},
	})
	if err != nil {
		logger.Error("Failed to audit failed closure", "closure_id", request.ClosureID.String(), "error", err)
		return err
	}

	message, err := outbox.NewMessage(&closure.PayoutEvent{
		ClosureID:     request.ClosureID,
		Kind:          request.Kind,
		ReferenceType: request.ReferenceType,
		ReferenceID:   request.ReferenceID,
		Status:        status,
		FailureReason: cause.Error(),
		AuditHash:     entry.CurrentHash,
		CorrelationID: request.CorrelationID,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox message payload for closure %s: %w", request.ClosureID, err)
	}
	if err = r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message for failed closure", "closure_id", request.ClosureID.String(), "error", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit failure record", "closure_id", request.ClosureID.String(), "error", err)
		return fmt.Errorf("failed to commit failure record for closure %s: %w", request.ClosureID, err)
	}

	logger.Info("Successfully recorded failed closure", "closure_id", request.ClosureID.String(), "status", status)
	return nil
}
