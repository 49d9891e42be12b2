package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stores the payout event inside tx for the poller to publish
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, event *closure.PayoutEvent) error {
	logger := m.logger
	if event.CorrelationID != "" {
		logger = m.logger.With("correlation_id", event.CorrelationID)
	}

	outboxMessage, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"closure_id", event.ClosureID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for closure %s: %w", event.ClosureID, err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"closure_id", event.ClosureID.String(),
			"status", event.Status,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for closure %s: %w", event.ClosureID, err)
	}

	logger.Info("Outbox message created successfully",
		"closure_id", event.ClosureID.String(),
		"status", event.Status,
		"outbox_id", outboxMessage.ID,
	)
	return nil
}
