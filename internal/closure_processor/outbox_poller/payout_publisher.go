package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/data/cache"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/metrics"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/producers"
)

// PayoutPublisher delivers one outbox message
type PayoutPublisher interface {
	PublishPayout(ctx context.Context, message *outbox.Message) error
}

// BalanceInvalidator drops cached recipient balances
type BalanceInvalidator interface {
	Invalidate(ctx context.Context, recipientIDs ...string)
}

// PayoutPublisherImpl projects the payout event into MongoDB, publishes it to
// Kafka and marks the message processed. Both writes are idempotent, so a
// message retried after a partial failure converges.
type PayoutPublisherImpl struct {
	outboxRepo  outbox.Repository
	closureRepo closure.Repository
	producer    producers.Publisher
	balances    BalanceInvalidator
	logger      *slog.Logger
}

// NewPayoutPublisher creates a new publisher. balances may be nil when no
// balance cache is configured.
func NewPayoutPublisher(
	outboxRepo outbox.Repository,
	closureRepo closure.Repository,
	producer producers.Publisher,
	balances BalanceInvalidator,
	logger *slog.Logger,
) PayoutPublisher {
	return &PayoutPublisherImpl{
		outboxRepo:  outboxRepo,
		closureRepo: closureRepo,
		producer:    producer,
		balances:    balances,
		logger:      logger,
	}
}

// PublishPayout processes and publishes one outbox message
func (p *PayoutPublisherImpl) PublishPayout(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetPayoutEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal payout event from outbox payload",
			"outbox_id", message.ID, "closure_id", message.ClosureID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		metrics.OutboxPublished.WithLabelValues("malformed").Inc()
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}
	logger.Info("Publishing payout event", "outbox_id", message.ID, "closure_id", event.ClosureID, "status", event.Status)

	if err := p.closureRepo.Upsert(ctx, closure.NewRecord(event)); err != nil {
		logger.Error("Failed to project closure into MongoDB", "closure_id", event.ClosureID, "error", err)
		return fmt.Errorf("failed to project closure %s: %w", event.ClosureID, err)
	}

	if err := p.producer.Publish(ctx, message.Key(), event); err != nil {
		logger.Error("Failed to publish payout event", "closure_id", event.ClosureID, "error", err)
		return fmt.Errorf("failed to publish payout event for closure %s: %w", event.ClosureID, err)
	}

	if p.balances != nil {
		p.balances.Invalidate(ctx, cache.Recipients(event.LedgerEntries)...)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "closure_id", event.ClosureID, "error", err,
		)
		return fmt.Errorf("payout for %s published, but failed to mark outbox %d as PROCESSED: %w", event.ClosureID, message.ID, err)
	}

	metrics.OutboxPublished.WithLabelValues("published").Inc()
	logger.Info("Outbox message published and marked as PROCESSED", "outbox_id", message.ID, "closure_id", event.ClosureID)
	return nil
}
