package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crowdfund-revenue-ledger/internal/config"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/metrics"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        PayoutPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher PayoutPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start drains the outbox once, then polls on every tick until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.processPendingMessages(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Outbox batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// processPendingMessages publishes one batch in creation order. A failed
// message does not block the rest of the batch.
func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}
	p.logger.Debug("Publishing pending payout events", "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.publisher.PublishPayout(ctx, msg); err != nil {
			p.recordFailure(ctx, msg, err)
		}
	}
	return nil
}

func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "closure_id", msg.ClosureID)

	status, err := p.outboxRepo.RecordFailure(ctx, msg.ID, p.maxRetryAttempts)
	if err != nil {
		logger.Error("Failed to record payout publish failure", "cause", cause, "error", err)
		return
	}

	if status == shared.OutboxStatusFailedToPublish {
		logger.Error("Giving up on payout event", "attempts", msg.Attempts+1, "error", cause)
		metrics.OutboxPublished.WithLabelValues("failed").Inc()
		return
	}
	logger.Warn("Payout event will be retried", "attempts", msg.Attempts+1, "error", cause)
	metrics.OutboxPublished.WithLabelValues("retry").Inc()
}
