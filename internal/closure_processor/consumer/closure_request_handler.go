package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/producers"
)

// RetryPolicy bounds in-place retries of a closure that failed with a
// transient error, such as a lock timeout or a moved audit tail.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 250 * time.Millisecond}

// ClosureRequestHandler handles incoming closure request messages from Kafka
type ClosureRequestHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterSink
	retry             RetryPolicy
	logger            *slog.Logger
}

// NewClosureRequestHandler creates a new handler. producer may be nil when
// dead lettering is disabled.
func NewClosureRequestHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterSink,
	retry RetryPolicy,
) *ClosureRequestHandler {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &ClosureRequestHandler{
		processingService: processingService,
		producer:          producer,
		retry:             retry,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. A nil return commits the offset.
func (h *ClosureRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.ClosureRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal closure request from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Errorf("failed to unmarshal closure request: %w", err))
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Received closure request for processing",
		"closure_id", request.ClosureID.String(),
		"kind", request.Kind,
		"reference_type", request.ReferenceType,
		"reference_id", request.ReferenceID,
		"pot_cents", request.PotCents,
	)

	var err error
	for attempt := 1; attempt <= h.retry.MaxAttempts; attempt++ {
		if err = h.processingService.ProcessClosure(ctx, &request); err == nil {
			logger.Info("Successfully processed closure", "closure_id", request.ClosureID.String())
			return nil
		}
		logger.Warn("Closure processing attempt failed",
			"closure_id", request.ClosureID.String(),
			"attempt", attempt,
			"error", err,
		)
		if attempt == h.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.retry.Backoff * time.Duration(attempt)):
		}
	}

	logger.Error("Failed to process closure", "closure_id", request.ClosureID.String(), "error", err)
	return h.deadLetter(ctx, key, value, fmt.Errorf("processing closure %s failed after %d attempts: %w",
		request.ClosureID, h.retry.MaxAttempts, err))
}

// deadLetter parks value on the DLQ and acknowledges it. Without a DLQ, or
// when publishing fails, cause is returned and the offset stays uncommitted.
func (h *ClosureRequestHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	if h.producer == nil {
		return cause
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return cause
	}
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", cause.Error())
	return nil
}
