package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
	"github.com/crowdfund-revenue-ledger/internal/logger"
	"github.com/crowdfund-revenue-ledger/internal/metrics"
	"github.com/crowdfund-revenue-ledger/internal/platform/locking"
)

type ProcessingServiceImpl struct {
	db              TxStarter
	locker          locking.Locker
	lockTimeout     time.Duration
	validator       ClosureValidator
	calculator      PayoutCalculator
	ledgerWriter    LedgerWriter
	auditRecorder   AuditRecorder
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

// Dependencies groups the collaborators of the processing service
type Dependencies struct {
	DB              TxStarter
	Locker          locking.Locker
	LockTimeout     time.Duration
	Validator       ClosureValidator
	Calculator      PayoutCalculator
	LedgerWriter    LedgerWriter
	AuditRecorder   AuditRecorder
	OutboxManager   OutboxManager
	FailureRecorder FailureRecorder
}

func NewProcessingService(deps Dependencies, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		db:              deps.DB,
		locker:          deps.Locker,
		lockTimeout:     deps.LockTimeout,
		validator:       deps.Validator,
		calculator:      deps.Calculator,
		ledgerWriter:    deps.LedgerWriter,
		auditRecorder:   deps.AuditRecorder,
		outboxManager:   deps.OutboxManager,
		failureRecorder: deps.FailureRecorder,
		logger:          logger,
	}
}

// ProcessClosure calculates a closure and commits its ledger lines, audit
// entry and outbox message in one database transaction. Rejections are
// recorded and acknowledged; any other error is returned so the message is
// redelivered.
func (s *ProcessingServiceImpl) ProcessClosure(ctx context.Context, request *shared.ClosureRequest) (err error) {
	start := time.Now()
	log := logger.ForClosure(s.logger, request.ClosureID.String(), request.ReferenceType, request.ReferenceID, request.CorrelationID)
	log.Info("Processing closure", "kind", request.Kind, "pot_cents", request.PotCents)

	// 1. Validate the request shape
	if err := s.validator.Validate(ctx, request); err != nil {
		log.Warn("Closure validation failed", "error", err)
		s.recordFailure(ctx, log, request, err)
		return nil
	}

	// 2. Serialize closures of the same reference
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.locker.Lock(lockCtx, request.LockKey())
	cancel()
	if err != nil {
		log.Error("Failed to lock closure reference", "error", err)
		return fmt.Errorf("failed to lock %s: %w", request.LockKey(), err)
	}
	defer unlock()

	// 3. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		if closure.IsRejection(err) {
			log.Warn("Closure rejected as duplicate", "error", err)
			metrics.DuplicateClosures.Inc()
			s.recordFailure(ctx, log, request, err)
			return nil
		}
		return err
	}
	if skip {
		metrics.DuplicateClosures.Inc()
		return nil
	}

	// 4. Calculate
	calc, err := s.calculator.Calculate(request)
	if err != nil {
		if closure.IsRejection(err) {
			log.Warn("Closure rejected by payout engine", "error", err)
			s.recordFailure(ctx, log, request, err)
			return nil
		}
		log.Error("Payout calculation failed", "error", err)
		return fmt.Errorf("payout calculation failed for closure %s: %w", request.ClosureID, err)
	}

	// 5. Begin database transaction
	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin database transaction", "error", err)
		return fmt.Errorf("failed to begin DB transaction for closure %s: %w", request.ClosureID, err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error("Panic recovered, rolling back transaction", "panic", p)
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err)
			}
		}
	}()

	// 6. Append ledger lines
	entries, err := s.ledgerWriter.WriteEntries(ctx, tx, request, calc)
	if err != nil {
		if closure.IsRejection(err) {
			// err stays set so the deferred rollback still runs
			log.Error("Closure rejected by ledger constraints", "error", err)
			s.recordFailure(ctx, log, request, err)
			return nil
		}
		return err
	}

	// 7. Chain the audit entry
	auditEntry, err := s.auditRecorder.RecordPayout(ctx, tx, request, calc, entries)
	if err != nil {
		return err
	}

	// 8. Announce the payout through the outbox
	event := &closure.PayoutEvent{
		ClosureID:     request.ClosureID,
		Kind:          request.Kind,
		ReferenceType: request.ReferenceType,
		ReferenceID:   request.ReferenceID,
		Status:        shared.ClosureStatusCompleted,
		RuleVersion:   calc.RuleVersion,
		Calculation:   calc,
		LedgerEntries: entries,
		AuditHash:     auditEntry.CurrentHash,
		CorrelationID: request.CorrelationID,
		OccurredAt:    time.Now().UTC(),
	}
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, event); err != nil {
		return err
	}

	// 9. Commit
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit database transaction", "error", err)
		return fmt.Errorf("failed to commit DB transaction for closure %s: %w", request.ClosureID, err)
	}

	observe(request, calc, start)
	log.Info("Closure committed",
		"rule_version", calc.RuleVersion,
		"ledger_entries", len(entries),
		"platform_cents", calc.PlatformAmountCents,
		"residual_cents", calc.ResidualCents,
		"audit_hash", auditEntry.CurrentHash,
	)
	return nil
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, log *slog.Logger, request *shared.ClosureRequest, cause error) {
	metrics.ClosuresTotal.WithLabelValues(string(request.Kind), string(closure.StatusFor(cause))).Inc()
	if err := s.failureRecorder.RecordFailure(ctx, request, cause); err != nil {
		log.Error("Failed to record closure failure", "error", err)
	}
}

func observe(request *shared.ClosureRequest, calc *payout.Calculation, start time.Time) {
	kind := string(request.Kind)
	metrics.ClosuresTotal.WithLabelValues(kind, string(shared.ClosureStatusCompleted)).Inc()
	metrics.ClosureDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	for _, p := range calc.Payouts {
		metrics.DistributedCents.WithLabelValues(string(p.Role)).Add(float64(p.AmountCents))
	}
	metrics.ResidualCents.Add(float64(calc.ResidualCents))
}

var _ TxStarter = (*pgxpool.Pool)(nil)
