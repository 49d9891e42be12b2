package components

import (
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/config"
	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/outbox"
	"github.com/crowdfund-revenue-ledger/internal/platform/locking"
)

// Repositories groups the stores the processing service writes to
type Repositories struct {
	Ledger ledger.Repository
	Audit  audit.Repository
	Outbox outbox.Repository
}

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	db service.TxStarter,
	locker locking.Locker,
	repos Repositories,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	settings := closure.Settings{
		PlatformAccountID: cfg.Engine.PlatformAccountID,
		MinorUnit:         cfg.Engine.MinorUnit,
		DefaultAlpha:      cfg.Engine.DefaultAlpha,
	}

	baseService := service.NewProcessingService(service.Dependencies{
		DB:              db,
		Locker:          locker,
		LockTimeout:     cfg.Engine.LockTimeout,
		Validator:       NewClosureValidator(repos.Ledger, repos.Outbox, logger),
		Calculator:      NewPayoutCalculator(settings, logger),
		LedgerWriter:    NewLedgerWriter(repos.Ledger, logger),
		AuditRecorder:   NewAuditRecorder(repos.Audit, cfg.Engine.AuditActor, logger),
		OutboxManager:   NewOutboxManager(repos.Outbox, logger),
		FailureRecorder: NewFailureRecorder(db, repos.Audit, repos.Outbox, cfg.Engine.AuditActor, logger),
	}, logger)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
