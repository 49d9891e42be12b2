package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/components"
	"github.com/crowdfund-revenue-ledger/internal/closure_processor/consumer"
	"github.com/crowdfund-revenue-ledger/internal/closure_processor/outbox_poller"
	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/config"
	"github.com/crowdfund-revenue-ledger/internal/data/cache"
	"github.com/crowdfund-revenue-ledger/internal/data/mongo"
	"github.com/crowdfund-revenue-ledger/internal/data/postgres"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/logger"
	"github.com/crowdfund-revenue-ledger/internal/metrics"
	"github.com/crowdfund-revenue-ledger/internal/platform/locking"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/consumers"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/producers"
	"github.com/crowdfund-revenue-ledger/internal/platform/persistence"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("closure_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Closure Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Migrations run as part of the pool setup
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	closureRepo := mongo.NewClosureRepository(log, mongoDB.Database())
	if err := closureRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create closure record indexes", "error", err)
		os.Exit(1)
	}

	// Redis backs the cross-instance lock and the balance cache when configured
	var (
		redisClient *redis.Client
		locker      locking.Locker
		ledgerRepo  ledger.Repository
		balances    outbox_poller.BalanceInvalidator
	)
	locker = locking.NewKeyedMutex()
	ledgerRepo = postgres.NewLedgerRepository(log, postgresDB)
	if cfg.Redis.Addr != "" {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		locker = locking.NewRedisLocker(redisClient, log.With("component", "locker"), "closure-lock:", cfg.Redis.LockTTL, cfg.Redis.LockRetryWait)
		cached := cache.NewLedgerRepository(ledgerRepo, redisClient, cfg.Redis.CacheTTL, log.With("component", "balance_cache"))
		ledgerRepo = cached
		balances = cached
	} else {
		log.Warn("REDIS_ADDR not set, using in-process closure lock without balance cache")
	}

	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	processingService := components.CreateProcessingService(
		postgresDB,
		locker,
		components.Repositories{
			Ledger: ledgerRepo,
			Audit:  auditRepo,
			Outbox: outboxRepo,
		},
		log,
		cfg,
	)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	payoutProducer, err := producers.NewTopicProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.PayoutTopic, producers.ProducerOptions{
		RequiredAcks: kafka.RequireAll,
	})
	if err != nil {
		log.Error("Failed to initialize payout Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.ClosureTopic)

	// dlqProducer is nil when no DLQ topic is configured; keep the interface nil too
	var deadLetters producers.DeadLetterSink
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}
	closureRequestHandler := consumer.NewClosureRequestHandler(
		log,
		processingService,
		deadLetters,
		consumer.DefaultRetryPolicy,
	)

	payoutPublisher := outbox_poller.NewPayoutPublisher(
		outboxRepo,
		closureRepo,
		payoutProducer,
		balances,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		payoutPublisher,
		log,
	)

	metricsServer := newMetricsServer(cfg)

	errChan := make(chan error, 3)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, closureRequestHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to closure topic", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	go func() {
		log.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop intake before draining the pool
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown(shutdownTimeout)
	}

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	shutdownErr := closeAll(shutdownCtx, log, metricsServer, dlqProducer, payoutProducer, redisClient)

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Closure Processor shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Closure Processor shutdown completed with errors")
	} else {
		log.Info("Closure Processor shutdown completed successfully")
	}
}

// newMetricsServer exposes the Prometheus registry of the processor
func newMetricsServer(cfg *config.Config) *http.Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.GET("/metrics", metrics.Handler())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// closeAll releases the network clients, returning the last error seen
func closeAll(
	ctx context.Context,
	log *slog.Logger,
	metricsServer *http.Server,
	dlqProducer *producers.DLQProducer,
	payoutProducer *producers.TopicProducer,
	redisClient *redis.Client,
) error {
	var lastErr error

	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Error("Error stopping metrics server", "error", err)
		lastErr = err
	}

	// dlqProducer is nil when no DLQ topic is configured
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			lastErr = err
		}
	}

	if err := payoutProducer.Close(); err != nil {
		log.Error("Error closing payout Kafka producer", "error", err)
		lastErr = err
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
			lastErr = err
		}
	}

	return lastErr
}
