package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway"
	"github.com/crowdfund-revenue-ledger/internal/api_gateway/service"
	"github.com/crowdfund-revenue-ledger/internal/config"
	"github.com/crowdfund-revenue-ledger/internal/data/cache"
	"github.com/crowdfund-revenue-ledger/internal/data/mongo"
	"github.com/crowdfund-revenue-ledger/internal/data/postgres"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/logger"
	"github.com/crowdfund-revenue-ledger/internal/platform/messaging/producers"
	"github.com/crowdfund-revenue-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

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

	// Closure requests are queued asynchronously; the processor is the only writer
	closureProducer, err := producers.NewTopicProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.ClosureTopic, producers.ProducerOptions{
		Async:        true,
		RequiredAcks: kafka.RequireOne,
	})
	if err != nil {
		log.Error("Failed to initialize closure Kafka producer", "error", err)
		os.Exit(1)
	}

	checks := map[string]api_gateway.HealthCheck{
		"postgres": postgresDB.Ping,
		"mongodb":  mongoDB.Ping,
	}

	var ledgerRepo ledger.Repository = postgres.NewLedgerRepository(log, postgresDB)
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		ledgerRepo = cache.NewLedgerRepository(ledgerRepo, redisClient, cfg.Redis.CacheTTL, log.With("component", "balance_cache"))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	closureRepo := mongo.NewClosureRepository(log, mongoDB.Database())
	recipeRepo := postgres.NewRecipeRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)

	settings := closure.Settings{
		PlatformAccountID: cfg.Engine.PlatformAccountID,
		MinorUnit:         cfg.Engine.MinorUnit,
		DefaultAlpha:      cfg.Engine.DefaultAlpha,
	}

	services := api_gateway.Services{
		Closure: service.NewClosureService(log, closureRepo, recipeRepo, closureProducer, settings),
		Ledger:  service.NewLedgerService(log, ledgerRepo),
		Audit:   service.NewAuditService(log, auditRepo),
		Recipe:  service.NewRecipeService(log, postgresDB, recipeRepo, auditRepo),
	}

	server := api_gateway.NewServer(log, cfg, services, checks)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain in-flight requests before closing what they use
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if err := closureProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
