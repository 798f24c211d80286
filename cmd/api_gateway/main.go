package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/statement-reconciliation/internal/api_gateway"
	"github.com/statement-reconciliation/internal/api_gateway/service"
	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/data/mongo"
	"github.com/statement-reconciliation/internal/logger"
	"github.com/statement-reconciliation/internal/platform/messaging/producers"
	"github.com/statement-reconciliation/internal/platform/objectstore"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
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
	if err := mongoDB.EnsureIndexes(appCtx, mongo.JobReportCollectionName, mongo.JobReportIndexes()...); err != nil {
		log.Error("Failed to create job report indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for job requests
	jobProducer, err := producers.NewJobRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize job request producer", "error", err)
		os.Exit(1)
	}

	statementStore, err := objectstore.NewStatementStore(appCtx, log, &cfg.Storage)
	if err != nil {
		log.Error("Failed to initialize statement storage", "error", err)
		os.Exit(1)
	}

	// Initialize services
	recon := reconciliation.NewServices(log, postgresDB, &cfg.Reconciliation)
	reportRepo := mongo.NewJobReportRepository(log, mongoDB.Database())

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Jobs:       service.NewJobService(log, reportRepo, jobProducer),
		Statements: service.NewStatementService(log, statementStore, recon.Ingest),
		Rules:      recon.Rules,
		Batches:    recon.Batches,
		Ledger:     recon.Ledger,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools they use are closed
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = jobProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = statementStore.Close(); err != nil {
		log.Error("Error closing statement storage", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
