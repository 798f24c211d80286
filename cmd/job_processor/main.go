package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/data/mongo"
	"github.com/statement-reconciliation/internal/data/postgres"
	"github.com/statement-reconciliation/internal/job_processor/components"
	"github.com/statement-reconciliation/internal/job_processor/consumer"
	"github.com/statement-reconciliation/internal/job_processor/outbox_poller"
	"github.com/statement-reconciliation/internal/job_processor/service"
	"github.com/statement-reconciliation/internal/logger"
	"github.com/statement-reconciliation/internal/platform/messaging/consumers"
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
	cfg, err := config.LoadConfig("job_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Job Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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
	if err := mongoDB.EnsureIndexes(appCtx, mongo.AuditCollectionName, mongo.AuditIndexes()...); err != nil {
		log.Error("Failed to create audit indexes", "error", err)
		os.Exit(1)
	}
	if err := mongoDB.EnsureIndexes(appCtx, mongo.JobReportCollectionName, mongo.JobReportIndexes()...); err != nil {
		log.Error("Failed to create job report indexes", "error", err)
		os.Exit(1)
	}

	statementStore, err := objectstore.NewStatementStore(appCtx, log, &cfg.Storage)
	if err != nil {
		log.Error("Failed to initialize statement storage", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and reconciliation services
	recon := reconciliation.NewServices(log, postgresDB, &cfg.Reconciliation)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	reportRepo := mongo.NewJobReportRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer; nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	processingService := components.CreateProcessingService(components.Dependencies{
		Reports:  reportRepo,
		Rules:    recon.Rules,
		Reparser: recon.Reparse,
		Importer: recon.Ingest,
		Objects:  statementStore,
	}, log, cfg)

	jobRequestHandler := consumer.NewJobRequestHandler(log, processingService, dlqProducer)

	// Initialize outbox poller feeding the audit trail
	auditPublisher := outbox_poller.NewAuditPublisher(outboxRepo, auditRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, auditPublisher, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.JobTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, jobRequestHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Let in-flight jobs finish before their pools are closed
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
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

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = statementStore.Close(); err != nil {
		log.Error("Error closing statement storage", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Job Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Job Processor shutdown completed with errors")
	} else {
		log.Info("Job Processor shutdown completed successfully")
	}
}
