package components

import (
	"log/slog"

	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/job_processor/service"
)

// Dependencies are the collaborators a processing service dispatches to
type Dependencies struct {
	Reports  job.Repository
	Rules    service.RuleApplier
	Reparser service.Reparser
	Importer service.Importer
	Objects  service.ObjectFetcher
}

// CreateProcessingService builds the job dispatcher behind a bounded worker pool.
func CreateProcessingService(deps Dependencies, logger *slog.Logger, cfg *config.Config) service.ProcessingService {
	baseService := service.NewProcessingService(
		deps.Reports,
		deps.Rules,
		deps.Reparser,
		deps.Importer,
		deps.Objects,
		logger,
	)

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
