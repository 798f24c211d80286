// Package reconciliation wires the rule, batch, reparse, ledger and import services over one
// PostgreSQL pool. Each binary builds its Services once at startup.
package reconciliation

import (
	"log/slog"

	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/data/postgres"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/reconciliation/batches"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
	"github.com/statement-reconciliation/internal/reconciliation/ledger"
	"github.com/statement-reconciliation/internal/reconciliation/reparse"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

type Services struct {
	Registry *rawrecord.Registry
	Rules    *rules.Service
	Batches  *batches.Service
	Reparse  *reparse.Orchestrator
	Ledger   *ledger.Service
	Ingest   *ingest.Service
}

func NewServices(logger *slog.Logger, db *persistence.PostgresDB, cfg *config.ReconciliationConfig) *Services {
	rawRepo := postgres.NewRawRecordRepository(logger, db)
	ruleRepo := postgres.NewRuleRepository(logger, db)
	batchRepo := postgres.NewBatchRepository(logger, db)
	paymentRepo := postgres.NewPaymentRepository(logger, db)
	consolidatedRepo := postgres.NewConsolidatedRepository(logger, db)
	counteragentRepo := postgres.NewCounteragentRepository(logger, db)
	outboxRepo := postgres.NewOutboxRepository(logger, db)

	registry := rawrecord.NewRegistry(postgres.NewBankAccountRepository(logger, db), cfg.DefaultSchemaVersion)

	orchestrator := reparse.NewOrchestrator(logger.With("component", "reparse"), db, reparse.Repositories{
		RawRecords:    rawRepo,
		Rules:         ruleRepo,
		Payments:      paymentRepo,
		Counteragents: counteragentRepo,
		Consolidated:  consolidatedRepo,
		Outbox:        outboxRepo,
	}, registry, cfg.PageSize)

	return &Services{
		Registry: registry,
		Rules: rules.NewService(logger.With("component", "rules"), db, rules.Repositories{
			Rules:        ruleRepo,
			RawRecords:   rawRepo,
			Payments:     paymentRepo,
			Consolidated: consolidatedRepo,
			Outbox:       outboxRepo,
		}, registry, cfg.PageSize),
		Batches: batches.NewService(logger.With("component", "batches"), db, batches.Repositories{
			RawRecords:   rawRepo,
			Batches:      batchRepo,
			Payments:     paymentRepo,
			Consolidated: consolidatedRepo,
			Outbox:       outboxRepo,
		}, cfg.PartitionTolerance),
		Reparse: orchestrator,
		Ledger:  ledger.NewService(logger.With("component", "ledger"), db, paymentRepo, outboxRepo),
		Ingest:  ingest.NewService(logger.With("component", "ingest"), db, rawRepo, outboxRepo, registry, orchestrator),
	}
}
