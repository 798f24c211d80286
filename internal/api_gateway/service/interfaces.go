package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/batches"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
	"github.com/statement-reconciliation/internal/reconciliation/ledger"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

// JobService hands long-running work to the job processor
type JobService interface {
	// Submit records a PENDING report and publishes the request; it returns the report
	Submit(ctx context.Context, request *shared.JobRequest) (*job.Report, error)

	// GetReport returns job.ErrReportNotFound for unknown ids
	GetReport(ctx context.Context, jobID uuid.UUID) (*job.Report, error)
}

// StatementService archives and imports uploaded statement files
type StatementService interface {
	Upload(ctx context.Context, fileName string, content []byte, operatorEmail string) (*UploadResult, error)
}

// RuleService manages stored rules
type RuleService interface {
	ValidateFormula(formulaText, schemaVersion string) error
	CreateRule(ctx context.Context, in rules.CreateRuleInput, operatorEmail string) (*rule.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

// BatchService splits records across payments and manages parsing locks
type BatchService interface {
	CreateBatch(ctx context.Context, rawUUID uuid.UUID, inputs []batches.PartitionInput, operatorEmail string) (*batch.Batch, error)
	DeleteBatch(ctx context.Context, batchUUID uuid.UUID, operatorEmail string) error
	ProposeFIFO(ctx context.Context, rawUUID uuid.UUID) (*batch.Proposal, error)
	ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) (*batches.UnboundPage, error)
	SetLock(ctx context.Context, rawUUID uuid.UUID, locked bool, operatorEmail string) error
}

// LedgerService posts accrual and order entries
type LedgerService interface {
	BulkInsert(ctx context.Context, inputs []ledger.EntryInput, operatorEmail string) (*ledger.BulkInsertReport, error)
}

// Importer stores a statement export
type Importer interface {
	Import(ctx context.Context, fileName string, content []byte, operatorEmail string) (*ingest.ImportReport, error)
}
