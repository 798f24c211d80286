package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

// ProcessingService runs one reconciliation job to completion and records its report
type ProcessingService interface {
	ProcessJob(ctx context.Context, request *shared.JobRequest) error
}

// RuleApplier applies stored rules to unprocessed raw records
type RuleApplier interface {
	ApplyRules(ctx context.Context, ruleIDs []int64, operatorEmail string) ([]rules.RuleResult, error)
}

// Reparser re-derives assignments of unlocked raw records
type Reparser interface {
	ReparseByPaymentID(ctx context.Context, paymentID, operatorEmail string) job.ScopeResult
	ReparseBySourceID(ctx context.Context, source, rawUUID uuid.UUID, operatorEmail string) job.ScopeResult
	Backparse(ctx context.Context, source *uuid.UUID, clear bool, operatorEmail string) ([]job.ScopeResult, error)
}

// Importer stores a statement export
type Importer interface {
	Import(ctx context.Context, fileName string, content []byte, operatorEmail string) (*ingest.ImportReport, error)
}

// ObjectFetcher downloads archived statement files
type ObjectFetcher interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}
