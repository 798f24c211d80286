package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/objectstore"
)

type ProcessingServiceImpl struct {
	reports  job.Repository
	rules    RuleApplier
	reparser Reparser
	importer Importer
	objects  ObjectFetcher
	logger   *slog.Logger
}

func NewProcessingService(
	reports job.Repository,
	rules RuleApplier,
	reparser Reparser,
	importer Importer,
	objects ObjectFetcher,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		reports:  reports,
		rules:    rules,
		reparser: reparser,
		importer: importer,
		objects:  objects,
		logger:   logger,
	}
}

// ProcessJob runs the job and stores its per-scope outcome. Job failures end up in the report;
// only report bookkeeping errors are returned so the message is redelivered.
func (s *ProcessingServiceImpl) ProcessJob(ctx context.Context, request *shared.JobRequest) error {
	logger := s.logger.With("job_id", request.JobID.String(), "job_type", request.Type)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	// 1. Check idempotency
	skip, err := s.prepareReport(ctx, request)
	if err != nil {
		logger.Error("Failed to prepare job report", "error", err)
		return err
	}
	if skip {
		logger.Info("Job already finished, skipping redelivered request")
		return nil
	}

	// 2. Mark running
	if err := s.reports.MarkRunning(ctx, request.JobID); err != nil {
		logger.Error("Failed to mark job running", "error", err)
		return fmt.Errorf("failed to mark job %s running: %w", request.JobID, err)
	}

	// 3. Run
	logger.Info("Processing job")
	scopes, runErr := s.run(ctx, request)

	// 4. Record outcome
	status := job.FinalStatus(scopes)
	errMsg := ""
	if runErr != nil {
		status = shared.JobStatusFailed
		errMsg = runErr.Error()
		logger.Error("Job failed", "error", runErr)
	}
	if err := s.reports.Finish(ctx, request.JobID, status, scopes, errMsg); err != nil {
		logger.Error("Failed to record job outcome", "status", status, "error", err)
		return fmt.Errorf("failed to finish job %s: %w", request.JobID, err)
	}

	logger.Info("Job finished", "status", status, "scopes", len(scopes))
	return nil
}

// prepareReport makes sure a report exists; it reports true when the job already reached a final state
func (s *ProcessingServiceImpl) prepareReport(ctx context.Context, request *shared.JobRequest) (bool, error) {
	report, err := s.reports.GetByJobID(ctx, request.JobID)
	if err == nil {
		return report.Status == shared.JobStatusCompleted || report.Status == shared.JobStatusFailed, nil
	}
	if !errors.Is(err, job.ErrReportNotFound{}) {
		return false, fmt.Errorf("failed to load job report %s: %w", request.JobID, err)
	}

	// published without a report, e.g. replayed from the dead letter topic
	if err := s.reports.Create(ctx, job.NewPendingReport(request)); err != nil && !errors.Is(err, job.ErrDuplicateReport{}) {
		return false, fmt.Errorf("failed to create job report %s: %w", request.JobID, err)
	}
	return false, nil
}

func (s *ProcessingServiceImpl) run(ctx context.Context, request *shared.JobRequest) ([]job.ScopeResult, error) {
	switch request.Type {
	case shared.JobTypeApplyRules:
		results, err := s.rules.ApplyRules(ctx, request.RuleIDs, request.OperatorEmail)
		if err != nil {
			return nil, err
		}
		scopes := make([]job.ScopeResult, 0, len(results))
		for _, r := range results {
			scope := job.ScopeResult{
				Scope:     "rule:" + strconv.FormatInt(r.RuleID, 10),
				Processed: r.MatchedCount,
				Updated:   r.MatchedCount,
				Success:   r.Success,
				Error:     r.Error,
			}
			if !r.Success {
				scope.Failed = 1
			}
			scopes = append(scopes, scope)
		}
		return scopes, nil

	case shared.JobTypeReparsePayment:
		return []job.ScopeResult{s.reparser.ReparseByPaymentID(ctx, request.PaymentID, request.OperatorEmail)}, nil

	case shared.JobTypeReparseSource:
		return []job.ScopeResult{
			s.reparser.ReparseBySourceID(ctx, *request.SourceAccount, *request.RawRecordUUID, request.OperatorEmail),
		}, nil

	case shared.JobTypeBackparse:
		return s.reparser.Backparse(ctx, request.SourceAccount, request.Clear, request.OperatorEmail)

	case shared.JobTypeImportObject:
		return s.importObject(ctx, request)
	}
	return nil, fmt.Errorf("%w: unknown job type %q", shared.ErrInvalidJobRequest, request.Type)
}

func (s *ProcessingServiceImpl) importObject(ctx context.Context, request *shared.JobRequest) ([]job.ScopeResult, error) {
	scope := job.ScopeResult{Scope: "object:" + request.ObjectURI}

	content, err := s.objects.Get(ctx, request.ObjectURI)
	if err != nil {
		scope.Error = err.Error()
		return []job.ScopeResult{scope}, nil
	}

	report, err := s.importer.Import(ctx, objectstore.FileName(request.ObjectURI), content, request.OperatorEmail)
	if err != nil {
		scope.Error = err.Error()
		return []job.ScopeResult{scope}, nil
	}

	scope.Processed = report.Total
	scope.Updated = report.Inserted
	scope.Success = true
	return []job.ScopeResult{scope, report.Derivation}, nil
}
