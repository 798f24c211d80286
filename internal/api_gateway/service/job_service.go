package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/messaging/producers"
)

// JobServiceImpl implements the JobService interface
type JobServiceImpl struct {
	reports  job.Repository
	producer producers.JobPublisher
	logger   *slog.Logger
}

func NewJobService(logger *slog.Logger, reports job.Repository, producer producers.JobPublisher) JobService {
	return &JobServiceImpl{
		reports:  reports,
		producer: producer,
		logger:   logger,
	}
}

func (s *JobServiceImpl) Submit(ctx context.Context, request *shared.JobRequest) (*job.Report, error) {
	if request.JobID == uuid.Nil {
		request.JobID = uuid.New()
	}
	if request.Timestamp.IsZero() {
		request.Timestamp = time.Now().UTC()
	}
	if request.CorrelationID == "" {
		request.CorrelationID = shared.CorrelationIDFromContext(ctx)
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	report := job.NewPendingReport(request)
	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("Failed to create job report", "job_id", request.JobID.String(), "error", err)
		return nil, err
	}

	if err := s.producer.Publish(ctx, request); err != nil {
		s.logger.Error("Failed to publish job request",
			"job_id", request.JobID.String(),
			"job_type", request.Type,
			"error", err,
		)
		if finishErr := s.reports.Finish(ctx, request.JobID, shared.JobStatusFailed, nil, "failed to enqueue job: "+err.Error()); finishErr != nil {
			s.logger.Error("Failed to mark unpublished job as failed", "job_id", request.JobID.String(), "error", finishErr)
		}
		return nil, err
	}

	s.logger.Info("Job request published",
		"job_id", request.JobID.String(),
		"job_type", request.Type,
		"operator_email", request.OperatorEmail,
	)
	return report, nil
}

func (s *JobServiceImpl) GetReport(ctx context.Context, jobID uuid.UUID) (*job.Report, error) {
	report, err := s.reports.GetByJobID(ctx, jobID)
	if err != nil {
		if !errors.Is(err, job.ErrReportNotFound{}) {
			s.logger.Error("Failed to get job report", "job_id", jobID.String(), "error", err)
		}
		return nil, err
	}
	return report, nil
}
