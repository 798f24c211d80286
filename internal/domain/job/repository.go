package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Repository manages job reports
type Repository interface {
	Create(ctx context.Context, report *Report) error
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*Report, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	Finish(ctx context.Context, jobID uuid.UUID, status shared.JobStatus, scopes []ScopeResult, errMsg string) error
}

// ErrReportNotFound indicates missing job report
type ErrReportNotFound struct {
	JobID uuid.UUID
}

func (e ErrReportNotFound) Error() string {
	return "job report not found: " + e.JobID.String()
}

// Is implements the errors.Is interface for ErrReportNotFound
func (e ErrReportNotFound) Is(target error) bool {
	t, ok := target.(ErrReportNotFound)
	if !ok {
		return false
	}
	if t.JobID == uuid.Nil {
		return true
	}
	return e.JobID == t.JobID
}

// ErrDuplicateReport indicates a job id that was already submitted
type ErrDuplicateReport struct {
	JobID uuid.UUID
}

func (e ErrDuplicateReport) Error() string {
	return "duplicate job report: " + e.JobID.String()
}

// Is implements the errors.Is interface for ErrDuplicateReport
func (e ErrDuplicateReport) Is(target error) bool {
	t, ok := target.(ErrDuplicateReport)
	if !ok {
		return false
	}
	return t.JobID == uuid.Nil || e.JobID == t.JobID
}
