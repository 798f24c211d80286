package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// ItemFailure names one item that failed inside a scope, enough to retry just that item
type ItemFailure struct {
	ID     string `json:"id" bson:"id"`
	Reason string `json:"reason" bson:"reason"`
}

// ScopeResult summarizes one independently processed scope: a rule, an account, a payment id
type ScopeResult struct {
	Scope     string        `json:"scope" bson:"scope"`
	Processed int           `json:"processed" bson:"processed"`
	Updated   int           `json:"updated" bson:"updated"`
	Failed    int           `json:"failed" bson:"failed"`
	Success   bool          `json:"success" bson:"success"`
	Error     string        `json:"error,omitempty" bson:"error,omitempty"`
	Failures  []ItemFailure `json:"failures,omitempty" bson:"failures,omitempty"`
}

// Report tracks an asynchronous job from request to per-scope outcome
type Report struct {
	JobID         uuid.UUID          `json:"job_id" bson:"job_id"`
	Type          shared.JobType     `json:"type" bson:"type"`
	Status        shared.JobStatus   `json:"status" bson:"status"`
	Request       *shared.JobRequest `json:"request,omitempty" bson:"request,omitempty"`
	Scopes        []ScopeResult      `json:"scopes,omitempty" bson:"scopes,omitempty"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
	OperatorEmail string             `json:"operator_email,omitempty" bson:"operator_email,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	StartedAt     *time.Time         `json:"started_at,omitempty" bson:"started_at,omitempty"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
}

// NewPendingReport starts tracking a job request
func NewPendingReport(req *shared.JobRequest) *Report {
	return &Report{
		JobID:         req.JobID,
		Type:          req.Type,
		Status:        shared.JobStatusPending,
		Request:       req,
		OperatorEmail: req.OperatorEmail,
		CorrelationID: req.CorrelationID,
		CreatedAt:     time.Now(),
	}
}

// FinalStatus is COMPLETED when every scope succeeded, FAILED otherwise
func FinalStatus(scopes []ScopeResult) shared.JobStatus {
	for _, s := range scopes {
		if !s.Success {
			return shared.JobStatusFailed
		}
	}
	return shared.JobStatusCompleted
}
