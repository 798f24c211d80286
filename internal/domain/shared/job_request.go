package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidJobRequest = errors.New("invalid job request")

// JobRequest defines a Kafka message asking the job processor to run one reconciliation job
type JobRequest struct {
	JobID         uuid.UUID  `json:"job_id"`
	Type          JobType    `json:"type"`
	RuleIDs       []int64    `json:"rule_ids,omitempty"`
	PaymentID     string     `json:"payment_id,omitempty"`
	SourceAccount *uuid.UUID `json:"source_account,omitempty"`
	RawRecordUUID *uuid.UUID `json:"raw_record_uuid,omitempty"`
	Clear         bool       `json:"clear,omitempty"`
	ObjectURI     string     `json:"object_uri,omitempty"`
	OperatorEmail string     `json:"operator_email"`
	CorrelationID string     `json:"correlation_id"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Validate checks that the fields required by the job type are present
func (r *JobRequest) Validate() error {
	if r.JobID == uuid.Nil {
		return fmt.Errorf("%w: job id is required", ErrInvalidJobRequest)
	}
	switch r.Type {
	case JobTypeApplyRules:
		if len(r.RuleIDs) == 0 {
			return fmt.Errorf("%w: rule ids are required", ErrInvalidJobRequest)
		}
	case JobTypeReparsePayment:
		if r.PaymentID == "" {
			return fmt.Errorf("%w: payment id is required", ErrInvalidJobRequest)
		}
	case JobTypeReparseSource:
		if r.SourceAccount == nil || r.RawRecordUUID == nil {
			return fmt.Errorf("%w: source account and raw record are required", ErrInvalidJobRequest)
		}
	case JobTypeImportObject:
		if r.ObjectURI == "" {
			return fmt.Errorf("%w: object uri is required", ErrInvalidJobRequest)
		}
	case JobTypeBackparse:
	default:
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidJobRequest, r.Type)
	}
	return nil
}
