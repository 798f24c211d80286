package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Entry is one attributed assignment change in the audit trail
type Entry struct {
	EventID       uuid.UUID        `json:"event_id" bson:"event_id"`
	EventType     shared.EventType `json:"event_type" bson:"event_type"`
	RawRecordUUID *uuid.UUID       `json:"raw_record_uuid,omitempty" bson:"raw_record_uuid,omitempty"`
	OperatorEmail string           `json:"operator_email,omitempty" bson:"operator_email,omitempty"`
	Payload       map[string]any   `json:"payload,omitempty" bson:"payload,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	RecordedAt    time.Time        `json:"recorded_at" bson:"recorded_at"`
}
