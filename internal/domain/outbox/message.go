package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Message records an assignment change in the same transaction that made it
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     shared.EventType    `json:"event_type"`
	RawRecordUUID *uuid.UUID          `json:"raw_record_uuid,omitempty"`
	OperatorEmail string              `json:"operator_email"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage marshals payload into a pending message with a fresh event id
func NewMessage(eventType shared.EventType, rawRecordUUID *uuid.UUID, operatorEmail string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:       uuid.New(),
		EventType:     eventType,
		RawRecordUUID: rawRecordUUID,
		OperatorEmail: operatorEmail,
		Payload:       data,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// DecodePayload unmarshals the payload into a generic document
func (m *Message) DecodePayload() (map[string]any, error) {
	var doc map[string]any
	if len(m.Payload) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(m.Payload, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
