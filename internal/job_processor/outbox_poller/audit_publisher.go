package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/statement-reconciliation/internal/domain/audit"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// AuditPublisher moves one outbox message into the audit trail
type AuditPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

type AuditPublisherImpl struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

func NewAuditPublisher(outboxRepo outbox.Repository, auditRepo audit.Repository, logger *slog.Logger) AuditPublisher {
	return &AuditPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// Publish records the message in MongoDB and marks it processed. Recording is keyed by event id,
// so a message whose status update failed is recorded once when it is picked up again.
func (p *AuditPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "event_id", message.EventID.String(), "event_type", message.EventType)

	payload, err := message.DecodePayload()
	if err != nil {
		logger.Error("Failed to decode outbox payload", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	entry := &audit.Entry{
		EventID:       message.EventID,
		EventType:     message.EventType,
		RawRecordUUID: message.RawRecordUUID,
		OperatorEmail: message.OperatorEmail,
		Payload:       payload,
		OccurredAt:    message.CreatedAt,
	}
	if err := p.auditRepo.Record(ctx, entry); err != nil {
		logger.Error("Failed to record audit entry", "error", err)
		return fmt.Errorf("failed to record audit entry for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("audit write for outbox %d OK, but failed to mark it PROCESSED: %w", message.ID, err)
	}

	logger.Debug("Outbox message recorded in audit trail")
	return nil
}
