package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/job_processor/service"
	"github.com/statement-reconciliation/internal/platform/messaging/producers"
)

// JobRequestHandler handles incoming job request messages from Kafka
type JobRequestHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewJobRequestHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *JobRequestHandler {
	return &JobRequestHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage decodes and runs one job. Requests that can never succeed go to the DLQ and are committed.
func (h *JobRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.JobRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal job request from Kafka message", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, fmt.Errorf("failed to unmarshal job request: %w", err))
	}

	logger := h.logger.With("job_id", request.JobID.String(), "job_type", request.Type)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	if err := request.Validate(); err != nil {
		logger.Error("Rejecting invalid job request", "error", err)
		return h.deadLetter(ctx, key, value, err)
	}

	logger.Info("Received job request for processing", "operator_email", request.OperatorEmail)

	if err := h.processingService.ProcessJob(ctx, &request); err != nil {
		logger.Error("Failed to process job", "error", err)
		return fmt.Errorf("processing job %s failed: %w", request.JobID, err)
	}
	return nil
}

func (h *JobRequestHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	if h.producer == nil {
		return cause
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, cause.Error()); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return cause
	}
	return nil
}
