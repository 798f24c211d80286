package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/statement-reconciliation/internal/config"
	"github.com/statement-reconciliation/internal/domain/shared"
)

const (
	HeaderJobType       = "job-type"
	HeaderCorrelationID = "correlation-id"
)

type JobRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewJobRequestProducer dials the brokers, ensures the job topic exists and returns a synchronous producer
func NewJobRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*JobRequestProducer, error) {
	if cfg.JobTopic == "" {
		return nil, fmt.Errorf("kafka job topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for job producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(ctx, conn, topicConfig(cfg.JobTopic, cfg.NumPartitions, cfg.ReplicationFactor), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure job topic %s exists: %w", cfg.JobTopic, err)
	}

	// writes are acknowledged by all replicas before Publish returns
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.JobTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &JobRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.JobTopic,
	}, nil
}

// Publish writes the job keyed by its id
func (p *JobRequestProducer) Publish(ctx context.Context, req *shared.JobRequest) error {
	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal job request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(req.JobID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderJobType, Value: []byte(req.Type)},
			{Key: HeaderCorrelationID, Value: []byte(req.CorrelationID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish job request",
			"topic", p.topic,
			"job_id", req.JobID.String(),
			"job_type", req.Type,
			"error", err,
		)
		return fmt.Errorf("failed to publish job request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published job request",
		"topic", p.topic,
		"job_id", req.JobID.String(),
		"job_type", req.Type,
	)
	return nil
}

func (p *JobRequestProducer) Close() error {
	p.logger.Info("Closing job request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
