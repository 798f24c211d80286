package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/statement-reconciliation/internal/domain/shared"
)

// ErrJobInFlight is returned when a redelivered job is still running on another worker
var ErrJobInFlight = errors.New("job is already being processed")

// WorkerPoolProcessingService bounds how many jobs run at once
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	inFlight    map[uuid.UUID]struct{}
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		inFlight:    make(map[uuid.UUID]struct{}),
	}, nil
}

// ProcessJob submits the job to the pool and waits for its outcome
func (s *WorkerPoolProcessingService) ProcessJob(ctx context.Context, request *shared.JobRequest) error {
	logger := s.logger.With("job_id", request.JobID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	s.mu.Lock()
	if _, busy := s.inFlight[request.JobID]; busy {
		s.mu.Unlock()
		logger.Warn("Job already in flight, rejecting duplicate delivery")
		return ErrJobInFlight
	}
	s.inFlight[request.JobID] = struct{}{}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.inFlight, request.JobID)
		s.mu.Unlock()
	}

	resultChan := make(chan error, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				release()
				resultChan <- fmt.Errorf("job %s panicked: %v", requestCopy.JobID, p)
			}
		}()
		err := s.baseService.ProcessJob(ctx, &requestCopy)
		release()
		resultChan <- err
	})
	if err != nil {
		release()
		logger.Error("Failed to submit job to worker pool", "error", err)
		return err
	}

	logger.Debug("Job submitted to worker pool", "job_type", request.Type, "running_workers", s.pool.Running())
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
