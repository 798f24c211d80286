package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *job.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*job.Report, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Report), args.Error(1)
}

func (m *MockReportRepository) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockReportRepository) Finish(ctx context.Context, jobID uuid.UUID, status shared.JobStatus, scopes []job.ScopeResult, errMsg string) error {
	args := m.Called(ctx, jobID, status, scopes, errMsg)
	return args.Error(0)
}

type MockJobPublisher struct {
	mock.Mock
}

func (m *MockJobPublisher) Publish(ctx context.Context, request *shared.JobRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockJobPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockStatementStore struct {
	mock.Mock
}

func (m *MockStatementStore) Put(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

func (m *MockStatementStore) Get(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStatementStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, fileName string, content []byte, operatorEmail string) (*ingest.ImportReport, error) {
	args := m.Called(ctx, fileName, content, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.ImportReport), args.Error(1)
}
