package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessJob(ctx context.Context, request *shared.JobRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

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

type MockRuleApplier struct {
	mock.Mock
}

func (m *MockRuleApplier) ApplyRules(ctx context.Context, ruleIDs []int64, operatorEmail string) ([]rules.RuleResult, error) {
	args := m.Called(ctx, ruleIDs, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rules.RuleResult), args.Error(1)
}

type MockReparser struct {
	mock.Mock
}

func (m *MockReparser) ReparseByPaymentID(ctx context.Context, paymentID, operatorEmail string) job.ScopeResult {
	args := m.Called(ctx, paymentID, operatorEmail)
	return args.Get(0).(job.ScopeResult)
}

func (m *MockReparser) ReparseBySourceID(ctx context.Context, source, rawUUID uuid.UUID, operatorEmail string) job.ScopeResult {
	args := m.Called(ctx, source, rawUUID, operatorEmail)
	return args.Get(0).(job.ScopeResult)
}

func (m *MockReparser) Backparse(ctx context.Context, source *uuid.UUID, clear bool, operatorEmail string) ([]job.ScopeResult, error) {
	args := m.Called(ctx, source, clear, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]job.ScopeResult), args.Error(1)
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

type MockObjectFetcher struct {
	mock.Mock
}

func (m *MockObjectFetcher) Get(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
