package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/statement-reconciliation/internal/api_gateway/service"
	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/batches"
	"github.com/statement-reconciliation/internal/reconciliation/ledger"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Submit(ctx context.Context, request *shared.JobRequest) (*job.Report, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Report), args.Error(1)
}

func (m *MockJobService) GetReport(ctx context.Context, jobID uuid.UUID) (*job.Report, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Report), args.Error(1)
}

type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) Upload(ctx context.Context, fileName string, content []byte, operatorEmail string) (*service.UploadResult, error) {
	args := m.Called(ctx, fileName, content, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

type MockRuleService struct {
	mock.Mock
}

func (m *MockRuleService) ValidateFormula(formulaText, schemaVersion string) error {
	args := m.Called(formulaText, schemaVersion)
	return args.Error(0)
}

func (m *MockRuleService) CreateRule(ctx context.Context, in rules.CreateRuleInput, operatorEmail string) (*rule.Rule, error) {
	args := m.Called(ctx, in, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rule.Rule), args.Error(1)
}

func (m *MockRuleService) DeleteRule(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) CreateBatch(ctx context.Context, rawUUID uuid.UUID, inputs []batches.PartitionInput, operatorEmail string) (*batch.Batch, error) {
	args := m.Called(ctx, rawUUID, inputs, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchService) DeleteBatch(ctx context.Context, batchUUID uuid.UUID, operatorEmail string) error {
	args := m.Called(ctx, batchUUID, operatorEmail)
	return args.Error(0)
}

func (m *MockBatchService) ProposeFIFO(ctx context.Context, rawUUID uuid.UUID) (*batch.Proposal, error) {
	args := m.Called(ctx, rawUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Proposal), args.Error(1)
}

func (m *MockBatchService) ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) (*batches.UnboundPage, error) {
	args := m.Called(ctx, source, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batches.UnboundPage), args.Error(1)
}

func (m *MockBatchService) SetLock(ctx context.Context, rawUUID uuid.UUID, locked bool, operatorEmail string) error {
	args := m.Called(ctx, rawUUID, locked, operatorEmail)
	return args.Error(0)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) BulkInsert(ctx context.Context, inputs []ledger.EntryInput, operatorEmail string) (*ledger.BulkInsertReport, error) {
	args := m.Called(ctx, inputs, operatorEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BulkInsertReport), args.Error(1)
}
