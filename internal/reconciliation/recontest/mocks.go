// Package recontest holds testify mocks of the reconciliation repositories.
// WithTx returns the mock itself so expectations set before a transaction still apply inside it.
package recontest

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Logger discards output
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockRawRecordRepository struct {
	mock.Mock
}

func (m *MockRawRecordRepository) Upsert(ctx context.Context, records []*rawrecord.RawRecord) ([]uuid.UUID, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRawRecordRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*rawrecord.RawRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*rawrecord.RawRecord, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*rawrecord.RawRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) ListUnprocessed(ctx context.Context, after uuid.UUID, limit int) ([]*rawrecord.RawRecord, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) ListUnlockedBySource(ctx context.Context, source uuid.UUID, after uuid.UUID, limit int) ([]*rawrecord.RawRecord, error) {
	args := m.Called(ctx, source, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) ListUnlockedByPaymentID(ctx context.Context, paymentID string) ([]*rawrecord.RawRecord, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) ApplyAssignment(ctx context.Context, ids []uuid.UUID, a rawrecord.Assignment) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRawRecordRepository) ClearAutomated(ctx context.Context, source uuid.UUID) (int64, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRawRecordRepository) AssignBatch(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockRawRecordRepository) SetLock(ctx context.Context, id uuid.UUID, locked bool) error {
	args := m.Called(ctx, id, locked)
	return args.Error(0)
}

func (m *MockRawRecordRepository) CountUnbound(ctx context.Context, source *uuid.UUID) (int64, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRawRecordRepository) ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) ([]*rawrecord.RawRecord, error) {
	args := m.Called(ctx, source, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.RawRecord), args.Error(1)
}

func (m *MockRawRecordRepository) WithTx(tx pgx.Tx) rawrecord.Repository {
	return m
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*rawrecord.SourceAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rawrecord.SourceAccount), args.Error(1)
}

func (m *MockAccountRepository) FindByNumber(ctx context.Context, accountNumber string) ([]*rawrecord.SourceAccount, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.SourceAccount), args.Error(1)
}

func (m *MockAccountRepository) ListActive(ctx context.Context) ([]*rawrecord.SourceAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rawrecord.SourceAccount), args.Error(1)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) rawrecord.AccountRepository {
	return m
}

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Create(ctx context.Context, rl *rule.Rule) error {
	args := m.Called(ctx, rl)
	return args.Error(0)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id int64) (*rule.Rule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*rule.Rule, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) ListActive(ctx context.Context) ([]*rule.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rule.Rule), args.Error(1)
}

func (m *MockRuleRepository) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRuleRepository) WithTx(tx pgx.Tx) rule.Repository {
	return m
}

type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Insert(ctx context.Context, b *batch.Batch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBatchRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchRepository) GetByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (*batch.Batch, error) {
	args := m.Called(ctx, rawRecordUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchRepository) DeleteByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (int64, error) {
	args := m.Called(ctx, rawRecordUUID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return m
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]*payment.Payment, error) {
	args := m.Called(ctx, paymentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockPaymentRepository) Totals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]payment.Totals, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]payment.Totals), args.Error(1)
}

func (m *MockPaymentRepository) InsertEntries(ctx context.Context, entries []*payment.LedgerEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListOpen(ctx context.Context, counteragentUUID uuid.UUID) ([]*payment.OpenPayment, error) {
	args := m.Called(ctx, counteragentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.OpenPayment), args.Error(1)
}

func (m *MockPaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockConsolidatedRepository struct {
	mock.Mock
}

func (m *MockConsolidatedRepository) Upsert(ctx context.Context, records []*consolidated.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockConsolidatedRepository) ReplaceForRawRecord(ctx context.Context, rawRecordUUID uuid.UUID, records []*consolidated.Record) error {
	args := m.Called(ctx, rawRecordUUID, records)
	return args.Error(0)
}

func (m *MockConsolidatedRepository) ListByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) ([]*consolidated.Record, error) {
	args := m.Called(ctx, rawRecordUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*consolidated.Record), args.Error(1)
}

func (m *MockConsolidatedRepository) WithTx(tx pgx.Tx) consolidated.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, messages ...*outbox.Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockCounteragentRepository struct {
	mock.Mock
}

func (m *MockCounteragentRepository) FindByINN(ctx context.Context, inn string) (*counteragent.Counteragent, error) {
	args := m.Called(ctx, inn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*counteragent.Counteragent), args.Error(1)
}

func (m *MockCounteragentRepository) WithTx(tx pgx.Tx) counteragent.Repository {
	return m
}
