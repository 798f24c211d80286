package reparse

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/reconciliation/recontest"
)

type fixture struct {
	raw      *recontest.MockRawRecordRepository
	rules    *recontest.MockRuleRepository
	payments *recontest.MockPaymentRepository
	cas      *recontest.MockCounteragentRepository
	cons     *recontest.MockConsolidatedRepository
	outbox   *recontest.MockOutboxRepository
	accounts *recontest.MockAccountRepository
}

func newFixture(t *testing.T, pageSize int) (*Orchestrator, *fixture, pgxmock.PgxPoolIface) {
	f := &fixture{
		raw:      new(recontest.MockRawRecordRepository),
		rules:    new(recontest.MockRuleRepository),
		payments: new(recontest.MockPaymentRepository),
		cas:      new(recontest.MockCounteragentRepository),
		cons:     new(recontest.MockConsolidatedRepository),
		outbox:   new(recontest.MockOutboxRepository),
		accounts: new(recontest.MockAccountRepository),
	}
	tx, pool := recontest.NewTransactor(t)
	o := NewOrchestrator(recontest.Logger(), tx, Repositories{
		RawRecords:    f.raw,
		Rules:         f.rules,
		Payments:      f.payments,
		Counteragents: f.cas,
		Consolidated:  f.cons,
		Outbox:        f.outbox,
	}, rawrecord.NewRegistry(f.accounts, "v1"), pageSize)
	t.Cleanup(func() {
		assert.NoError(t, pool.ExpectationsWereMet())
	})
	return o, f, pool
}

func incoming(source uuid.UUID, memo string) *rawrecord.RawRecord {
	return &rawrecord.RawRecord{
		UUID:              uuid.New(),
		SourceAccountUUID: source,
		Credit:            decimal.NewFromInt(100),
		Sender:            rawrecord.Party{INN: "123456789"},
		Memo:              memo,
	}
}

func TestOrchestrator_ReparseByPaymentID(t *testing.T) {
	ctx := context.Background()
	o, f, pool := newFixture(t, 10)
	pool.ExpectBegin()
	pool.ExpectCommit()

	acme := &counteragent.Counteragent{UUID: uuid.New(), INN: "123456789"}
	fresh := incoming(uuid.New(), "rent")
	settled := incoming(fresh.SourceAccountUUID, "rent")
	settled.CounteragentUUID = &acme.UUID

	f.payments.On("GetByPaymentID", ctx, "PAY-1").Return(&payment.Payment{PaymentID: "PAY-1"}, nil)
	f.rules.On("ListActive", ctx).Return(nil, nil)
	f.raw.On("ListUnlockedByPaymentID", ctx, "PAY-1").Return([]*rawrecord.RawRecord{fresh, settled}, nil)
	f.cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
	f.raw.On("ApplyAssignment", ctx, []uuid.UUID{fresh.UUID}, rawrecord.Assignment{CounteragentUUID: &acme.UUID}).
		Return([]uuid.UUID{fresh.UUID}, nil)
	f.cons.On("Upsert", ctx, mock.Anything).Return(nil).Twice()
	f.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

	result := o.ReparseByPaymentID(ctx, "PAY-1", "ops@example.com")

	assert.True(t, result.Success, result.Error)
	assert.Equal(t, "payment:PAY-1", result.Scope)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Updated)
	f.raw.AssertNumberOfCalls(t, "ApplyAssignment", 1)
	f.cons.AssertExpectations(t)
}

func TestOrchestrator_ReparseByPaymentID_MissingPayment(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newFixture(t, 10)

	f.payments.On("GetByPaymentID", ctx, "NOPE").Return(nil, payment.ErrPaymentNotFound{PaymentID: "NOPE"})

	result := o.ReparseByPaymentID(ctx, "NOPE", "ops@example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "precondition failed")
	f.raw.AssertNotCalled(t, "ListUnlockedByPaymentID", mock.Anything, mock.Anything)
}

func TestOrchestrator_ReparseByPaymentID_LeavesBatchAlone(t *testing.T) {
	ctx := context.Background()
	o, f, pool := newFixture(t, 10)
	pool.ExpectBegin()
	pool.ExpectCommit()

	// the batch-covered record is locked, so the repository returns nothing for its partition payments
	f.payments.On("GetByPaymentID", ctx, "PAY-2").Return(&payment.Payment{PaymentID: "PAY-2"}, nil)
	f.rules.On("ListActive", ctx).Return(nil, nil)
	f.raw.On("ListUnlockedByPaymentID", ctx, "PAY-2").Return([]*rawrecord.RawRecord{}, nil)

	result := o.ReparseByPaymentID(ctx, "PAY-2", "ops@example.com")

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Processed)
	f.raw.AssertNotCalled(t, "ApplyAssignment", mock.Anything, mock.Anything, mock.Anything)
	f.cons.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestOrchestrator_ReparseBySourceID(t *testing.T) {
	ctx := context.Background()
	source := uuid.New()

	t.Run("locked record is reported, not touched", func(t *testing.T) {
		o, f, pool := newFixture(t, 10)
		pool.ExpectBegin()
		pool.ExpectRollback()

		rec := incoming(source, "rent")
		rec.ParsingLock = true
		f.accounts.On("GetByUUID", ctx, source).Return(&rawrecord.SourceAccount{UUID: source}, nil)
		f.rules.On("ListActive", ctx).Return(nil, nil)
		f.raw.On("LockForUpdate", ctx, rec.UUID).Return(rec, nil)

		result := o.ReparseBySourceID(ctx, source, rec.UUID, "ops@example.com")

		assert.False(t, result.Success)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Failures, 1)
		assert.Contains(t, result.Failures[0].Reason, "record is locked")
		f.cas.AssertNotCalled(t, "FindByINN", mock.Anything, mock.Anything)
	})

	t.Run("unknown source", func(t *testing.T) {
		o, f, _ := newFixture(t, 10)
		f.accounts.On("GetByUUID", ctx, source).Return(nil, rawrecord.ErrSourceAccountNotFound{UUID: source})

		result := o.ReparseBySourceID(ctx, source, uuid.New(), "ops@example.com")

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "source account not found")
	})

	t.Run("record of another account", func(t *testing.T) {
		o, f, pool := newFixture(t, 10)
		pool.ExpectBegin()
		pool.ExpectRollback()

		rec := incoming(uuid.New(), "rent")
		f.accounts.On("GetByUUID", ctx, source).Return(&rawrecord.SourceAccount{UUID: source}, nil)
		f.rules.On("ListActive", ctx).Return(nil, nil)
		f.raw.On("LockForUpdate", ctx, rec.UUID).Return(rec, nil)

		result := o.ReparseBySourceID(ctx, source, rec.UUID, "ops@example.com")

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "another source account")
	})

	t.Run("unchanged record refreshes consolidated row", func(t *testing.T) {
		o, f, pool := newFixture(t, 10)
		pool.ExpectBegin()
		pool.ExpectCommit()

		rec := incoming(source, "rent")
		f.accounts.On("GetByUUID", ctx, source).Return(&rawrecord.SourceAccount{UUID: source}, nil)
		f.rules.On("ListActive", ctx).Return(nil, nil)
		f.raw.On("LockForUpdate", ctx, rec.UUID).Return(rec, nil)
		f.cas.On("FindByINN", ctx, "123456789").Return(nil, nil)
		f.cons.On("Upsert", ctx, mock.Anything).Return(nil)

		result := o.ReparseBySourceID(ctx, source, rec.UUID, "ops@example.com")

		assert.True(t, result.Success)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 0, result.Updated)
		f.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestOrchestrator_Backparse_AccountsAreIndependent(t *testing.T) {
	ctx := context.Background()
	o, f, pool := newFixture(t, 10)
	// broken account: clear commits, first page rolls back
	pool.ExpectBegin()
	pool.ExpectCommit()
	pool.ExpectBegin()
	pool.ExpectRollback()
	// healthy account
	pool.ExpectBegin()
	pool.ExpectCommit()
	pool.ExpectBegin()
	pool.ExpectCommit()

	broken := &rawrecord.SourceAccount{UUID: uuid.New(), AccountNumber: "GE01", Currency: "GEL", IsActive: true}
	healthy := &rawrecord.SourceAccount{UUID: uuid.New(), AccountNumber: "GE02", Currency: "USD", IsActive: true}
	rec := incoming(healthy.UUID, "rent")
	acme := &counteragent.Counteragent{UUID: uuid.New()}

	f.accounts.On("ListActive", ctx).Return([]*rawrecord.SourceAccount{broken, healthy}, nil)
	f.rules.On("ListActive", ctx).Return(nil, nil)
	f.raw.On("ClearAutomated", ctx, broken.UUID).Return(int64(3), nil)
	f.raw.On("ClearAutomated", ctx, healthy.UUID).Return(int64(1), nil)
	f.raw.On("ListUnlockedBySource", ctx, broken.UUID, uuid.Nil, 10).Return(nil, errors.New("statement timeout"))
	f.raw.On("ListUnlockedBySource", ctx, healthy.UUID, uuid.Nil, 10).Return([]*rawrecord.RawRecord{rec}, nil)
	f.cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
	f.raw.On("ApplyAssignment", ctx, []uuid.UUID{rec.UUID}, mock.Anything).Return([]uuid.UUID{rec.UUID}, nil)
	f.cons.On("Upsert", ctx, mock.Anything).Return(nil)
	f.outbox.On("Create", ctx, mock.Anything).Return(nil)

	results, err := o.Backparse(ctx, nil, true, "ops@example.com")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "account:GE01/GEL", results[0].Scope)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "statement timeout")
	assert.Equal(t, "account:GE02/USD", results[1].Scope)
	assert.True(t, results[1].Success)
	assert.Equal(t, 1, results[1].Processed)
	assert.Equal(t, 1, results[1].Updated)
	assert.Equal(t, &acme.UUID, rec.CounteragentUUID)
	f.outbox.AssertNumberOfCalls(t, "Create", 3)
}

func TestOrchestrator_Backparse_PagesByKeyset(t *testing.T) {
	ctx := context.Background()
	o, f, pool := newFixture(t, 2)
	pool.ExpectBegin()
	pool.ExpectCommit()
	pool.ExpectBegin()
	pool.ExpectCommit()

	source := uuid.New()
	acc := &rawrecord.SourceAccount{UUID: source, AccountNumber: "GE01", Currency: "GEL", IsActive: true}
	first := []*rawrecord.RawRecord{incoming(source, "a"), incoming(source, "b")}
	second := []*rawrecord.RawRecord{}

	f.accounts.On("GetByUUID", ctx, source).Return(acc, nil)
	f.rules.On("ListActive", ctx).Return(nil, nil)
	f.raw.On("ListUnlockedBySource", ctx, source, uuid.Nil, 2).Return(first, nil)
	f.raw.On("ListUnlockedBySource", ctx, source, first[1].UUID, 2).Return(second, nil)
	f.cas.On("FindByINN", ctx, "123456789").Return(nil, nil)
	f.cons.On("Upsert", ctx, mock.Anything).Return(nil)

	results, err := o.Backparse(ctx, &source, false, "ops@example.com")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Processed)
	f.raw.AssertNotCalled(t, "ClearAutomated", mock.Anything, mock.Anything)
}

func TestOrchestrator_Backparse_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	o, f, _ := newFixture(t, 10)

	source := uuid.New()
	f.accounts.On("GetByUUID", ctx, source).Return(nil, rawrecord.ErrSourceAccountNotFound{UUID: source})

	results, err := o.Backparse(ctx, &source, false, "ops@example.com")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "source account not found")
}

func TestOrchestrator_ProcessRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("derives imported rows", func(t *testing.T) {
		o, f, pool := newFixture(t, 10)
		pool.ExpectBegin()
		pool.ExpectCommit()

		acme := &counteragent.Counteragent{UUID: uuid.New(), INN: "123456789"}
		rec := incoming(uuid.New(), "office rent")

		f.rules.On("ListActive", ctx).Return(nil, nil)
		f.raw.On("GetByUUIDs", ctx, []uuid.UUID{rec.UUID}).Return([]*rawrecord.RawRecord{rec}, nil)
		f.cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
		f.raw.On("ApplyAssignment", ctx, []uuid.UUID{rec.UUID}, rawrecord.Assignment{CounteragentUUID: &acme.UUID}).
			Return([]uuid.UUID{rec.UUID}, nil)
		f.cons.On("Upsert", ctx, mock.Anything).Return(nil).Once()
		f.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

		result := o.ProcessRecords(ctx, []uuid.UUID{rec.UUID}, "ops@example.com")

		assert.True(t, result.Success, result.Error)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, &acme.UUID, rec.CounteragentUUID)
	})

	t.Run("nothing to do", func(t *testing.T) {
		o, f, _ := newFixture(t, 10)

		result := o.ProcessRecords(ctx, nil, "ops@example.com")

		assert.True(t, result.Success)
		f.rules.AssertNotCalled(t, "ListActive", mock.Anything)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		o, f, pool := newFixture(t, 10)
		pool.ExpectBegin()
		pool.ExpectRollback()

		id := uuid.New()
		f.rules.On("ListActive", ctx).Return(nil, nil)
		f.raw.On("GetByUUIDs", ctx, []uuid.UUID{id}).Return(nil, errors.New("connection reset"))

		result := o.ProcessRecords(ctx, []uuid.UUID{id}, "ops@example.com")

		require.False(t, result.Success)
		assert.Equal(t, 1, result.Failed)
		assert.Contains(t, result.Error, "connection reset")
	})
}
