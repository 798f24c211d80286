package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/reconciliation/recontest"
)

func incomingRecord(memo string) *rawrecord.RawRecord {
	return &rawrecord.RawRecord{
		UUID:        uuid.New(),
		Debit:       decimal.Zero,
		Credit:      decimal.NewFromInt(100),
		Sender:      rawrecord.Party{Name: "ACME LLC", INN: "123456789", Account: "GE00AC0000000000000001"},
		Beneficiary: rawrecord.Party{Name: "Us", INN: "999999999", Account: "GE00US0000000000000002"},
		Memo:        memo,
	}
}

func formulaRule(id int64, priority int, f string, target rule.Target) *rule.Rule {
	return &rule.Rule{
		ID:        id,
		Kind:      rule.KindFormula,
		Formula:   f,
		Target:    target,
		Priority:  priority,
		IsActive:  true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeriver_Derive(t *testing.T) {
	ctx := context.Background()
	acmeID := uuid.New()
	otherID := uuid.New()
	fcID := uuid.New()
	curID := uuid.New()
	acme := &counteragent.Counteragent{UUID: acmeID, INN: "123456789", IsActive: true}
	acmePayment := &payment.Payment{UUID: uuid.New(), PaymentID: "551200", CounteragentUUID: acmeID, FinancialCodeUUID: fcID, CurrencyUUID: curID}
	otherPayment := &payment.Payment{UUID: uuid.New(), PaymentID: "551200", CounteragentUUID: otherID}

	t.Run("counteragent by tax id of the sender", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(acme, nil)

		result, err := NewDeriver(recontest.Logger(), nil).Derive(ctx, incomingRecord("transfer"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceINN, result.Source)
		assert.Equal(t, &acmeID, result.Assignment.CounteragentUUID)
		assert.Nil(t, result.Assignment.PaymentID)
		assert.False(t, result.Assignment.Lock)
		pays.AssertNotCalled(t, "GetByPaymentID", mock.Anything, mock.Anything)
	})

	t.Run("memo payment accepted when counteragent agrees", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
		pays.On("GetByPaymentID", ctx, "551200").Return(acmePayment, nil)

		result, err := NewDeriver(recontest.Logger(), nil).Derive(ctx, incomingRecord("Payment ID: 551200"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceMemo, result.Source)
		require.NotNil(t, result.Assignment.PaymentID)
		assert.Equal(t, "551200", *result.Assignment.PaymentID)
		assert.Equal(t, &fcID, result.Target.FinancialCodeUUID)
		assert.Nil(t, result.Assignment.AppliedRuleID)
	})

	t.Run("memo payment of another counteragent is ignored", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
		pays.On("GetByPaymentID", ctx, "551200").Return(otherPayment, nil)

		result, err := NewDeriver(recontest.Logger(), nil).Derive(ctx, incomingRecord("invoice 551200"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceINN, result.Source)
		assert.Nil(t, result.Assignment.PaymentID)
	})

	t.Run("unknown memo payment is ignored", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(nil, nil)
		pays.On("GetByPaymentID", ctx, "551200").Return(nil, payment.ErrPaymentNotFound{PaymentID: "551200"})

		result, err := NewDeriver(recontest.Logger(), nil).Derive(ctx, incomingRecord("ref 551200"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceNone, result.Source)
		assert.Nil(t, result.Assignment.CounteragentUUID)
		assert.Nil(t, result.Assignment.PaymentID)
	})

	t.Run("first matching rule by priority wins and locks", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
		pays.On("GetByPaymentID", ctx, "777").Return(nil, payment.ErrPaymentNotFound{PaymentID: "777"})

		triple := rule.Target{CounteragentUUID: &acmeID, FinancialCodeUUID: &fcID, CurrencyUUID: &curID}
		pid := "777"
		rules := []*rule.Rule{
			formulaRule(1, 20, `SEARCH("SALARY", docinformation)`, triple),
			formulaRule(2, 10, `SEARCH("SALARY", docinformation)`, rule.Target{PaymentID: &pid}),
			formulaRule(3, 5, `SEARCH("RENT", docinformation)`, triple),
		}

		result, err := NewDeriver(recontest.Logger(), rules).Derive(ctx, incomingRecord("salary march"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceRule, result.Source)
		require.NotNil(t, result.Assignment.AppliedRuleID)
		assert.Equal(t, int64(2), *result.Assignment.AppliedRuleID)
		assert.True(t, result.Assignment.Lock)
		assert.Equal(t, "777", *result.Assignment.PaymentID)
		assert.Equal(t, &acmeID, result.Assignment.CounteragentUUID)
	})

	t.Run("triple rule keeps a memo payment of the same counteragent", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(acme, nil)
		pays.On("GetByPaymentID", ctx, "551200").Return(acmePayment, nil)

		otherFC := uuid.New()
		rules := []*rule.Rule{formulaRule(4, 1, `docsenderinn = "123456789"`, rule.Target{CounteragentUUID: &acmeID, FinancialCodeUUID: &otherFC, CurrencyUUID: &curID})}

		result, err := NewDeriver(recontest.Logger(), rules).Derive(ctx, incomingRecord("payment no 551200"), cas, pays)

		require.NoError(t, err)
		assert.Equal(t, SourceRule, result.Source)
		assert.Equal(t, "551200", *result.Assignment.PaymentID)
		assert.Equal(t, &otherFC, result.Target.FinancialCodeUUID)
	})

	t.Run("counteragent lookup failure", func(t *testing.T) {
		cas := new(recontest.MockCounteragentRepository)
		pays := new(recontest.MockPaymentRepository)
		cas.On("FindByINN", ctx, "123456789").Return(nil, errors.New("db down"))

		result, err := NewDeriver(recontest.Logger(), nil).Derive(ctx, incomingRecord(""), cas, pays)

		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestNewDeriver_SkipsBrokenRules(t *testing.T) {
	pid := "1"
	rules := []*rule.Rule{
		formulaRule(1, 1, `SEARCH("A", docinformation`, rule.Target{PaymentID: &pid}),
		{ID: 2, Kind: rule.KindSimple, Column: "docinformation", Operator: rule.OpContains, Value: "rent", Target: rule.Target{PaymentID: &pid}},
	}

	d := NewDeriver(recontest.Logger(), rules)

	require.Len(t, d.Rules(), 1)
	assert.Equal(t, int64(2), d.Rules()[0].Rule.ID)
}

func TestCompileRule_PrefersStoredTree(t *testing.T) {
	simple := &rule.Rule{Kind: rule.KindSimple, Column: "docinformation", Operator: rule.OpContains, Value: "rent"}
	program, err := CompileRule(simple)
	require.NoError(t, err)

	encoded, err := program.Encode()
	require.NoError(t, err)

	stored := &rule.Rule{Kind: rule.KindFormula, Formula: "not a formula (", Compiled: encoded}
	decoded, err := CompileRule(stored)

	require.NoError(t, err)
	assert.True(t, decoded.Matches(map[string]any{"docinformation": "Office RENT"}))
}

func TestResult_Changed(t *testing.T) {
	ca := uuid.New()
	rec := &rawrecord.RawRecord{CounteragentUUID: &ca}

	same := &Result{Assignment: rawrecord.Assignment{CounteragentUUID: &ca}}
	assert.False(t, same.Changed(rec))

	pid := "1"
	withPayment := &Result{Assignment: rawrecord.Assignment{CounteragentUUID: &ca, PaymentID: &pid}}
	assert.True(t, withPayment.Changed(rec))

	assert.True(t, (&Result{}).Changed(rec))
}

func TestMergeRuleTarget(t *testing.T) {
	recordCA, ruleCA, otherCA, project := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	bare := "P-404"
	memo := &payment.Payment{PaymentID: "204411", CounteragentUUID: ruleCA, ProjectUUID: &project}
	foreignMemo := &payment.Payment{PaymentID: "204412", CounteragentUUID: otherCA}

	tests := []struct {
		name        string
		target      consolidated.Target
		recordCA    *uuid.UUID
		memo        *payment.Payment
		wantCA      *uuid.UUID
		wantPayment *string
		wantProject *uuid.UUID
	}{
		{
			name:        "bare payment id keeps the record counteragent",
			target:      consolidated.Target{PaymentID: &bare},
			recordCA:    &recordCA,
			wantCA:      &recordCA,
			wantPayment: &bare,
		},
		{
			name:        "triple rule takes a memo payment of its counteragent",
			target:      consolidated.Target{CounteragentUUID: &ruleCA},
			recordCA:    &recordCA,
			memo:        memo,
			wantCA:      &ruleCA,
			wantPayment: &memo.PaymentID,
			wantProject: &project,
		},
		{
			name:   "triple rule drops a memo payment of another counteragent",
			target: consolidated.Target{CounteragentUUID: &ruleCA},
			memo:   foreignMemo,
			wantCA: &ruleCA,
		},
		{
			name:   "nothing to merge",
			target: consolidated.Target{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeRuleTarget(tt.target, tt.recordCA, tt.memo)
			assert.Equal(t, tt.wantCA, got.CounteragentUUID)
			assert.Equal(t, tt.wantPayment, got.PaymentID)
			assert.Equal(t, tt.wantProject, got.ProjectUUID)
		})
	}
}
