// Package assignment derives the automated assignment of a raw record: counteragent by tax id,
// payment id from the memo, then the first matching active rule.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/formula"
	"github.com/statement-reconciliation/internal/statement"
)

// Source names the derivation step that produced a result
type Source string

const (
	SourceNone Source = ""
	SourceINN  Source = "INN"
	SourceMemo Source = "MEMO"
	SourceRule Source = "RULE"
)

// CompiledRule pairs a rule with its executable predicate
type CompiledRule struct {
	Rule    *rule.Rule
	Program *formula.Program
}

// CompileRule decodes the stored tree, recompiling from source when the stored form is missing or unreadable
func CompileRule(r *rule.Rule) (*formula.Program, error) {
	if len(r.Compiled) > 0 {
		if p, err := formula.Decode(r.Compiled); err == nil {
			return p, nil
		}
	}
	if r.Kind == rule.KindFormula {
		return formula.Compile(r.Formula)
	}
	return formula.CompileSimple(r.Column, r.Operator, r.Value)
}

// Result is the derived assignment and the consolidated target it implies
type Result struct {
	Assignment rawrecord.Assignment
	Target     consolidated.Target
	Source     Source
}

// Changed reports whether applying the result would alter the record's automated fields
func (r *Result) Changed(rec *rawrecord.RawRecord) bool {
	a := r.Assignment
	return !equalUUID(a.CounteragentUUID, rec.CounteragentUUID) ||
		!equalString(a.PaymentID, rec.PaymentID) ||
		!equalInt(a.AppliedRuleID, rec.AppliedRuleID) ||
		a.Lock != rec.ParsingLock
}

// Deriver evaluates one record at a time against a fixed snapshot of active rules
type Deriver struct {
	logger *slog.Logger
	rules  []CompiledRule
}

// NewDeriver compiles the rules in evaluation order; rules that fail to compile are skipped
func NewDeriver(logger *slog.Logger, rules []*rule.Rule) *Deriver {
	ordered := make([]*rule.Rule, len(rules))
	copy(ordered, rules)
	rule.Sort(ordered)

	compiled := make([]CompiledRule, 0, len(ordered))
	for _, r := range ordered {
		program, err := CompileRule(r)
		if err != nil {
			logger.Warn("Skipping rule that does not compile", "rule_id", r.ID, "error", err)
			continue
		}
		compiled = append(compiled, CompiledRule{Rule: r, Program: program})
	}
	return &Deriver{logger: logger, rules: compiled}
}

// Rules returns the compiled rules in evaluation order
func (d *Deriver) Rules() []CompiledRule {
	return d.rules
}

// Derive computes the assignment of an unlocked record. Repositories must share the caller's transaction.
func (d *Deriver) Derive(ctx context.Context, rec *rawrecord.RawRecord, counteragents counteragent.Repository, payments payment.Repository) (*Result, error) {
	result := &Result{}

	cp := rec.Counterparty()
	ca, err := counteragents.FindByINN(ctx, cp.INN)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve counteragent for %s: %w", rec.UUID, err)
	}
	if ca != nil {
		id := ca.UUID
		result.Assignment.CounteragentUUID = &id
		result.Target.CounteragentUUID = &id
		result.Source = SourceINN
	}

	memoPayment, err := MemoPayment(ctx, d.logger, rec, result.Assignment.CounteragentUUID, payments)
	if err != nil {
		return nil, err
	}
	if memoPayment != nil {
		result.Target = consolidated.TargetFromPayment(memoPayment)
		result.Assignment.CounteragentUUID = result.Target.CounteragentUUID
		result.Assignment.PaymentID = result.Target.PaymentID
		result.Source = SourceMemo
	}

	values := rec.Values()
	for _, cr := range d.rules {
		if !cr.Program.Matches(values) {
			continue
		}
		target, err := ResolveRuleTarget(ctx, cr.Rule, payments)
		if err != nil {
			return nil, err
		}
		target = MergeRuleTarget(target, result.Assignment.CounteragentUUID, memoPayment)
		ruleID := cr.Rule.ID
		result.Target = target
		result.Assignment = rawrecord.Assignment{
			CounteragentUUID: target.CounteragentUUID,
			PaymentID:        target.PaymentID,
			AppliedRuleID:    &ruleID,
			Lock:             true,
		}
		result.Source = SourceRule
		break
	}

	return result, nil
}

// MemoPayment looks up the payment id quoted in the record's memo or nomination. A payment of a
// different counteragent than counteragentUUID is ignored; a nil counteragentUUID accepts any.
func MemoPayment(ctx context.Context, logger *slog.Logger, rec *rawrecord.RawRecord, counteragentUUID *uuid.UUID, payments payment.Repository) (*payment.Payment, error) {
	pid := statement.ExtractPaymentID(rec.Memo)
	if pid == nil {
		pid = statement.ExtractPaymentID(rec.Nomination)
	}
	if pid == nil {
		return nil, nil
	}

	p, err := payments.GetByPaymentID(ctx, *pid)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up payment %s: %w", *pid, err)
	}
	if counteragentUUID != nil && *counteragentUUID != p.CounteragentUUID {
		logger.Debug("Memo payment belongs to another counteragent",
			"raw_record_uuid", rec.UUID.String(),
			"payment_id", *pid)
		return nil, nil
	}
	return p, nil
}

// MergeRuleTarget completes a resolved rule target with what the record already carries.
// A memo payment survives a rule without a payment id when it belongs to the rule's counteragent,
// and a target without a counteragent keeps the record's.
func MergeRuleTarget(target consolidated.Target, counteragentUUID *uuid.UUID, memo *payment.Payment) consolidated.Target {
	if target.PaymentID == nil && memo != nil && equalUUID(target.CounteragentUUID, &memo.CounteragentUUID) {
		pid := memo.PaymentID
		target.PaymentID = &pid
		target.ProjectUUID = memo.ProjectUUID
	}
	if target.CounteragentUUID == nil {
		target.CounteragentUUID = counteragentUUID
	}
	return target
}

// ResolveRuleTarget turns a rule target into a consolidated target. A payment-id target takes the
// payment's full identity; an unknown payment id is kept as a bare id.
func ResolveRuleTarget(ctx context.Context, r *rule.Rule, payments payment.Repository) (consolidated.Target, error) {
	if r.PaymentID != nil {
		p, err := payments.GetByPaymentID(ctx, *r.PaymentID)
		if err == nil {
			return consolidated.TargetFromPayment(p), nil
		}
		if !errors.Is(err, payment.ErrPaymentNotFound{}) {
			return consolidated.Target{}, fmt.Errorf("failed to resolve target of rule %d: %w", r.ID, err)
		}
		pid := *r.PaymentID
		return consolidated.Target{PaymentID: &pid}, nil
	}
	return consolidated.Target{
		CounteragentUUID:    r.CounteragentUUID,
		FinancialCodeUUID:   r.FinancialCodeUUID,
		NominalCurrencyUUID: r.CurrencyUUID,
	}, nil
}

func equalUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
