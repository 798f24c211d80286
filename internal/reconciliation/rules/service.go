// Package rules manages parsing rules and applies them to unprocessed raw records.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/formula"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/reconciliation/assignment"
)

// RuleResult reports the outcome of applying one rule
type RuleResult struct {
	RuleID       int64       `json:"rule_id"`
	MatchedCount int         `json:"matched_count"`
	UpdatedIDs   []uuid.UUID `json:"updated_ids,omitempty"`
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
}

// CreateRuleInput describes a rule before validation. Formula and Column are mutually exclusive.
type CreateRuleInput struct {
	Formula       string
	Column        string
	Operator      string
	Value         string
	Target        rule.Target
	Priority      int
	SchemaVersion string
}

// Repositories groups the stores the rule service writes through
type Repositories struct {
	Rules        rule.Repository
	RawRecords   rawrecord.Repository
	Payments     payment.Repository
	Consolidated consolidated.Repository
	Outbox       outbox.Repository
}

type Service struct {
	logger   *slog.Logger
	tx       persistence.Transactor
	repos    Repositories
	registry *rawrecord.Registry
	pageSize int
}

func NewService(logger *slog.Logger, tx persistence.Transactor, repos Repositories, registry *rawrecord.Registry, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Service{
		logger:   logger,
		tx:       tx,
		repos:    repos,
		registry: registry,
		pageSize: pageSize,
	}
}

// ValidateFormula checks a formula against the columns of a schema version
func (s *Service) ValidateFormula(formulaText, schemaVersion string) error {
	columns, err := s.registry.Columns(schemaVersion)
	if err != nil {
		return shared.ValidationError{Reason: shared.ReasonUnknownColumn, Message: err.Error()}
	}
	return formula.Validate(formulaText, columns.Columns)
}

// CreateRule validates, compiles and stores a rule
func (s *Service) CreateRule(ctx context.Context, in CreateRuleInput, operatorEmail string) (*rule.Rule, error) {
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	columns, err := s.registry.Columns(in.SchemaVersion)
	if err != nil {
		return nil, shared.ValidationError{Reason: shared.ReasonUnknownColumn, Message: err.Error()}
	}

	now := time.Now()
	r := &rule.Rule{
		Target:    in.Target,
		Priority:  in.Priority,
		IsActive:  true,
		CreatedBy: operatorEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var program *formula.Program
	if strings.TrimSpace(in.Formula) != "" {
		if in.Column != "" {
			return nil, shared.ValidationError{Reason: shared.ReasonSyntax, Message: "formula and column rules are mutually exclusive"}
		}
		if err := formula.Validate(in.Formula, columns.Columns); err != nil {
			return nil, err
		}
		if program, err = formula.Compile(in.Formula); err != nil {
			return nil, err
		}
		r.Kind = rule.KindFormula
		r.Formula = in.Formula
	} else {
		op, ok := rule.ParseOperator(in.Operator)
		if !ok {
			return nil, shared.ValidationError{Reason: shared.ReasonInvalidOperator, Names: []string{in.Operator}}
		}
		if !columns.Has(in.Column) {
			return nil, shared.ValidationError{Reason: shared.ReasonUnknownColumn, Names: []string{strings.ToLower(in.Column)}}
		}
		if program, err = formula.CompileSimple(in.Column, op, in.Value); err != nil {
			return nil, err
		}
		r.Kind = rule.KindSimple
		r.Column = strings.ToLower(in.Column)
		r.Operator = op
		r.Value = in.Value
	}

	if r.Compiled, err = program.Encode(); err != nil {
		return nil, err
	}

	if err := s.repos.Rules.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("Rule created", "rule_id", r.ID, "kind", string(r.Kind), "operator_email", operatorEmail)
	return r, nil
}

// DeleteRule soft deletes a rule; records it already assigned keep their assignment
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	if err := s.repos.Rules.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Rule deleted", "rule_id", id)
	return nil
}

// ApplyRules applies rules one at a time in evaluation order. Each rule runs in its own transaction
// and a failing rule does not stop the others.
func (s *Service) ApplyRules(ctx context.Context, ruleIDs []int64, operatorEmail string) ([]RuleResult, error) {
	found, err := s.repos.Rules.GetByIDs(ctx, ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	rule.Sort(found)

	results := make([]RuleResult, 0, len(ruleIDs))
	loaded := make(map[int64]struct{}, len(found))
	for _, r := range found {
		loaded[r.ID] = struct{}{}
		results = append(results, s.applyOne(ctx, r, operatorEmail))
	}
	for _, id := range ruleIDs {
		if _, ok := loaded[id]; !ok {
			results = append(results, RuleResult{RuleID: id, Error: rule.ErrRuleNotFound{ID: id}.Error()})
		}
	}
	return results, nil
}

func (s *Service) applyOne(ctx context.Context, r *rule.Rule, operatorEmail string) RuleResult {
	result := RuleResult{RuleID: r.ID}

	if !r.IsActive {
		result.Error = shared.PreconditionError{Subject: fmt.Sprintf("rule %d", r.ID), Reason: "rule is inactive"}.Error()
		return result
	}
	program, err := assignment.CompileRule(r)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var updated []uuid.UUID
	err = s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		updated = nil
		target, err := assignment.ResolveRuleTarget(ctx, r, s.repos.Payments.WithTx(tx))
		if err != nil {
			return err
		}

		after := uuid.Nil
		for {
			page, err := s.repos.RawRecords.WithTx(tx).ListUnprocessed(ctx, after, s.pageSize)
			if err != nil {
				return err
			}
			if len(page) == 0 {
				break
			}
			after = page[len(page)-1].UUID

			ids, err := s.applyToPage(ctx, tx, r, program, target, page, operatorEmail)
			if err != nil {
				return err
			}
			updated = append(updated, ids...)

			if len(page) < s.pageSize {
				break
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply rule", "rule_id", r.ID, "error", err)
		result.Error = err.Error()
		return result
	}

	result.MatchedCount = len(updated)
	result.UpdatedIDs = updated
	result.Success = true
	s.logger.Info("Rule applied", "rule_id", r.ID, "matched", result.MatchedCount)
	return result
}

// assignmentGroup is the set of matched records a rule assigns identically
type assignmentGroup struct {
	target consolidated.Target
	ids    []uuid.UUID
}

func (s *Service) applyToPage(ctx context.Context, tx pgx.Tx, r *rule.Rule, program *formula.Program, target consolidated.Target, page []*rawrecord.RawRecord, operatorEmail string) ([]uuid.UUID, error) {
	payments := s.repos.Payments.WithTx(tx)
	byID := make(map[uuid.UUID]*rawrecord.RawRecord, len(page))
	groups := make(map[string]*assignmentGroup)
	var order []string
	for _, rec := range page {
		if rec.ParsingLock || !program.Matches(rec.Values()) {
			continue
		}

		var memo *payment.Payment
		if target.PaymentID == nil && target.CounteragentUUID != nil {
			var err error
			if memo, err = assignment.MemoPayment(ctx, s.logger, rec, rec.CounteragentUUID, payments); err != nil {
				return nil, err
			}
		}
		merged := assignment.MergeRuleTarget(target, rec.CounteragentUUID, memo)

		key := targetKey(merged)
		g, ok := groups[key]
		if !ok {
			g = &assignmentGroup{target: merged}
			groups[key] = g
			order = append(order, key)
		}
		g.ids = append(g.ids, rec.UUID)
		byID[rec.UUID] = rec
	}

	ruleID := r.ID
	var updated []uuid.UUID
	var rows []*consolidated.Record
	var messages []*outbox.Message
	for _, key := range order {
		g := groups[key]
		ids, err := s.repos.RawRecords.WithTx(tx).ApplyAssignment(ctx, g.ids, rawrecord.Assignment{
			CounteragentUUID: g.target.CounteragentUUID,
			PaymentID:        g.target.PaymentID,
			AppliedRuleID:    &ruleID,
			Lock:             true,
		})
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			rec := byID[id]
			if rec == nil {
				continue
			}
			rec.CounteragentUUID = g.target.CounteragentUUID
			rec.PaymentID = g.target.PaymentID
			rec.AppliedRuleID = &ruleID
			rec.IsProcessed = true
			rec.ParsingLock = true
			rows = append(rows, consolidated.FromRawRecord(rec, g.target))

			rawID := id
			msg, err := outbox.NewMessage(shared.EventRuleApplied, &rawID, operatorEmail, map[string]any{
				"rule_id":           ruleID,
				"payment_id":        g.target.PaymentID,
				"counteragent_uuid": g.target.CounteragentUUID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to build outbox message: %w", err)
			}
			messages = append(messages, msg)
			updated = append(updated, id)
		}
	}
	if len(updated) == 0 {
		return nil, nil
	}

	if err := s.repos.Consolidated.WithTx(tx).Upsert(ctx, rows); err != nil {
		return nil, err
	}
	if err := s.repos.Outbox.WithTx(tx).Create(ctx, messages...); err != nil {
		return nil, err
	}
	return updated, nil
}

func targetKey(t consolidated.Target) string {
	str := func(id *uuid.UUID) string {
		if id == nil {
			return ""
		}
		return id.String()
	}
	pid := ""
	if t.PaymentID != nil {
		pid = *t.PaymentID
	}
	return str(t.CounteragentUUID) + "|" + pid + "|" + str(t.ProjectUUID)
}

// IsNotFound reports a missing or deleted rule
func IsNotFound(err error) bool {
	return errors.Is(err, rule.ErrRuleNotFound{})
}
