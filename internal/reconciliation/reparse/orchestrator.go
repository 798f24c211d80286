// Package reparse re-derives assignments of unlocked raw records after rules, payments or
// counteragents change. Locked records and batch-covered records are never touched.
package reparse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/reconciliation/assignment"
)

// Repositories groups the stores a reparse reads and writes
type Repositories struct {
	RawRecords    rawrecord.Repository
	Rules         rule.Repository
	Payments      payment.Repository
	Counteragents counteragent.Repository
	Consolidated  consolidated.Repository
	Outbox        outbox.Repository
}

type Orchestrator struct {
	logger   *slog.Logger
	tx       persistence.Transactor
	repos    Repositories
	registry *rawrecord.Registry
	pageSize int
}

func NewOrchestrator(logger *slog.Logger, tx persistence.Transactor, repos Repositories, registry *rawrecord.Registry, pageSize int) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Orchestrator{
		logger:   logger,
		tx:       tx,
		repos:    repos,
		registry: registry,
		pageSize: pageSize,
	}
}

// NewDeriver snapshots the active rules for one run
func (o *Orchestrator) NewDeriver(ctx context.Context) (*assignment.Deriver, error) {
	active, err := o.repos.Rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}
	return assignment.NewDeriver(o.logger, active), nil
}

// ReparseByPaymentID re-derives every unlocked record currently carrying the payment id
func (o *Orchestrator) ReparseByPaymentID(ctx context.Context, paymentID, operatorEmail string) job.ScopeResult {
	result := job.ScopeResult{Scope: "payment:" + paymentID}

	if _, err := o.repos.Payments.GetByPaymentID(ctx, paymentID); err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			err = shared.PreconditionError{Subject: "payment " + paymentID, Reason: "payment not found"}
		}
		result.Error = err.Error()
		return result
	}

	deriver, err := o.NewDeriver(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	err = o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		result.Processed, result.Updated = 0, 0
		records, err := o.repos.RawRecords.WithTx(tx).ListUnlockedByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			changed, err := o.reprocess(ctx, tx, deriver, rec, operatorEmail)
			if err != nil {
				return err
			}
			result.Processed++
			if changed {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		o.logger.Error("Failed to reparse payment", "payment_id", paymentID, "error", err)
		result.Error = err.Error()
		result.Failed = result.Processed
		result.Updated = 0
		return result
	}

	result.Success = true
	o.logger.Info("Payment reparsed", "payment_id", paymentID, "processed", result.Processed, "updated", result.Updated)
	return result
}

// ReparseBySourceID re-derives a single record of a registered source account
func (o *Orchestrator) ReparseBySourceID(ctx context.Context, source, rawUUID uuid.UUID, operatorEmail string) job.ScopeResult {
	result := job.ScopeResult{Scope: "source:" + source.String() + "/" + rawUUID.String()}
	fail := func(err error) job.ScopeResult {
		result.Error = err.Error()
		result.Failed = 1
		result.Failures = []job.ItemFailure{{ID: rawUUID.String(), Reason: err.Error()}}
		return result
	}

	if _, err := o.registry.Get(ctx, source); err != nil {
		if rawrecord.IsNotFound(err) {
			err = shared.PreconditionError{Subject: "source " + source.String(), Reason: "source account not found"}
		}
		return fail(err)
	}

	deriver, err := o.NewDeriver(ctx)
	if err != nil {
		return fail(err)
	}

	err = o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		rec, err := o.repos.RawRecords.WithTx(tx).LockForUpdate(ctx, rawUUID)
		if err != nil {
			if errors.Is(err, rawrecord.ErrRawRecordNotFound{}) {
				return shared.PreconditionError{Subject: "raw record " + rawUUID.String(), Reason: "record not found"}
			}
			return err
		}
		if rec.SourceAccountUUID != source {
			return shared.PreconditionError{Subject: "raw record " + rawUUID.String(), Reason: "record belongs to another source account"}
		}
		if rec.ParsingLock {
			return shared.PreconditionError{Subject: "raw record " + rawUUID.String(), Reason: "record is locked"}
		}

		changed, err := o.reprocess(ctx, tx, deriver, rec, operatorEmail)
		if err != nil {
			return err
		}
		if changed {
			result.Updated = 1
		}
		return nil
	})
	if err != nil {
		o.logger.Error("Failed to reparse record", "raw_record_uuid", rawUUID.String(), "error", err)
		result.Updated = 0
		return fail(err)
	}

	result.Processed = 1
	result.Success = true
	return result
}

// Backparse re-derives every unlocked record of one account, or of every active account when
// source is nil. Accounts are independent: a failing account is reported and the rest continue.
func (o *Orchestrator) Backparse(ctx context.Context, source *uuid.UUID, clear bool, operatorEmail string) ([]job.ScopeResult, error) {
	accounts, err := o.registry.Scope(ctx, source)
	if err != nil {
		if rawrecord.IsNotFound(err) && source != nil {
			return []job.ScopeResult{{
				Scope: "account:" + source.String(),
				Error: shared.PreconditionError{Subject: "source " + source.String(), Reason: "source account not found"}.Error(),
			}}, nil
		}
		return nil, err
	}

	deriver, err := o.NewDeriver(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]job.ScopeResult, 0, len(accounts))
	for _, acc := range accounts {
		results = append(results, o.backparseAccount(ctx, deriver, acc, clear, operatorEmail))
	}
	return results, nil
}

func (o *Orchestrator) backparseAccount(ctx context.Context, deriver *assignment.Deriver, acc *rawrecord.SourceAccount, clear bool, operatorEmail string) job.ScopeResult {
	result := job.ScopeResult{Scope: "account:" + acc.Label()}
	logger := o.logger.With("source_account_uuid", acc.UUID.String())

	if clear {
		err := o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
			cleared, err := o.repos.RawRecords.WithTx(tx).ClearAutomated(ctx, acc.UUID)
			if err != nil {
				return err
			}
			msg, err := outbox.NewMessage(shared.EventAssignmentCleared, nil, operatorEmail, map[string]any{
				"source_account_uuid": acc.UUID,
				"cleared":             cleared,
			})
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			logger.Info("Automated assignments cleared", "cleared", cleared)
			return o.repos.Outbox.WithTx(tx).Create(ctx, msg)
		})
		if err != nil {
			logger.Error("Failed to clear automated assignments", "error", err)
			result.Error = err.Error()
			return result
		}
	}

	after := uuid.Nil
	for {
		var page []*rawrecord.RawRecord
		updated := 0
		err := o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
			updated = 0
			var err error
			page, err = o.repos.RawRecords.WithTx(tx).ListUnlockedBySource(ctx, acc.UUID, after, o.pageSize)
			if err != nil {
				return err
			}
			for _, rec := range page {
				changed, err := o.reprocess(ctx, tx, deriver, rec, operatorEmail)
				if err != nil {
					return fmt.Errorf("raw record %s: %w", rec.UUID, err)
				}
				if changed {
					updated++
				}
			}
			return nil
		})
		if err != nil {
			logger.Error("Backparse page failed", "after", after.String(), "error", err)
			result.Error = err.Error()
			result.Failed += len(page)
			return result
		}

		result.Processed += len(page)
		result.Updated += updated
		if len(page) < o.pageSize {
			break
		}
		after = page[len(page)-1].UUID
	}

	result.Success = true
	logger.Info("Account backparsed", "processed", result.Processed, "updated", result.Updated)
	return result
}

// ProcessRecords derives assignments for the given records, typically the rows a statement import
// just inserted, in one transaction
func (o *Orchestrator) ProcessRecords(ctx context.Context, ids []uuid.UUID, operatorEmail string) job.ScopeResult {
	result := job.ScopeResult{Scope: "import"}
	if len(ids) == 0 {
		result.Success = true
		return result
	}

	deriver, err := o.NewDeriver(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	err = o.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		result.Processed, result.Updated = 0, 0
		records, err := o.repos.RawRecords.WithTx(tx).GetByUUIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, rec := range records {
			changed, err := o.reprocess(ctx, tx, deriver, rec, operatorEmail)
			if err != nil {
				return fmt.Errorf("raw record %s: %w", rec.UUID, err)
			}
			result.Processed++
			if changed {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		o.logger.Error("Failed to derive imported records", "count", len(ids), "error", err)
		result.Error = err.Error()
		result.Failed = len(ids)
		result.Processed, result.Updated = 0, 0
		return result
	}

	result.Success = true
	return result
}

// reprocess derives and writes one record inside tx; it reports whether the assignment changed
func (o *Orchestrator) reprocess(ctx context.Context, tx pgx.Tx, deriver *assignment.Deriver, rec *rawrecord.RawRecord, operatorEmail string) (bool, error) {
	if rec.ParsingLock {
		return false, nil
	}

	derived, err := deriver.Derive(ctx, rec, o.repos.Counteragents.WithTx(tx), o.repos.Payments.WithTx(tx))
	if err != nil {
		return false, err
	}

	changed := derived.Changed(rec)
	if changed {
		updated, err := o.repos.RawRecords.WithTx(tx).ApplyAssignment(ctx, []uuid.UUID{rec.UUID}, derived.Assignment)
		if err != nil {
			return false, err
		}
		if len(updated) == 0 {
			// locked by an operator since it was read
			return false, nil
		}
		a := derived.Assignment
		rec.CounteragentUUID = a.CounteragentUUID
		rec.PaymentID = a.PaymentID
		rec.AppliedRuleID = a.AppliedRuleID
		rec.IsProcessed = a.AppliedRuleID != nil
		rec.ParsingLock = a.Lock
	}

	row := consolidated.FromRawRecord(rec, derived.Target)
	if err := o.repos.Consolidated.WithTx(tx).Upsert(ctx, []*consolidated.Record{row}); err != nil {
		return false, err
	}

	if changed {
		rawID := rec.UUID
		msg, err := outbox.NewMessage(shared.EventRecordReparsed, &rawID, operatorEmail, map[string]any{
			"source":            string(derived.Source),
			"counteragent_uuid": rec.CounteragentUUID,
			"payment_id":        rec.PaymentID,
			"applied_rule_id":   rec.AppliedRuleID,
		})
		if err != nil {
			return false, fmt.Errorf("failed to build outbox message: %w", err)
		}
		if err := o.repos.Outbox.WithTx(tx).Create(ctx, msg); err != nil {
			return false, err
		}
	}
	return changed, nil
}
