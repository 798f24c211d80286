// Package ledger posts accrual and order entries against payments while keeping each
// payment's cumulative order within its cumulative accrual.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// EntryInput is one requested ledger posting
type EntryInput struct {
	PaymentID     string          `json:"payment_id"`
	EffectiveDate time.Time       `json:"effective_date"`
	Accrual       decimal.Decimal `json:"accrual"`
	Order         decimal.Decimal `json:"order"`
	Comment       string          `json:"comment,omitempty"`
}

// BulkInsertReport lists what was posted and which items were rejected before the write
type BulkInsertReport struct {
	Inserted int                       `json:"inserted"`
	Failed   int                       `json:"failed"`
	Failures []job.ItemFailure         `json:"failures,omitempty"`
	Totals   map[string]payment.Totals `json:"totals,omitempty"`
}

type Service struct {
	logger   *slog.Logger
	tx       persistence.Transactor
	payments payment.Repository
	outbox   outbox.Repository
}

func NewService(logger *slog.Logger, tx persistence.Transactor, payments payment.Repository, outboxRepo outbox.Repository) *Service {
	return &Service{
		logger:   logger,
		tx:       tx,
		payments: payments,
		outbox:   outboxRepo,
	}
}

// BulkInsert posts the valid entries in one transaction. Invalid items are reported and skipped;
// a payment whose order would exceed its accrual aborts the whole write.
func (s *Service) BulkInsert(ctx context.Context, inputs []EntryInput, operatorEmail string) (*BulkInsertReport, error) {
	report := &BulkInsertReport{}
	reject := func(i int, reason string) {
		report.Failures = append(report.Failures, job.ItemFailure{ID: strconv.Itoa(i), Reason: reason})
	}

	candidates := make(map[int]*payment.LedgerEntry, len(inputs))
	var ids []string
	seen := make(map[string]struct{})
	for i, in := range inputs {
		entry := &payment.LedgerEntry{
			PaymentID:     in.PaymentID,
			EffectiveDate: in.EffectiveDate,
			Accrual:       in.Accrual,
			Order:         in.Order,
			Comment:       in.Comment,
			UserEmail:     operatorEmail,
			CreatedAt:     time.Now(),
		}
		if err := entry.Validate(); err != nil {
			reject(i, err.Error())
			continue
		}
		candidates[i] = entry
		if _, ok := seen[in.PaymentID]; !ok {
			seen[in.PaymentID] = struct{}{}
			ids = append(ids, in.PaymentID)
		}
	}

	var found map[string]*payment.Payment
	if len(ids) > 0 {
		var err error
		found, err = s.payments.GetByPaymentIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve payments: %w", err)
		}
	}

	var entries []*payment.LedgerEntry
	for i := range inputs {
		entry, ok := candidates[i]
		if !ok {
			continue
		}
		p, ok := found[entry.PaymentID]
		if !ok {
			reject(i, payment.ErrPaymentNotFound{PaymentID: entry.PaymentID}.Error())
			continue
		}
		entry.PaymentUUID = p.UUID
		entries = append(entries, entry)
	}
	sort.SliceStable(report.Failures, func(a, b int) bool {
		x, _ := strconv.Atoi(report.Failures[a].ID)
		y, _ := strconv.Atoi(report.Failures[b].ID)
		return x < y
	})
	report.Failed = len(report.Failures)

	if len(entries) == 0 {
		return report, nil
	}

	err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		payments := s.payments.WithTx(tx)

		paymentUUIDs := uniquePayments(entries)
		if err := payments.LockForUpdate(ctx, paymentUUIDs); err != nil {
			return err
		}
		totals, err := payments.Totals(ctx, paymentUUIDs)
		if err != nil {
			return err
		}

		names := make(map[uuid.UUID]string, len(paymentUUIDs))
		for _, e := range entries {
			totals[e.PaymentUUID] = totals[e.PaymentUUID].Add(e)
			names[e.PaymentUUID] = e.PaymentID
		}
		for _, id := range paymentUUIDs {
			if err := totals[id].CheckOrderWithinAccrual(names[id]); err != nil {
				return err
			}
		}

		if err := payments.InsertEntries(ctx, entries); err != nil {
			return err
		}

		messages := make([]*outbox.Message, 0, len(paymentUUIDs))
		report.Totals = make(map[string]payment.Totals, len(paymentUUIDs))
		for _, id := range paymentUUIDs {
			t := totals[id]
			report.Totals[names[id]] = t
			msg, err := outbox.NewMessage(shared.EventLedgerPosted, nil, operatorEmail, map[string]any{
				"payment_id": names[id],
				"accrual":    t.Accrual.StringFixed(2),
				"order":      t.Order.StringFixed(2),
			})
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			messages = append(messages, msg)
		}
		return s.outbox.WithTx(tx).Create(ctx, messages...)
	})
	if err != nil {
		s.logger.Error("Ledger bulk insert aborted", "entries", len(entries), "error", err)
		return nil, err
	}

	report.Inserted = len(entries)
	s.logger.Info("Ledger entries posted", "inserted", report.Inserted, "failed", report.Failed, "operator_email", operatorEmail)
	return report, nil
}

// uniquePayments returns the payment uuids in a stable order so row locks are taken consistently
func uniquePayments(entries []*payment.LedgerEntry) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(entries))
	var ids []uuid.UUID
	for _, e := range entries {
		if _, ok := set[e.PaymentUUID]; ok {
			continue
		}
		set[e.PaymentUUID] = struct{}{}
		ids = append(ids, e.PaymentUUID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
