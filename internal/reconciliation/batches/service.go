// Package batches splits one raw record across several payments and maintains the
// unbound-record view used to find records still waiting for a split.
package batches

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// PartitionInput targets one payment by id or uuid with an unsigned share of the record
type PartitionInput struct {
	PaymentID     *string          `json:"payment_id,omitempty"`
	PaymentUUID   *uuid.UUID       `json:"payment_uuid,omitempty"`
	Amount        decimal.Decimal  `json:"partition_amount"`
	NominalAmount *decimal.Decimal `json:"nominal_amount,omitempty"`
}

// Repositories groups the stores batch writes go through
type Repositories struct {
	RawRecords   rawrecord.Repository
	Batches      batch.Repository
	Payments     payment.Repository
	Consolidated consolidated.Repository
	Outbox       outbox.Repository
}

type Service struct {
	logger    *slog.Logger
	tx        persistence.Transactor
	repos     Repositories
	tolerance decimal.Decimal
}

func NewService(logger *slog.Logger, tx persistence.Transactor, repos Repositories, tolerance float64) *Service {
	return &Service{
		logger:    logger,
		tx:        tx,
		repos:     repos,
		tolerance: decimal.NewFromFloat(tolerance),
	}
}

// CreateBatch replaces any batch of the record with the given partitions, points the record's
// payment id at the new batch token and locks it
func (s *Service) CreateBatch(ctx context.Context, rawUUID uuid.UUID, inputs []PartitionInput, operatorEmail string) (*batch.Batch, error) {
	var created *batch.Batch
	err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		raws := s.repos.RawRecords.WithTx(tx)
		batches := s.repos.Batches.WithTx(tx)

		rec, err := raws.LockForUpdate(ctx, rawUUID)
		if err != nil {
			return err
		}

		existing, err := batches.GetByRawRecord(ctx, rawUUID)
		if err != nil {
			return err
		}
		if rec.ParsingLock && !ownedByBatch(rec, existing) {
			return shared.PreconditionError{
				Subject: "raw record " + rawUUID.String(),
				Reason:  "record is locked",
			}
		}

		partitions, err := s.resolvePartitions(ctx, s.repos.Payments.WithTx(tx), inputs)
		if err != nil {
			return err
		}

		b, err := batch.New(rec.UUID, rec.SourceAccountUUID, partitions, operatorEmail)
		if err != nil {
			return err
		}
		if err := b.CheckSum(rec.Magnitude(), s.tolerance); err != nil {
			return err
		}

		if existing != nil {
			if _, err := batches.DeleteByRawRecord(ctx, rawUUID); err != nil {
				return err
			}
		}
		if err := batches.Insert(ctx, b); err != nil {
			return err
		}
		if err := raws.AssignBatch(ctx, rawUUID, b.BatchID); err != nil {
			return err
		}
		token := b.BatchID
		rec.PaymentID = &token
		rec.ParsingLock = true

		if err := s.repos.Consolidated.WithTx(tx).ReplaceForRawRecord(ctx, rawUUID, consolidated.FromPartitions(rec, b)); err != nil {
			return err
		}

		payload := map[string]any{
			"batch_uuid": b.UUID,
			"batch_id":   b.BatchID,
			"partitions": len(b.Partitions),
			"total":      b.Total().StringFixed(2),
		}
		if existing != nil {
			payload["replaced_batch_uuid"] = existing.UUID
		}
		if err := s.writeEvent(ctx, tx, shared.EventBatchCreated, rawUUID, operatorEmail, payload); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create batch", "raw_record_uuid", rawUUID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Batch created",
		"raw_record_uuid", rawUUID.String(),
		"batch_id", created.BatchID,
		"partitions", len(created.Partitions))
	return created, nil
}

// DeleteBatch removes the partitions and restores a whole-record consolidated row.
// The record keeps its payment id and lock until an operator changes them.
func (s *Service) DeleteBatch(ctx context.Context, batchUUID uuid.UUID, operatorEmail string) error {
	err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		batches := s.repos.Batches.WithTx(tx)

		b, err := batches.GetByUUID(ctx, batchUUID)
		if err != nil {
			return err
		}
		rec, err := s.repos.RawRecords.WithTx(tx).LockForUpdate(ctx, b.RawRecordUUID)
		if err != nil {
			return err
		}
		if _, err := batches.Delete(ctx, batchUUID); err != nil {
			return err
		}

		whole := consolidated.FromRawRecord(rec, consolidated.Target{})
		if err := s.repos.Consolidated.WithTx(tx).ReplaceForRawRecord(ctx, rec.UUID, []*consolidated.Record{whole}); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, shared.EventBatchDeleted, rec.UUID, operatorEmail, map[string]any{
			"batch_uuid": b.UUID,
			"batch_id":   b.BatchID,
		})
	})
	if err != nil {
		s.logger.Error("Failed to delete batch", "batch_uuid", batchUUID.String(), "error", err)
		return err
	}

	s.logger.Info("Batch deleted", "batch_uuid", batchUUID.String())
	return nil
}

// ProposeFIFO suggests a split of the record across its counteragent's open payments, oldest first
func (s *Service) ProposeFIFO(ctx context.Context, rawUUID uuid.UUID) (*batch.Proposal, error) {
	rec, err := s.repos.RawRecords.GetByUUID(ctx, rawUUID)
	if err != nil {
		return nil, err
	}
	if rec.CounteragentUUID == nil {
		return nil, shared.PreconditionError{
			Subject: "raw record " + rawUUID.String(),
			Reason:  "record has no counteragent",
		}
	}

	open, err := s.repos.Payments.ListOpen(ctx, *rec.CounteragentUUID)
	if err != nil {
		return nil, err
	}

	obligations := make([]batch.Obligation, 0, len(open))
	for _, p := range open {
		ca, fc, cur := p.CounteragentUUID, p.FinancialCodeUUID, p.CurrencyUUID
		obligations = append(obligations, batch.Obligation{
			PaymentUUID:       p.UUID,
			PaymentID:         p.PaymentID,
			ProjectUUID:       p.ProjectUUID,
			CounteragentUUID:  &ca,
			FinancialCodeUUID: &fc,
			CurrencyUUID:      &cur,
			EffectiveDate:     p.EarliestDate,
			Outstanding:       p.Outstanding,
		})
	}

	proposal := batch.ProposeFIFO(rec.Magnitude(), obligations)
	return &proposal, nil
}

// UnboundPage is one page of records with a counteragent but no payment
type UnboundPage struct {
	Total   int64                  `json:"total"`
	Records []*rawrecord.RawRecord `json:"records"`
}

// ListUnbound pages unbound records ordered by transaction date, then uuid
func (s *Service) ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) (*UnboundPage, error) {
	total, err := s.repos.RawRecords.CountUnbound(ctx, source)
	if err != nil {
		return nil, err
	}
	records, err := s.repos.RawRecords.ListUnbound(ctx, source, limit, offset)
	if err != nil {
		return nil, err
	}
	return &UnboundPage{Total: total, Records: records}, nil
}

// CountUnbound counts records with a counteragent, no payment id and no covering batch
func (s *Service) CountUnbound(ctx context.Context, source *uuid.UUID) (int64, error) {
	return s.repos.RawRecords.CountUnbound(ctx, source)
}

// SetLock is the operator override: locking freezes the record's assignment, unlocking hands it back to reparse
func (s *Service) SetLock(ctx context.Context, rawUUID uuid.UUID, locked bool, operatorEmail string) error {
	eventType := shared.EventRecordUnlocked
	if locked {
		eventType = shared.EventRecordLocked
	}

	err := s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.repos.RawRecords.WithTx(tx).SetLock(ctx, rawUUID, locked); err != nil {
			return err
		}
		return s.writeEvent(ctx, tx, eventType, rawUUID, operatorEmail, map[string]any{"parsing_lock": locked})
	})
	if err != nil {
		s.logger.Error("Failed to set parsing lock", "raw_record_uuid", rawUUID.String(), "locked", locked, "error", err)
		return err
	}

	s.logger.Info("Parsing lock changed", "raw_record_uuid", rawUUID.String(), "locked", locked, "operator_email", operatorEmail)
	return nil
}

func (s *Service) resolvePartitions(ctx context.Context, payments payment.Repository, inputs []PartitionInput) ([]*batch.Partition, error) {
	partitions := make([]*batch.Partition, 0, len(inputs))
	for i, in := range inputs {
		p, err := s.resolvePayment(ctx, payments, in)
		if err != nil {
			if errors.Is(err, payment.ErrPaymentNotFound{}) {
				return nil, shared.PreconditionError{
					Subject: fmt.Sprintf("partition %d", i+1),
					Reason:  err.Error(),
				}
			}
			return nil, err
		}
		if p == nil {
			return nil, shared.ValidationError{
				Reason:  shared.ReasonInvalidPartition,
				Message: fmt.Sprintf("partition %d needs a payment id or payment uuid", i+1),
			}
		}

		target := consolidated.TargetFromPayment(p)
		paymentUUID := p.UUID
		partitions = append(partitions, &batch.Partition{
			Amount:              in.Amount,
			PaymentID:           target.PaymentID,
			PaymentUUID:         &paymentUUID,
			ProjectUUID:         target.ProjectUUID,
			CounteragentUUID:    target.CounteragentUUID,
			FinancialCodeUUID:   target.FinancialCodeUUID,
			NominalCurrencyUUID: target.NominalCurrencyUUID,
			NominalAmount:       in.NominalAmount,
		})
	}
	return partitions, nil
}

func (s *Service) resolvePayment(ctx context.Context, payments payment.Repository, in PartitionInput) (*payment.Payment, error) {
	switch {
	case in.PaymentUUID != nil && *in.PaymentUUID != uuid.Nil:
		return payments.GetByUUID(ctx, *in.PaymentUUID)
	case in.PaymentID != nil && *in.PaymentID != "":
		return payments.GetByPaymentID(ctx, *in.PaymentID)
	}
	return nil, nil
}

func (s *Service) writeEvent(ctx context.Context, tx pgx.Tx, eventType shared.EventType, rawUUID uuid.UUID, operatorEmail string, payload map[string]any) error {
	msg, err := outbox.NewMessage(eventType, &rawUUID, operatorEmail, payload)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.repos.Outbox.WithTx(tx).Create(ctx, msg)
}

// ownedByBatch reports a record locked by its own batch, which may be replaced
func ownedByBatch(rec *rawrecord.RawRecord, existing *batch.Batch) bool {
	return existing != nil && rec.PaymentID != nil && *rec.PaymentID == existing.BatchID
}
