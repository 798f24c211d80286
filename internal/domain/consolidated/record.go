package consolidated

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
)

// WholeRecord is the partition sequence of an unsplit raw record
const WholeRecord = 0

// Target is a resolved assignment: who, what for, in which currency, against which payment
type Target struct {
	CounteragentUUID    *uuid.UUID `json:"counteragent_uuid,omitempty"`
	FinancialCodeUUID   *uuid.UUID `json:"financial_code_uuid,omitempty"`
	NominalCurrencyUUID *uuid.UUID `json:"nominal_currency_uuid,omitempty"`
	ProjectUUID         *uuid.UUID `json:"project_uuid,omitempty"`
	PaymentID           *string    `json:"payment_id,omitempty"`
}

// TargetFromPayment resolves the assignment a payment implies
func TargetFromPayment(p *payment.Payment) Target {
	ca, fc, cur := p.CounteragentUUID, p.FinancialCodeUUID, p.CurrencyUUID
	pid := p.PaymentID
	return Target{
		CounteragentUUID:    &ca,
		FinancialCodeUUID:   &fc,
		NominalCurrencyUUID: &cur,
		ProjectUUID:         p.ProjectUUID,
		PaymentID:           &pid,
	}
}

// Record is a raw record, or one partition of it, enriched with its resolved assignment
type Record struct {
	RawRecordUUID       uuid.UUID        `json:"raw_record_uuid"`
	PartitionSequence   int              `json:"partition_sequence"`
	BatchID             *string          `json:"batch_id,omitempty"`
	SourceAccountUUID   uuid.UUID        `json:"source_account_uuid"`
	TransactionDate     *time.Time       `json:"transaction_date,omitempty"`
	Amount              decimal.Decimal  `json:"amount"`
	NominalAmount       *decimal.Decimal `json:"nominal_amount,omitempty"`
	CounteragentUUID    *uuid.UUID       `json:"counteragent_uuid,omitempty"`
	FinancialCodeUUID   *uuid.UUID       `json:"financial_code_uuid,omitempty"`
	NominalCurrencyUUID *uuid.UUID       `json:"nominal_currency_uuid,omitempty"`
	ProjectUUID         *uuid.UUID       `json:"project_uuid,omitempty"`
	PaymentID           *string          `json:"payment_id,omitempty"`
	AppliedRuleID       *int64           `json:"applied_rule_id,omitempty"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// FromRawRecord builds the whole-record row. The raw record's counteragent wins when the target has none.
func FromRawRecord(r *rawrecord.RawRecord, t Target) *Record {
	rec := &Record{
		RawRecordUUID:       r.UUID,
		PartitionSequence:   WholeRecord,
		SourceAccountUUID:   r.SourceAccountUUID,
		TransactionDate:     r.TransactionDate,
		Amount:              r.Amount(),
		CounteragentUUID:    t.CounteragentUUID,
		FinancialCodeUUID:   t.FinancialCodeUUID,
		NominalCurrencyUUID: t.NominalCurrencyUUID,
		ProjectUUID:         t.ProjectUUID,
		PaymentID:           t.PaymentID,
		AppliedRuleID:       r.AppliedRuleID,
		UpdatedAt:           time.Now(),
	}
	if rec.CounteragentUUID == nil {
		rec.CounteragentUUID = r.CounteragentUUID
	}
	if rec.PaymentID == nil {
		rec.PaymentID = r.PaymentID
	}
	return rec
}

// FromPartitions builds one row per partition, signed by the raw record's direction
func FromPartitions(r *rawrecord.RawRecord, b *batch.Batch) []*Record {
	records := make([]*Record, 0, len(b.Partitions))
	batchID := b.BatchID
	for _, p := range b.Partitions {
		records = append(records, &Record{
			RawRecordUUID:       r.UUID,
			PartitionSequence:   p.Sequence,
			BatchID:             &batchID,
			SourceAccountUUID:   r.SourceAccountUUID,
			TransactionDate:     r.TransactionDate,
			Amount:              r.Signed(p.Amount),
			NominalAmount:       p.NominalAmount,
			CounteragentUUID:    p.CounteragentUUID,
			FinancialCodeUUID:   p.FinancialCodeUUID,
			NominalCurrencyUUID: p.NominalCurrencyUUID,
			ProjectUUID:         p.ProjectUUID,
			PaymentID:           p.PaymentID,
			UpdatedAt:           time.Now(),
		})
	}
	return records
}
