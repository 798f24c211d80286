package batch

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// TokenPrefix marks a synthetic payment id that points at a batch
const TokenPrefix = "BTC_"

var tokenPattern = regexp.MustCompile(`^BTC_[0-9A-F]{6}_[0-9A-F]{2}_[0-9A-F]{6}$`)

// TokenFor derives the human-readable batch id from the batch uuid: BTC_{6}_{2}_{6} of its dashless hex
func TokenFor(id uuid.UUID) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return TokenPrefix + hex[0:6] + "_" + hex[6:8] + "_" + hex[8:14]
}

// IsToken reports whether a payment id value is a batch token
func IsToken(paymentID string) bool {
	return tokenPattern.MatchString(paymentID)
}

// Partition attributes one share of a raw record's amount to a payment
type Partition struct {
	ID                  int64            `json:"id,omitempty"`
	Sequence            int              `json:"partition_sequence"`
	Amount              decimal.Decimal  `json:"partition_amount"`
	PaymentID           *string          `json:"payment_id,omitempty"`
	PaymentUUID         *uuid.UUID       `json:"payment_uuid,omitempty"`
	ProjectUUID         *uuid.UUID       `json:"project_uuid,omitempty"`
	CounteragentUUID    *uuid.UUID       `json:"counteragent_uuid,omitempty"`
	FinancialCodeUUID   *uuid.UUID       `json:"financial_code_uuid,omitempty"`
	NominalCurrencyUUID *uuid.UUID       `json:"nominal_currency_uuid,omitempty"`
	NominalAmount       *decimal.Decimal `json:"nominal_amount,omitempty"`
}

// Batch splits one raw record across 1..N partitions
type Batch struct {
	UUID              uuid.UUID    `json:"batch_uuid"`
	BatchID           string       `json:"batch_id"`
	RawRecordUUID     uuid.UUID    `json:"raw_record_uuid"`
	SourceAccountUUID uuid.UUID    `json:"source_account_uuid"`
	Partitions        []*Partition `json:"partitions"`
	CreatedBy         string       `json:"created_by"`
	CreatedAt         time.Time    `json:"created_at"`
}

// New builds a batch with a fresh uuid, its token, and 1-based partition sequences
func New(rawRecordUUID, sourceAccountUUID uuid.UUID, partitions []*Partition, createdBy string) (*Batch, error) {
	if len(partitions) == 0 {
		return nil, shared.ValidationError{Reason: shared.ReasonInvalidPartition, Message: "at least one partition is required"}
	}
	for i, p := range partitions {
		if p.Amount.IsNegative() {
			return nil, shared.ValidationError{
				Reason:  shared.ReasonInvalidPartition,
				Message: fmt.Sprintf("partition %d amount must not be negative", i+1),
			}
		}
		if p.NominalAmount != nil && p.NominalAmount.IsNegative() {
			return nil, shared.ValidationError{
				Reason:  shared.ReasonInvalidPartition,
				Message: fmt.Sprintf("partition %d nominal amount must not be negative", i+1),
			}
		}
		p.Sequence = i + 1
	}

	id := uuid.New()
	return &Batch{
		UUID:              id,
		BatchID:           TokenFor(id),
		RawRecordUUID:     rawRecordUUID,
		SourceAccountUUID: sourceAccountUUID,
		Partitions:        partitions,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now(),
	}, nil
}

// Total sums the partition amounts
func (b *Batch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.Partitions {
		total = total.Add(p.Amount)
	}
	return total
}

// CheckSum requires the partitions to account for the raw record's magnitude within tolerance
func (b *Batch) CheckSum(magnitude, tolerance decimal.Decimal) error {
	diff := b.Total().Sub(magnitude.Abs()).Abs()
	if diff.GreaterThan(tolerance) {
		return shared.AggregationInvariantError{
			Subject: "raw record " + b.RawRecordUUID.String(),
			Reason:  fmt.Sprintf("partition sum %s does not match record amount %s", b.Total().StringFixed(2), magnitude.Abs().StringFixed(2)),
		}
	}
	return nil
}
