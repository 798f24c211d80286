package batch

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Obligation is an open payment that can absorb part of a bank movement
type Obligation struct {
	PaymentUUID       uuid.UUID
	PaymentID         string
	ProjectUUID       *uuid.UUID
	CounteragentUUID  *uuid.UUID
	FinancialCodeUUID *uuid.UUID
	CurrencyUUID      *uuid.UUID
	EffectiveDate     time.Time
	Outstanding       decimal.Decimal
}

// Proposal is a FIFO split suggestion; Remainder is what no obligation could absorb
type Proposal struct {
	Partitions []*Partition    `json:"partitions"`
	Allocated  decimal.Decimal `json:"allocated"`
	Remainder  decimal.Decimal `json:"remainder"`
}

// ProposeFIFO allocates amount across obligations ordered by effective date, then payment id.
// Obligations without an outstanding balance are skipped. Nothing is clamped: any excess is reported as Remainder.
func ProposeFIFO(amount decimal.Decimal, obligations []Obligation) Proposal {
	ordered := make([]Obligation, len(obligations))
	copy(ordered, obligations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].EffectiveDate.Equal(ordered[j].EffectiveDate) {
			return ordered[i].EffectiveDate.Before(ordered[j].EffectiveDate)
		}
		return ordered[i].PaymentID < ordered[j].PaymentID
	})

	remaining := amount.Abs()
	proposal := Proposal{Allocated: decimal.Zero}
	for _, o := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !o.Outstanding.IsPositive() {
			continue
		}
		share := decimal.Min(remaining, o.Outstanding)
		paymentID := o.PaymentID
		paymentUUID := o.PaymentUUID
		proposal.Partitions = append(proposal.Partitions, &Partition{
			Sequence:            len(proposal.Partitions) + 1,
			Amount:              share,
			PaymentID:           &paymentID,
			PaymentUUID:         &paymentUUID,
			ProjectUUID:         o.ProjectUUID,
			CounteragentUUID:    o.CounteragentUUID,
			FinancialCodeUUID:   o.FinancialCodeUUID,
			NominalCurrencyUUID: o.CurrencyUUID,
		})
		proposal.Allocated = proposal.Allocated.Add(share)
		remaining = remaining.Sub(share)
	}
	proposal.Remainder = remaining
	return proposal
}
