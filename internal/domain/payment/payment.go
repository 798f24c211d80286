package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// Payment is a logical obligation: project x counteragent x financial code x currency, optionally x job
type Payment struct {
	UUID              uuid.UUID  `json:"uuid"`
	PaymentID         string     `json:"payment_id"`
	ProjectUUID       *uuid.UUID `json:"project_uuid,omitempty"`
	CounteragentUUID  uuid.UUID  `json:"counteragent_uuid"`
	FinancialCodeUUID uuid.UUID  `json:"financial_code_uuid"`
	CurrencyUUID      uuid.UUID  `json:"currency_uuid"`
	JobUUID           *uuid.UUID `json:"job_uuid,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
}

// OpenPayment is a payment with the part of its authorized order not yet covered by bank movements
type OpenPayment struct {
	Payment
	EarliestDate time.Time       `json:"earliest_date"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// LedgerEntry posts an accrual and/or an order against a payment. Entries are append-only.
type LedgerEntry struct {
	ID            int64           `json:"id"`
	PaymentUUID   uuid.UUID       `json:"payment_uuid"`
	PaymentID     string          `json:"payment_id"`
	EffectiveDate time.Time       `json:"effective_date"`
	Accrual       decimal.Decimal `json:"accrual"`
	Order         decimal.Decimal `json:"order"`
	Comment       string          `json:"comment,omitempty"`
	UserEmail     string          `json:"user_email"`
	IsDeleted     bool            `json:"is_deleted"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the entry's own shape; cross-entry totals are checked by Totals
func (e *LedgerEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.PaymentID) == "":
		return shared.ValidationError{Reason: shared.ReasonInvalidLedgerEntry, Message: "payment id is required"}
	case e.EffectiveDate.IsZero():
		return shared.ValidationError{Reason: shared.ReasonInvalidLedgerEntry, Message: "effective date is required"}
	case e.Accrual.IsNegative() || e.Order.IsNegative():
		return shared.ValidationError{Reason: shared.ReasonInvalidLedgerEntry, Message: "accrual and order must not be negative"}
	case e.Accrual.IsZero() && e.Order.IsZero():
		return shared.ValidationError{Reason: shared.ReasonInvalidLedgerEntry, Message: "accrual or order must be positive"}
	}
	return nil
}

// Totals are the cumulative accrual and order of a payment over non-deleted entries
type Totals struct {
	Accrual decimal.Decimal `json:"accrual"`
	Order   decimal.Decimal `json:"order"`
}

// Add returns the totals after posting e
func (t Totals) Add(e *LedgerEntry) Totals {
	return Totals{Accrual: t.Accrual.Add(e.Accrual), Order: t.Order.Add(e.Order)}
}

// CheckOrderWithinAccrual enforces cumulative order <= cumulative accrual
func (t Totals) CheckOrderWithinAccrual(paymentID string) error {
	if t.Order.GreaterThan(t.Accrual) {
		return shared.AggregationInvariantError{
			Subject: "payment " + paymentID,
			Reason:  fmt.Sprintf("cumulative order %s exceeds cumulative accrual %s", t.Order.StringFixed(2), t.Accrual.StringFixed(2)),
		}
	}
	return nil
}
