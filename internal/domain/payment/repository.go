package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository reads payments and appends ledger entries
type Repository interface {
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]*Payment, error)

	// LockForUpdate row-locks the payments so concurrent ledger inserts serialize per payment
	LockForUpdate(ctx context.Context, ids []uuid.UUID) error
	// Totals sums non-deleted ledger entries per payment
	Totals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Totals, error)
	InsertEntries(ctx context.Context, entries []*LedgerEntry) error

	// ListOpen returns a counteragent's payments with outstanding order, oldest first
	ListOpen(ctx context.Context, counteragentUUID uuid.UUID) ([]*OpenPayment, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrPaymentNotFound indicates an unknown payment id
type ErrPaymentNotFound struct {
	PaymentID string
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.PaymentID
}

// Is implements the errors.Is interface for ErrPaymentNotFound
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	if t.PaymentID == "" {
		return true
	}
	return e.PaymentID == t.PaymentID
}
