package rawrecord

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Assignment is the set of automated fields written onto a raw record
type Assignment struct {
	CounteragentUUID *uuid.UUID
	PaymentID        *string
	AppliedRuleID    *int64
	Lock             bool
}

// Repository defines raw record persistence. Every automated write is conditional on NOT parsing_lock.
type Repository interface {
	// Upsert inserts new records and refreshes statement columns of existing ones; returns the uuids that were new
	Upsert(ctx context.Context, records []*RawRecord) ([]uuid.UUID, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*RawRecord, error)
	GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*RawRecord, error)

	// LockForUpdate acquires a row lock for batch writes
	LockForUpdate(ctx context.Context, id uuid.UUID) (*RawRecord, error)

	// ListUnprocessed pages unlocked records with no applied rule, keyset on uuid, skipping rows locked by other transactions
	ListUnprocessed(ctx context.Context, after uuid.UUID, limit int) ([]*RawRecord, error)
	// ListUnlockedBySource pages unlocked records of one source account, keyset on uuid
	ListUnlockedBySource(ctx context.Context, source uuid.UUID, after uuid.UUID, limit int) ([]*RawRecord, error)
	ListUnlockedByPaymentID(ctx context.Context, paymentID string) ([]*RawRecord, error)

	// ApplyAssignment writes the assignment to every listed record that is still unlocked and returns the updated uuids
	ApplyAssignment(ctx context.Context, ids []uuid.UUID, assignment Assignment) ([]uuid.UUID, error)
	// ClearAutomated nulls automated fields of unlocked records in a source account
	ClearAutomated(ctx context.Context, source uuid.UUID) (int64, error)

	AssignBatch(ctx context.Context, id uuid.UUID, token string) error
	SetLock(ctx context.Context, id uuid.UUID, locked bool) error

	CountUnbound(ctx context.Context, source *uuid.UUID) (int64, error)
	// ListUnbound orders by transaction date, then uuid
	ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) ([]*RawRecord, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRawRecordNotFound indicates a missing raw record
type ErrRawRecordNotFound struct {
	UUID uuid.UUID
}

func (e ErrRawRecordNotFound) Error() string {
	return "raw record not found: " + e.UUID.String()
}

// Is implements the errors.Is interface for ErrRawRecordNotFound
func (e ErrRawRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRawRecordNotFound)
	if !ok {
		return false
	}
	if t.UUID == uuid.Nil {
		return true
	}
	return e.UUID == t.UUID
}
