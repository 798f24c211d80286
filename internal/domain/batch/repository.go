package batch

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists batches as partition rows keyed by batch uuid and raw record
type Repository interface {
	Insert(ctx context.Context, batch *Batch) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*Batch, error)
	GetByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (*Batch, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrBatchNotFound indicates a missing batch
type ErrBatchNotFound struct {
	UUID uuid.UUID
}

func (e ErrBatchNotFound) Error() string {
	return "batch not found: " + e.UUID.String()
}

// Is implements the errors.Is interface for ErrBatchNotFound
func (e ErrBatchNotFound) Is(target error) bool {
	t, ok := target.(ErrBatchNotFound)
	if !ok {
		return false
	}
	if t.UUID == uuid.Nil {
		return true
	}
	return e.UUID == t.UUID
}
