package consolidated

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository maintains the consolidated view; writes always share the caller's transaction
type Repository interface {
	// Upsert replaces rows keyed by (raw record, partition sequence)
	Upsert(ctx context.Context, records []*Record) error
	// ReplaceForRawRecord deletes every row of the raw record, then inserts records
	ReplaceForRawRecord(ctx context.Context, rawRecordUUID uuid.UUID, records []*Record) error
	ListByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) ([]*Record, error)
	WithTx(tx pgx.Tx) Repository
}
