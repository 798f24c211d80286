package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores the audit trail; Record is idempotent per event id
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	ListByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID, limit int) ([]*Entry, error)
	ListByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*Entry, error)
}
