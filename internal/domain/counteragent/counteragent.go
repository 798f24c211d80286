package counteragent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Counteragent is a business party known to the ledger, identified on statements by tax id
type Counteragent struct {
	UUID      uuid.UUID `json:"uuid"`
	Name      string    `json:"name"`
	INN       string    `json:"inn"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeINN strips the whitespace banks pad tax ids with
func NormalizeINN(inn string) string {
	return strings.Join(strings.Fields(inn), "")
}

// Repository is the read-only lookup used by assignment derivation
type Repository interface {
	// FindByINN returns nil, nil when no active counteragent carries the tax id
	FindByINN(ctx context.Context, inn string) (*Counteragent, error)
	WithTx(tx pgx.Tx) Repository
}
