package recontest

import (
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/statement-reconciliation/internal/platform/persistence"
)

// NewTransactor returns a Transactor over a pgxmock pool; callers set ExpectBegin/ExpectCommit/ExpectRollback
func NewTransactor(t *testing.T) (persistence.Transactor, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return persistence.BeginnerTransactor{Beginner: pool}, pool
}
