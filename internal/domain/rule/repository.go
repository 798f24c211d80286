package rule

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines rule persistence; rules are soft deleted only
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id int64) (*Rule, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Rule, error)
	// ListActive returns active, non-deleted rules in evaluation order
	ListActive(ctx context.Context) ([]*Rule, error)
	SoftDelete(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrRuleNotFound indicates a missing or deleted rule
type ErrRuleNotFound struct {
	ID int64
}

func (e ErrRuleNotFound) Error() string {
	return "rule not found: " + strconv.FormatInt(e.ID, 10)
}

// Is implements the errors.Is interface for ErrRuleNotFound
func (e ErrRuleNotFound) Is(target error) bool {
	t, ok := target.(ErrRuleNotFound)
	if !ok {
		return false
	}
	if t.ID == 0 {
		return true
	}
	return e.ID == t.ID
}
