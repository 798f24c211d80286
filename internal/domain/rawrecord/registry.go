package rawrecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// SourceAccount is a registered bank account whose statements may be imported
type SourceAccount struct {
	UUID          uuid.UUID `json:"uuid"`
	AccountNumber string    `json:"account_number"`
	Currency      string    `json:"currency"`
	SchemaVersion string    `json:"schema_version"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Label identifies the account in reports and logs
func (a *SourceAccount) Label() string {
	return a.AccountNumber + "/" + a.Currency
}

// AccountRepository reads the bank-account registry table
type AccountRepository interface {
	GetByUUID(ctx context.Context, id uuid.UUID) (*SourceAccount, error)
	FindByNumber(ctx context.Context, accountNumber string) ([]*SourceAccount, error)
	ListActive(ctx context.Context) ([]*SourceAccount, error)
	WithTx(tx pgx.Tx) AccountRepository
}

// ErrSourceAccountNotFound indicates an unknown source account uuid
type ErrSourceAccountNotFound struct {
	UUID uuid.UUID
}

func (e ErrSourceAccountNotFound) Error() string {
	return "source account not found: " + e.UUID.String()
}

// Is implements the errors.Is interface for ErrSourceAccountNotFound
func (e ErrSourceAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrSourceAccountNotFound)
	if !ok {
		return false
	}
	if t.UUID == uuid.Nil {
		return true
	}
	return e.UUID == t.UUID
}

// Registry is the single lookup of importable accounts and their column sets
type Registry struct {
	accounts      AccountRepository
	defaultSchema string
}

func NewRegistry(accounts AccountRepository, defaultSchema string) *Registry {
	return &Registry{accounts: accounts, defaultSchema: defaultSchema}
}

// Resolve finds the active account for a normalized number; currency may be empty when the
// statement does not carry one, in which case the number must be unambiguous.
func (r *Registry) Resolve(ctx context.Context, accountNumber, currency string) (*SourceAccount, error) {
	candidates, err := r.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up bank account %s: %w", accountNumber, err)
	}

	var matched []*SourceAccount
	for _, acc := range candidates {
		if !acc.IsActive {
			continue
		}
		if currency == "" || acc.Currency == currency {
			matched = append(matched, acc)
		}
	}
	if len(matched) != 1 {
		return nil, shared.AccountNotFoundError{AccountNumber: accountNumber, Currency: currency}
	}
	return r.withSchema(matched[0]), nil
}

// Get returns a registered account by uuid
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*SourceAccount, error) {
	acc, err := r.accounts.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.withSchema(acc), nil
}

// Scope returns the accounts a backparse covers: one account, or every active one when id is nil
func (r *Registry) Scope(ctx context.Context, id *uuid.UUID) ([]*SourceAccount, error) {
	if id != nil {
		acc, err := r.Get(ctx, *id)
		if err != nil {
			return nil, err
		}
		return []*SourceAccount{acc}, nil
	}
	accounts, err := r.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	for i := range accounts {
		accounts[i] = r.withSchema(accounts[i])
	}
	return accounts, nil
}

// Columns returns the column set available to rules for a schema version
func (r *Registry) Columns(schemaVersion string) (ColumnSet, error) {
	if schemaVersion == "" {
		schemaVersion = r.defaultSchema
	}
	return LookupColumnSet(schemaVersion)
}

// IsNotFound reports registry misses of either kind
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSourceAccountNotFound{}) || errors.Is(err, shared.AccountNotFoundError{})
}

func (r *Registry) withSchema(acc *SourceAccount) *SourceAccount {
	if acc.SchemaVersion == "" {
		acc.SchemaVersion = r.defaultSchema
	}
	return acc
}
