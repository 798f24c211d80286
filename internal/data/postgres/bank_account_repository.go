// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository runs on a persistence.Querier so the same code serves the pool and
// an open transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// BankAccountRepository implements the rawrecord.AccountRepository interface for PostgreSQL
type BankAccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBankAccountRepository creates a new PostgreSQL bank-account registry repository
func NewBankAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) rawrecord.AccountRepository {
	return &BankAccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the provided transaction
func (r *BankAccountRepository) WithTx(tx pgx.Tx) rawrecord.AccountRepository {
	return &BankAccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const bankAccountColumns = `uuid, account_number, currency, schema_version, is_active, created_at`

func scanBankAccount(row pgx.Row) (*rawrecord.SourceAccount, error) {
	var acc rawrecord.SourceAccount
	err := row.Scan(
		&acc.UUID,
		&acc.AccountNumber,
		&acc.Currency,
		&acc.SchemaVersion,
		&acc.IsActive,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetByUUID retrieves a registered account by its uuid
func (r *BankAccountRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*rawrecord.SourceAccount, error) {
	query := `
		SELECT ` + bankAccountColumns + `
		FROM bank_accounts
		WHERE uuid = $1
	`

	acc, err := scanBankAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rawrecord.ErrSourceAccountNotFound{UUID: id}
		}
		r.logger.Error("Failed to get bank account", "uuid", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}

	return acc, nil
}

// FindByNumber returns every account registered under the number, one per currency
func (r *BankAccountRepository) FindByNumber(ctx context.Context, accountNumber string) ([]*rawrecord.SourceAccount, error) {
	query := `
		SELECT ` + bankAccountColumns + `
		FROM bank_accounts
		WHERE account_number = $1
		ORDER BY currency
	`

	return r.list(ctx, "find bank accounts by number", query, accountNumber)
}

// ListActive returns the active accounts in creation order
func (r *BankAccountRepository) ListActive(ctx context.Context) ([]*rawrecord.SourceAccount, error) {
	query := `
		SELECT ` + bankAccountColumns + `
		FROM bank_accounts
		WHERE is_active
		ORDER BY created_at, uuid
	`

	return r.list(ctx, "list active bank accounts", query)
}

func (r *BankAccountRepository) list(ctx context.Context, op, query string, args ...any) ([]*rawrecord.SourceAccount, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var accounts []*rawrecord.SourceAccount
	for rows.Next() {
		acc, err := scanBankAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bank accounts: %w", err)
	}

	return accounts, nil
}
