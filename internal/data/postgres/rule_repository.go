package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// RuleRepository implements the rule.Repository interface for PostgreSQL
type RuleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewRuleRepository(logger *slog.Logger, db *persistence.PostgresDB) rule.Repository {
	return &RuleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *RuleRepository) WithTx(tx pgx.Tx) rule.Repository {
	return &RuleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const ruleColumns = `id, kind, COALESCE(column_name, ''), COALESCE(operator, ''), COALESCE(value, ''), COALESCE(formula, ''),
		compiled, payment_id, counteragent_uuid, financial_code_uuid, currency_uuid,
		priority, is_active, is_deleted, created_by, created_at, updated_at`

func scanRule(row pgx.Row) (*rule.Rule, error) {
	var rl rule.Rule
	err := row.Scan(
		&rl.ID,
		&rl.Kind,
		&rl.Column,
		&rl.Operator,
		&rl.Value,
		&rl.Formula,
		&rl.Compiled,
		&rl.PaymentID,
		&rl.CounteragentUUID,
		&rl.FinancialCodeUUID,
		&rl.CurrencyUUID,
		&rl.Priority,
		&rl.IsActive,
		&rl.IsDeleted,
		&rl.CreatedBy,
		&rl.CreatedAt,
		&rl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rl, nil
}

// Create stores a compiled rule and fills in its generated id
func (r *RuleRepository) Create(ctx context.Context, rl *rule.Rule) error {
	query := `
		INSERT INTO parsing_rules (kind, column_name, operator, value, formula, compiled,
			payment_id, counteragent_uuid, financial_code_uuid, currency_uuid,
			priority, is_active, is_deleted, created_by, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, FALSE, $13, $14, $15)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		rl.Kind,
		rl.Column,
		string(rl.Operator),
		rl.Value,
		rl.Formula,
		rl.Compiled,
		rl.PaymentID,
		rl.CounteragentUUID,
		rl.FinancialCodeUUID,
		rl.CurrencyUUID,
		rl.Priority,
		rl.IsActive,
		rl.CreatedBy,
		rl.CreatedAt,
		rl.UpdatedAt,
	).Scan(&rl.ID)
	if err != nil {
		r.logger.Error("Failed to create rule", "error", err)
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetByID returns a non-deleted rule
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*rule.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM parsing_rules
		WHERE id = $1 AND NOT is_deleted
	`

	rl, err := scanRule(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rule.ErrRuleNotFound{ID: id}
		}
		r.logger.Error("Failed to get rule", "rule_id", id, "error", err)
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rl, nil
}

// GetByIDs returns the non-deleted rules among ids, in evaluation order
func (r *RuleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*rule.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM parsing_rules
		WHERE id = ANY($1) AND NOT is_deleted
		ORDER BY priority, created_at DESC, id DESC
	`

	return r.list(ctx, "get rules", query, ids)
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]*rule.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM parsing_rules
		WHERE is_active AND NOT is_deleted
		ORDER BY priority, created_at DESC, id DESC
	`

	return r.list(ctx, "list active rules", query)
}

func (r *RuleRepository) list(ctx context.Context, op, query string, args ...any) ([]*rule.Rule, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var rules []*rule.Rule
	for rows.Next() {
		rl, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE parsing_rules
		SET is_deleted = TRUE, is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete rule", "rule_id", id, "error", err)
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rule.ErrRuleNotFound{ID: id}
	}

	return nil
}
