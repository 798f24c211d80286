package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleCols = []string{
	"id", "kind", "column_name", "operator", "value", "formula", "compiled",
	"payment_id", "counteragent_uuid", "financial_code_uuid", "currency_uuid",
	"priority", "is_active", "is_deleted", "created_by", "created_at", "updated_at",
}

func TestRuleRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RuleRepository{querier: mock, logger: newTestLogger()}
	pid := "PAY-001"
	now := time.Now()
	rl := &rule.Rule{
		Kind:      rule.KindFormula,
		Formula:   `SEARCH("SALARY", docinformation)`,
		Compiled:  json.RawMessage(`{"kind":"call"}`),
		Target:    rule.Target{PaymentID: &pid},
		Priority:  10,
		IsActive:  true,
		CreatedBy: "ops@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO parsing_rules")).
		WithArgs(rl.Kind, "", "", "", rl.Formula, rl.Compiled, rl.PaymentID, rl.CounteragentUUID,
			rl.FinancialCodeUUID, rl.CurrencyUUID, 10, true, "ops@example.com", now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(ctx, rl))
	assert.Equal(t, int64(42), rl.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RuleRepository{querier: mock, logger: newTestLogger()}
	ca, fc, cur := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	query := regexp.QuoteMeta("WHERE id = $1 AND NOT is_deleted")

	t.Run("triple target", func(t *testing.T) {
		var noPayment *string
		mock.ExpectQuery(query).WithArgs(int64(5)).WillReturnRows(pgxmock.NewRows(ruleCols).AddRow(
			int64(5), rule.KindSimple, "docsenderinn", rule.OpEquals, "123456789", "",
			json.RawMessage(`{}`), noPayment, &ca, &fc, &cur,
			1, true, false, "ops@example.com", now, now,
		))

		rl, err := repo.GetByID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, rule.OpEquals, rl.Operator)
		assert.Nil(t, rl.PaymentID)
		assert.Equal(t, &fc, rl.FinancialCodeUUID)
		assert.NoError(t, rl.Target.Validate())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted or missing", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(6)).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, 6)
		assert.ErrorIs(t, err, rule.ErrRuleNotFound{ID: 6})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRuleRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RuleRepository{querier: mock, logger: newTestLogger()}
	pid := "PAY-001"
	var none *uuid.UUID
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY priority, created_at DESC, id DESC")).
		WillReturnRows(pgxmock.NewRows(ruleCols).
			AddRow(int64(1), rule.KindFormula, "", rule.Operator(""), "", "TRUE", json.RawMessage(`{}`), &pid, none, none, none,
				1, true, false, "a@example.com", now, now).
			AddRow(int64(2), rule.KindFormula, "", rule.Operator(""), "", "FALSE", json.RawMessage(`{}`), &pid, none, none, none,
				5, true, false, "a@example.com", now, now))

	rules, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int64(1), rules[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RuleRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("SET is_deleted = TRUE")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		assert.NoError(t, repo.SoftDelete(ctx, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		assert.ErrorIs(t, repo.SoftDelete(ctx, 3), rule.ErrRuleNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
