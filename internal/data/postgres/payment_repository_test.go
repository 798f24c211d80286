package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentCols = []string{
	"uuid", "payment_id", "project_uuid", "counteragent_uuid", "financial_code_uuid", "currency_uuid",
	"job_uuid", "is_active", "created_at",
}

func TestPaymentRepository_GetByPaymentID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	id, ca, fc, cur := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	var none *uuid.UUID
	now := time.Now()
	query := regexp.QuoteMeta("WHERE payment_id = $1 AND is_active")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("PAY-001").WillReturnRows(
			pgxmock.NewRows(paymentCols).AddRow(id, "PAY-001", none, ca, fc, cur, none, true, now),
		)

		p, err := repo.GetByPaymentID(ctx, "PAY-001")
		require.NoError(t, err)
		assert.Equal(t, id, p.UUID)
		assert.Equal(t, ca, p.CounteragentUUID)
		assert.Nil(t, p.ProjectUUID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("PAY-404").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByPaymentID(ctx, "PAY-404")
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound{PaymentID: "PAY-404"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_GetByPaymentIDs(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	var none *uuid.UUID
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_id = ANY($1)")).
		WithArgs([]string{"PAY-1", "PAY-X"}).
		WillReturnRows(pgxmock.NewRows(paymentCols).
			AddRow(uuid.New(), "PAY-1", none, uuid.New(), uuid.New(), uuid.New(), none, true, now))

	found, err := repo.GetByPaymentIDs(ctx, []string{"PAY-1", "PAY-X"})
	require.NoError(t, err)
	assert.Contains(t, found, "PAY-1")
	assert.NotContains(t, found, "PAY-X")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	a, b := uuid.New(), uuid.New()
	query := regexp.QuoteMeta("ORDER BY uuid") + `\s+` + regexp.QuoteMeta("FOR UPDATE")

	t.Run("all locked", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs([]uuid.UUID{a, b}).
			WillReturnRows(pgxmock.NewRows([]string{"uuid"}).AddRow(a).AddRow(b))

		assert.NoError(t, repo.LockForUpdate(ctx, []uuid.UUID{a, b}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing payment", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs([]uuid.UUID{a, b}).
			WillReturnRows(pgxmock.NewRows([]string{"uuid"}).AddRow(a))

		err := repo.LockForUpdate(ctx, []uuid.UUID{a, b})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "locked 1 of 2")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_Totals(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	withEntries, withoutEntries := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM payment_ledger")).
		WithArgs([]uuid.UUID{withEntries, withoutEntries}).
		WillReturnRows(pgxmock.NewRows([]string{"payment_uuid", "accrual", "order"}).
			AddRow(withEntries, decimal.NewFromInt(100), decimal.NewFromInt(60)))

	totals, err := repo.Totals(ctx, []uuid.UUID{withEntries, withoutEntries})
	require.NoError(t, err)
	assert.True(t, totals[withEntries].Accrual.Equal(decimal.NewFromInt(100)))
	assert.True(t, totals[withEntries].Order.Equal(decimal.NewFromInt(60)))
	assert.True(t, totals[withoutEntries].Accrual.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_InsertEntries(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	entry := &payment.LedgerEntry{
		PaymentUUID:   uuid.New(),
		PaymentID:     "PAY-1",
		EffectiveDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Accrual:       decimal.NewFromInt(100),
		Order:         decimal.Zero,
		UserEmail:     "ops@example.com",
		CreatedAt:     time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_ledger")).
		WithArgs(entry.PaymentUUID, entry.EffectiveDate, entry.Accrual, entry.Order, "", entry.UserEmail, entry.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	require.NoError(t, repo.InsertEntries(ctx, []*payment.LedgerEntry{entry}))
	assert.Equal(t, int64(9), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ListOpen(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &PaymentRepository{querier: mock, logger: newTestLogger()}
	ca := uuid.New()
	var none *uuid.UUID
	now := time.Now()
	jan, feb := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.earliest_date, p.payment_id")).
		WithArgs(ca).
		WillReturnRows(pgxmock.NewRows(append(paymentCols, "earliest_date", "outstanding")).
			AddRow(uuid.New(), "PAY-A", none, ca, uuid.New(), uuid.New(), none, true, now, jan, decimal.NewFromInt(50)).
			AddRow(uuid.New(), "PAY-B", none, ca, uuid.New(), uuid.New(), none, true, now, feb, decimal.NewFromInt(80)))

	open, err := repo.ListOpen(ctx, ca)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "PAY-A", open[0].PaymentID)
	assert.Equal(t, jan, open[0].EarliestDate)
	assert.True(t, open[1].Outstanding.Equal(decimal.NewFromInt(80)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
