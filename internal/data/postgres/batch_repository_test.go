package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var partitionCols = []string{
	"id", "batch_uuid", "batch_id", "raw_record_uuid", "source_account_uuid", "partition_sequence",
	"partition_amount", "payment_id", "payment_uuid", "project_uuid", "counteragent_uuid",
	"financial_code_uuid", "nominal_currency_uuid", "nominal_amount", "created_by", "created_at",
}

func TestBatchRepository_Insert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BatchRepository{querier: mock, logger: newTestLogger()}
	p1, p2 := "PAY-1", "PAY-2"
	b, err := batch.New(uuid.New(), uuid.New(), []*batch.Partition{
		{Amount: decimal.RequireFromString("60.00"), PaymentID: &p1},
		{Amount: decimal.RequireFromString("40.00"), PaymentID: &p2},
	}, "ops@example.com")
	require.NoError(t, err)

	query := regexp.QuoteMeta("INSERT INTO batch_partitions")
	for i, p := range b.Partitions {
		mock.ExpectQuery(query).
			WithArgs(b.UUID, b.BatchID, b.RawRecordUUID, b.SourceAccountUUID, p.Sequence, p.Amount, p.PaymentID,
				p.PaymentUUID, p.ProjectUUID, p.CounteragentUUID, p.FinancialCodeUUID, p.NominalCurrencyUUID,
				p.NominalAmount, b.CreatedBy, b.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100 + i)))
	}

	require.NoError(t, repo.Insert(ctx, b))
	assert.Equal(t, int64(100), b.Partitions[0].ID)
	assert.Equal(t, int64(101), b.Partitions[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepository_GetByUUID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BatchRepository{querier: mock, logger: newTestLogger()}
	id, raw, src := uuid.New(), uuid.New(), uuid.New()
	token := batch.TokenFor(id)
	now := time.Now()
	p1, p2 := "PAY-1", "PAY-2"
	var none *uuid.UUID
	var noNominal *decimal.Decimal
	query := regexp.QuoteMeta("WHERE batch_uuid = $1")

	t.Run("folds partitions", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(id).WillReturnRows(pgxmock.NewRows(partitionCols).
			AddRow(int64(1), id, token, raw, src, 1, decimal.RequireFromString("60.00"), &p1, none, none, none, none, none, noNominal, "ops", now).
			AddRow(int64(2), id, token, raw, src, 2, decimal.RequireFromString("40.00"), &p2, none, none, none, none, none, noNominal, "ops", now))

		b, err := repo.GetByUUID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, token, b.BatchID)
		assert.Equal(t, raw, b.RawRecordUUID)
		require.Len(t, b.Partitions, 2)
		assert.Equal(t, 2, b.Partitions[1].Sequence)
		assert.True(t, b.Total().Equal(decimal.NewFromInt(100)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows is not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(id).WillReturnRows(pgxmock.NewRows(partitionCols))

		_, err := repo.GetByUUID(ctx, id)
		assert.ErrorIs(t, err, batch.ErrBatchNotFound{UUID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatchRepository_Delete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BatchRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := regexp.QuoteMeta("DELETE FROM batch_partitions") + `\s+` + regexp.QuoteMeta("WHERE batch_uuid = $1")

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.Delete(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing batch", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

		_, err := repo.Delete(ctx, id)
		assert.ErrorIs(t, err, batch.ErrBatchNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
