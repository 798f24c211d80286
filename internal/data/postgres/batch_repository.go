package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/batch"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// BatchRepository implements the batch.Repository interface for PostgreSQL.
// A batch is stored as its partition rows; there is no header table.
type BatchRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewBatchRepository(logger *slog.Logger, db *persistence.PostgresDB) batch.Repository {
	return &BatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *BatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return &BatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert writes one row per partition and fills in the generated ids
func (r *BatchRepository) Insert(ctx context.Context, b *batch.Batch) error {
	query := `
		INSERT INTO batch_partitions (batch_uuid, batch_id, raw_record_uuid, source_account_uuid,
			partition_sequence, partition_amount, payment_id, payment_uuid, project_uuid,
			counteragent_uuid, financial_code_uuid, nominal_currency_uuid, nominal_amount,
			created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	for _, p := range b.Partitions {
		err := r.querier.QueryRow(ctx, query,
			b.UUID,
			b.BatchID,
			b.RawRecordUUID,
			b.SourceAccountUUID,
			p.Sequence,
			p.Amount,
			p.PaymentID,
			p.PaymentUUID,
			p.ProjectUUID,
			p.CounteragentUUID,
			p.FinancialCodeUUID,
			p.NominalCurrencyUUID,
			p.NominalAmount,
			b.CreatedBy,
			b.CreatedAt,
		).Scan(&p.ID)
		if err != nil {
			r.logger.Error("Failed to insert batch partition",
				"batch_id", b.BatchID,
				"partition_sequence", p.Sequence,
				"error", err,
			)
			return fmt.Errorf("failed to insert batch partition: %w", err)
		}
	}

	return nil
}

func (r *BatchRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	query := `
		SELECT id, batch_uuid, batch_id, raw_record_uuid, source_account_uuid, partition_sequence,
			partition_amount, payment_id, payment_uuid, project_uuid, counteragent_uuid,
			financial_code_uuid, nominal_currency_uuid, nominal_amount, created_by, created_at
		FROM batch_partitions
		WHERE batch_uuid = $1
		ORDER BY partition_sequence
	`

	b, err := r.load(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, batch.ErrBatchNotFound{UUID: id}
	}
	return b, nil
}

// GetByRawRecord returns nil, nil when the record is not split
func (r *BatchRepository) GetByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (*batch.Batch, error) {
	query := `
		SELECT id, batch_uuid, batch_id, raw_record_uuid, source_account_uuid, partition_sequence,
			partition_amount, payment_id, payment_uuid, project_uuid, counteragent_uuid,
			financial_code_uuid, nominal_currency_uuid, nominal_amount, created_by, created_at
		FROM batch_partitions
		WHERE raw_record_uuid = $1
		ORDER BY partition_sequence
	`

	return r.load(ctx, query, rawRecordUUID)
}

// load folds partition rows into a batch; no rows gives nil
func (r *BatchRepository) load(ctx context.Context, query string, id uuid.UUID) (*batch.Batch, error) {
	rows, err := r.querier.Query(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to load batch", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	defer rows.Close()

	var b *batch.Batch
	for rows.Next() {
		var (
			header batch.Batch
			p      batch.Partition
		)
		err := rows.Scan(
			&p.ID,
			&header.UUID,
			&header.BatchID,
			&header.RawRecordUUID,
			&header.SourceAccountUUID,
			&p.Sequence,
			&p.Amount,
			&p.PaymentID,
			&p.PaymentUUID,
			&p.ProjectUUID,
			&p.CounteragentUUID,
			&p.FinancialCodeUUID,
			&p.NominalCurrencyUUID,
			&p.NominalAmount,
			&header.CreatedBy,
			&header.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch partition: %w", err)
		}
		if b == nil {
			b = &header
		}
		b.Partitions = append(b.Partitions, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over batch partitions: %w", err)
	}

	return b, nil
}

func (r *BatchRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `
		DELETE FROM batch_partitions
		WHERE batch_uuid = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete batch", "batch_uuid", id.String(), "error", err)
		return 0, fmt.Errorf("failed to delete batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, batch.ErrBatchNotFound{UUID: id}
	}

	return result.RowsAffected(), nil
}

func (r *BatchRepository) DeleteByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM batch_partitions
		WHERE raw_record_uuid = $1
	`

	result, err := r.querier.Exec(ctx, query, rawRecordUUID)
	if err != nil {
		r.logger.Error("Failed to delete batch partitions", "raw_record_uuid", rawRecordUUID.String(), "error", err)
		return 0, fmt.Errorf("failed to delete batch partitions: %w", err)
	}

	return result.RowsAffected(), nil
}
