package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/consolidated"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// ConsolidatedRepository implements the consolidated.Repository interface for PostgreSQL
type ConsolidatedRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewConsolidatedRepository(logger *slog.Logger, db *persistence.PostgresDB) consolidated.Repository {
	return &ConsolidatedRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ConsolidatedRepository) WithTx(tx pgx.Tx) consolidated.Repository {
	return &ConsolidatedRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert writes rows keyed by (raw_record_uuid, partition_sequence)
func (r *ConsolidatedRepository) Upsert(ctx context.Context, records []*consolidated.Record) error {
	query := `
		INSERT INTO consolidated_records (raw_record_uuid, partition_sequence, batch_id, source_account_uuid,
			transaction_date, amount, nominal_amount, counteragent_uuid, financial_code_uuid,
			nominal_currency_uuid, project_uuid, payment_id, applied_rule_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (raw_record_uuid, partition_sequence) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			transaction_date = EXCLUDED.transaction_date,
			amount = EXCLUDED.amount,
			nominal_amount = EXCLUDED.nominal_amount,
			counteragent_uuid = EXCLUDED.counteragent_uuid,
			financial_code_uuid = EXCLUDED.financial_code_uuid,
			nominal_currency_uuid = EXCLUDED.nominal_currency_uuid,
			project_uuid = EXCLUDED.project_uuid,
			payment_id = EXCLUDED.payment_id,
			applied_rule_id = EXCLUDED.applied_rule_id,
			updated_at = EXCLUDED.updated_at
	`

	for _, rec := range records {
		_, err := r.querier.Exec(ctx, query,
			rec.RawRecordUUID,
			rec.PartitionSequence,
			rec.BatchID,
			rec.SourceAccountUUID,
			rec.TransactionDate,
			rec.Amount,
			rec.NominalAmount,
			rec.CounteragentUUID,
			rec.FinancialCodeUUID,
			rec.NominalCurrencyUUID,
			rec.ProjectUUID,
			rec.PaymentID,
			rec.AppliedRuleID,
			rec.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to upsert consolidated record",
				"raw_record_uuid", rec.RawRecordUUID.String(),
				"partition_sequence", rec.PartitionSequence,
				"error", err,
			)
			return fmt.Errorf("failed to upsert consolidated record: %w", err)
		}
	}

	return nil
}

// ReplaceForRawRecord swaps the whole consolidated view of one raw record
func (r *ConsolidatedRepository) ReplaceForRawRecord(ctx context.Context, rawRecordUUID uuid.UUID, records []*consolidated.Record) error {
	query := `
		DELETE FROM consolidated_records
		WHERE raw_record_uuid = $1
	`

	if _, err := r.querier.Exec(ctx, query, rawRecordUUID); err != nil {
		r.logger.Error("Failed to delete consolidated records", "raw_record_uuid", rawRecordUUID.String(), "error", err)
		return fmt.Errorf("failed to delete consolidated records: %w", err)
	}

	return r.Upsert(ctx, records)
}

func (r *ConsolidatedRepository) ListByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID) ([]*consolidated.Record, error) {
	query := `
		SELECT raw_record_uuid, partition_sequence, batch_id, source_account_uuid, transaction_date, amount,
			nominal_amount, counteragent_uuid, financial_code_uuid, nominal_currency_uuid, project_uuid,
			payment_id, applied_rule_id, updated_at
		FROM consolidated_records
		WHERE raw_record_uuid = $1
		ORDER BY partition_sequence
	`

	rows, err := r.querier.Query(ctx, query, rawRecordUUID)
	if err != nil {
		r.logger.Error("Failed to list consolidated records", "raw_record_uuid", rawRecordUUID.String(), "error", err)
		return nil, fmt.Errorf("failed to list consolidated records: %w", err)
	}
	defer rows.Close()

	var records []*consolidated.Record
	for rows.Next() {
		var rec consolidated.Record
		err := rows.Scan(
			&rec.RawRecordUUID,
			&rec.PartitionSequence,
			&rec.BatchID,
			&rec.SourceAccountUUID,
			&rec.TransactionDate,
			&rec.Amount,
			&rec.NominalAmount,
			&rec.CounteragentUUID,
			&rec.FinancialCodeUUID,
			&rec.NominalCurrencyUUID,
			&rec.ProjectUUID,
			&rec.PaymentID,
			&rec.AppliedRuleID,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consolidated record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over consolidated records: %w", err)
	}

	return records, nil
}
