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

// RawRecordRepository implements the rawrecord.Repository interface for PostgreSQL.
// All source accounts share the raw_records table, discriminated by source_account_uuid.
type RawRecordRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewRawRecordRepository(logger *slog.Logger, db *persistence.PostgresDB) rawrecord.Repository {
	return &RawRecordRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *RawRecordRepository) WithTx(tx pgx.Tx) rawrecord.Repository {
	return &RawRecordRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const rawRecordColumns = `uuid, source_account_uuid, schema_version, doc_key, entries_id, transaction_date,
		debit, credit, currency,
		COALESCE(sender_name, ''), COALESCE(sender_inn, ''), COALESCE(sender_account, ''),
		COALESCE(beneficiary_name, ''), COALESCE(beneficiary_inn, ''), COALESCE(beneficiary_account, ''),
		COALESCE(correspondent_account, ''), COALESCE(memo, ''), COALESCE(nomination, ''), extra,
		counteragent_uuid, payment_id, parsing_lock, is_processed, applied_rule_id,
		import_file, imported_at, updated_at`

// notInBatch excludes records split by a batch; their assignment belongs to the partitions
const notInBatch = `NOT EXISTS (SELECT 1 FROM batch_partitions bp WHERE bp.raw_record_uuid = raw_records.uuid)`

func scanRawRecord(row pgx.Row) (*rawrecord.RawRecord, error) {
	var rec rawrecord.RawRecord
	err := row.Scan(
		&rec.UUID,
		&rec.SourceAccountUUID,
		&rec.SchemaVersion,
		&rec.DocKey,
		&rec.EntriesID,
		&rec.TransactionDate,
		&rec.Debit,
		&rec.Credit,
		&rec.Currency,
		&rec.Sender.Name,
		&rec.Sender.INN,
		&rec.Sender.Account,
		&rec.Beneficiary.Name,
		&rec.Beneficiary.INN,
		&rec.Beneficiary.Account,
		&rec.CorrespondentAcct,
		&rec.Memo,
		&rec.Nomination,
		&rec.Extra,
		&rec.CounteragentUUID,
		&rec.PaymentID,
		&rec.ParsingLock,
		&rec.IsProcessed,
		&rec.AppliedRuleID,
		&rec.ImportFile,
		&rec.ImportedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RawRecordRepository) list(ctx context.Context, op, query string, args ...any) ([]*rawrecord.RawRecord, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var records []*rawrecord.RawRecord
	for rows.Next() {
		rec, err := scanRawRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan raw record", "error", err)
			return nil, fmt.Errorf("failed to scan raw record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over raw records: %w", err)
	}

	return records, nil
}

func collectUUIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert inserts new records and refreshes the statement columns of existing ones.
// Automated fields and the lock of an existing record are never touched by re-import.
func (r *RawRecordRepository) Upsert(ctx context.Context, records []*rawrecord.RawRecord) ([]uuid.UUID, error) {
	query := `
		INSERT INTO raw_records (uuid, source_account_uuid, schema_version, doc_key, entries_id, transaction_date,
			debit, credit, currency, sender_name, sender_inn, sender_account,
			beneficiary_name, beneficiary_inn, beneficiary_account, correspondent_account,
			memo, nomination, extra, import_file, imported_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (uuid) DO UPDATE SET
			transaction_date = EXCLUDED.transaction_date,
			debit = EXCLUDED.debit,
			credit = EXCLUDED.credit,
			currency = EXCLUDED.currency,
			sender_name = EXCLUDED.sender_name,
			sender_inn = EXCLUDED.sender_inn,
			sender_account = EXCLUDED.sender_account,
			beneficiary_name = EXCLUDED.beneficiary_name,
			beneficiary_inn = EXCLUDED.beneficiary_inn,
			beneficiary_account = EXCLUDED.beneficiary_account,
			correspondent_account = EXCLUDED.correspondent_account,
			memo = EXCLUDED.memo,
			nomination = EXCLUDED.nomination,
			extra = EXCLUDED.extra,
			import_file = EXCLUDED.import_file,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`

	var inserted []uuid.UUID
	for _, rec := range records {
		extra := rec.Extra
		if extra == nil {
			extra = map[string]string{}
		}

		var isNew bool
		err := r.querier.QueryRow(ctx, query,
			rec.UUID,
			rec.SourceAccountUUID,
			rec.SchemaVersion,
			rec.DocKey,
			rec.EntriesID,
			rec.TransactionDate,
			rec.Debit,
			rec.Credit,
			rec.Currency,
			rec.Sender.Name,
			rec.Sender.INN,
			rec.Sender.Account,
			rec.Beneficiary.Name,
			rec.Beneficiary.INN,
			rec.Beneficiary.Account,
			rec.CorrespondentAcct,
			rec.Memo,
			rec.Nomination,
			extra,
			rec.ImportFile,
			rec.ImportedAt,
			rec.UpdatedAt,
		).Scan(&isNew)
		if err != nil {
			r.logger.Error("Failed to upsert raw record", "uuid", rec.UUID.String(), "error", err)
			return nil, fmt.Errorf("failed to upsert raw record %s: %w", rec.UUID, err)
		}
		if isNew {
			inserted = append(inserted, rec.UUID)
		}
	}

	return inserted, nil
}

func (r *RawRecordRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE uuid = $1
	`

	rec, err := scanRawRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rawrecord.ErrRawRecordNotFound{UUID: id}
		}
		r.logger.Error("Failed to get raw record", "uuid", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get raw record: %w", err)
	}

	return rec, nil
}

func (r *RawRecordRepository) GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]*rawrecord.RawRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE uuid = ANY($1)
		ORDER BY uuid
	`

	return r.list(ctx, "get raw records", query, ids)
}

// LockForUpdate obtains a row lock on the raw record and returns its current state
func (r *RawRecordRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE uuid = $1
		FOR UPDATE
	`

	rec, err := scanRawRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rawrecord.ErrRawRecordNotFound{UUID: id}
		}
		r.logger.Error("Failed to lock raw record for update", "uuid", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock raw record for update: %w", err)
	}

	return rec, nil
}

// ListUnprocessed pages unlocked records that no rule has matched yet. Rows locked by
// concurrent transactions are skipped rather than waited on.
func (r *RawRecordRepository) ListUnprocessed(ctx context.Context, after uuid.UUID, limit int) ([]*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE NOT is_processed AND NOT parsing_lock AND uuid > $1 AND ` + notInBatch + `
		ORDER BY uuid
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	return r.list(ctx, "list unprocessed raw records", query, after, limit)
}

func (r *RawRecordRepository) ListUnlockedBySource(ctx context.Context, source uuid.UUID, after uuid.UUID, limit int) ([]*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE source_account_uuid = $1 AND NOT parsing_lock AND uuid > $2 AND ` + notInBatch + `
		ORDER BY uuid
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`

	return r.list(ctx, "list raw records by source", query, source, after, limit)
}

func (r *RawRecordRepository) ListUnlockedByPaymentID(ctx context.Context, paymentID string) ([]*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE payment_id = $1 AND NOT parsing_lock AND ` + notInBatch + `
		ORDER BY uuid
		FOR UPDATE SKIP LOCKED
	`

	return r.list(ctx, "list raw records by payment id", query, paymentID)
}

// ApplyAssignment writes the assignment to the listed records that are still unlocked.
// is_processed follows whether a rule produced the assignment.
func (r *RawRecordRepository) ApplyAssignment(ctx context.Context, ids []uuid.UUID, a rawrecord.Assignment) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		UPDATE raw_records
		SET counteragent_uuid = $1, payment_id = $2, applied_rule_id = $3, is_processed = $4,
			parsing_lock = $5, updated_at = NOW()
		WHERE uuid = ANY($6) AND NOT parsing_lock
		RETURNING uuid
	`

	rows, err := r.querier.Query(ctx, query,
		a.CounteragentUUID,
		a.PaymentID,
		a.AppliedRuleID,
		a.AppliedRuleID != nil,
		a.Lock,
		ids,
	)
	if err != nil {
		r.logger.Error("Failed to apply assignment", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to apply assignment: %w", err)
	}

	updated, err := collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read updated raw records: %w", err)
	}
	return updated, nil
}

// ClearAutomated resets derived fields of a source account's unlocked records; the lock stays
func (r *RawRecordRepository) ClearAutomated(ctx context.Context, source uuid.UUID) (int64, error) {
	query := `
		UPDATE raw_records
		SET counteragent_uuid = NULL, payment_id = NULL, applied_rule_id = NULL, is_processed = FALSE, updated_at = NOW()
		WHERE source_account_uuid = $1 AND NOT parsing_lock AND ` + notInBatch

	result, err := r.querier.Exec(ctx, query, source)
	if err != nil {
		r.logger.Error("Failed to clear automated fields", "source_account_uuid", source.String(), "error", err)
		return 0, fmt.Errorf("failed to clear automated fields: %w", err)
	}

	return result.RowsAffected(), nil
}

// AssignBatch points the record at its batch token and locks it
func (r *RawRecordRepository) AssignBatch(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE raw_records
		SET payment_id = $1, parsing_lock = TRUE, updated_at = NOW()
		WHERE uuid = $2
	`

	result, err := r.querier.Exec(ctx, query, token, id)
	if err != nil {
		r.logger.Error("Failed to assign batch", "uuid", id.String(), "error", err)
		return fmt.Errorf("failed to assign batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rawrecord.ErrRawRecordNotFound{UUID: id}
	}

	return nil
}

func (r *RawRecordRepository) SetLock(ctx context.Context, id uuid.UUID, locked bool) error {
	query := `
		UPDATE raw_records
		SET parsing_lock = $1, updated_at = NOW()
		WHERE uuid = $2
	`

	result, err := r.querier.Exec(ctx, query, locked, id)
	if err != nil {
		r.logger.Error("Failed to set parsing lock", "uuid", id.String(), "locked", locked, "error", err)
		return fmt.Errorf("failed to set parsing lock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return rawrecord.ErrRawRecordNotFound{UUID: id}
	}

	return nil
}

const unboundFilter = `counteragent_uuid IS NOT NULL AND payment_id IS NULL AND ` + notInBatch + `
		AND ($1::uuid IS NULL OR source_account_uuid = $1)`

func (r *RawRecordRepository) CountUnbound(ctx context.Context, source *uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM raw_records
		WHERE ` + unboundFilter

	var count int64
	if err := r.querier.QueryRow(ctx, query, source).Scan(&count); err != nil {
		r.logger.Error("Failed to count unbound raw records", "error", err)
		return 0, fmt.Errorf("failed to count unbound raw records: %w", err)
	}

	return count, nil
}

func (r *RawRecordRepository) ListUnbound(ctx context.Context, source *uuid.UUID, limit, offset int) ([]*rawrecord.RawRecord, error) {
	query := `
		SELECT ` + rawRecordColumns + `
		FROM raw_records
		WHERE ` + unboundFilter + `
		ORDER BY transaction_date, uuid
		LIMIT $2 OFFSET $3
	`

	return r.list(ctx, "list unbound raw records", query, source, limit, offset)
}
