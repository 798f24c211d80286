package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/statement-reconciliation/internal/domain/payment"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const paymentColumns = `uuid, payment_id, project_uuid, counteragent_uuid, financial_code_uuid, currency_uuid,
		job_uuid, is_active, created_at`

func paymentDest(p *payment.Payment) []any {
	return []any{
		&p.UUID,
		&p.PaymentID,
		&p.ProjectUUID,
		&p.CounteragentUUID,
		&p.FinancialCodeUUID,
		&p.CurrencyUUID,
		&p.JobUUID,
		&p.IsActive,
		&p.CreatedAt,
	}
}

// GetByPaymentID looks up an active payment by its identifier
func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_id = $1 AND is_active
	`

	var p payment.Payment
	if err := r.querier.QueryRow(ctx, query, paymentID).Scan(paymentDest(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: paymentID}
		}
		r.logger.Error("Failed to get payment", "payment_id", paymentID, "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &p, nil
}

func (r *PaymentRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE uuid = $1 AND is_active
	`

	var p payment.Payment
	if err := r.querier.QueryRow(ctx, query, id).Scan(paymentDest(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id.String()}
		}
		r.logger.Error("Failed to get payment", "payment_uuid", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &p, nil
}

// GetByPaymentIDs returns the active payments found, keyed by payment id; unknown ids are absent
func (r *PaymentRepository) GetByPaymentIDs(ctx context.Context, paymentIDs []string) (map[string]*payment.Payment, error) {
	found := make(map[string]*payment.Payment, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return found, nil
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_id = ANY($1) AND is_active
	`

	rows, err := r.querier.Query(ctx, query, paymentIDs)
	if err != nil {
		r.logger.Error("Failed to get payments", "error", err)
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p payment.Payment
		if err := rows.Scan(paymentDest(&p)...); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		found[p.PaymentID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over payments: %w", err)
	}

	return found, nil
}

// LockForUpdate locks the payment rows in uuid order so concurrent ledger writers cannot deadlock
func (r *PaymentRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) error {
	query := `
		SELECT uuid
		FROM payments
		WHERE uuid = ANY($1)
		ORDER BY uuid
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to lock payments for update", "count", len(ids), "error", err)
		return fmt.Errorf("failed to lock payments for update: %w", err)
	}
	locked, err := collectUUIDs(rows)
	if err != nil {
		return fmt.Errorf("failed to lock payments for update: %w", err)
	}
	if len(locked) != len(ids) {
		return fmt.Errorf("failed to lock payments for update: locked %d of %d", len(locked), len(ids))
	}

	return nil
}

// Totals sums non-deleted ledger entries; payments without entries get zero totals
func (r *PaymentRepository) Totals(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]payment.Totals, error) {
	totals := make(map[uuid.UUID]payment.Totals, len(ids))
	for _, id := range ids {
		totals[id] = payment.Totals{Accrual: decimal.Zero, Order: decimal.Zero}
	}

	query := `
		SELECT payment_uuid, COALESCE(SUM(accrual), 0), COALESCE(SUM(order_amount), 0)
		FROM payment_ledger
		WHERE payment_uuid = ANY($1) AND NOT is_deleted
		GROUP BY payment_uuid
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to sum ledger entries", "error", err)
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id uuid.UUID
			t  payment.Totals
		)
		if err := rows.Scan(&id, &t.Accrual, &t.Order); err != nil {
			return nil, fmt.Errorf("failed to scan ledger totals: %w", err)
		}
		totals[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger totals: %w", err)
	}

	return totals, nil
}

// InsertEntries appends ledger entries and fills in their ids
func (r *PaymentRepository) InsertEntries(ctx context.Context, entries []*payment.LedgerEntry) error {
	query := `
		INSERT INTO payment_ledger (payment_uuid, effective_date, accrual, order_amount, comment, user_email, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, FALSE, $7)
		RETURNING id
	`

	for _, e := range entries {
		err := r.querier.QueryRow(ctx, query,
			e.PaymentUUID,
			e.EffectiveDate,
			e.Accrual,
			e.Order,
			e.Comment,
			e.UserEmail,
			e.CreatedAt,
		).Scan(&e.ID)
		if err != nil {
			r.logger.Error("Failed to insert ledger entry", "payment_id", e.PaymentID, "error", err)
			return fmt.Errorf("failed to insert ledger entry for payment %s: %w", e.PaymentID, err)
		}
	}

	return nil
}

// ListOpen returns the counteragent's payments whose ordered amount is not yet covered by
// consolidated bank movements, oldest obligation first
func (r *PaymentRepository) ListOpen(ctx context.Context, counteragentUUID uuid.UUID) ([]*payment.OpenPayment, error) {
	query := `
		SELECT p.uuid, p.payment_id, p.project_uuid, p.counteragent_uuid, p.financial_code_uuid, p.currency_uuid,
			p.job_uuid, p.is_active, p.created_at,
			l.earliest_date, l.ordered - COALESCE(c.covered, 0)
		FROM payments p
		JOIN (
			SELECT payment_uuid, MIN(effective_date) AS earliest_date, SUM(order_amount) AS ordered
			FROM payment_ledger
			WHERE NOT is_deleted
			GROUP BY payment_uuid
		) l ON l.payment_uuid = p.uuid
		LEFT JOIN (
			SELECT payment_id, SUM(ABS(amount)) AS covered
			FROM consolidated_records
			WHERE payment_id IS NOT NULL
			GROUP BY payment_id
		) c ON c.payment_id = p.payment_id
		WHERE p.counteragent_uuid = $1 AND p.is_active AND l.ordered - COALESCE(c.covered, 0) > 0
		ORDER BY l.earliest_date, p.payment_id
	`

	rows, err := r.querier.Query(ctx, query, counteragentUUID)
	if err != nil {
		r.logger.Error("Failed to list open payments", "counteragent_uuid", counteragentUUID.String(), "error", err)
		return nil, fmt.Errorf("failed to list open payments: %w", err)
	}
	defer rows.Close()

	var open []*payment.OpenPayment
	for rows.Next() {
		var op payment.OpenPayment
		dest := append(paymentDest(&op.Payment), &op.EarliestDate, &op.Outstanding)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan open payment: %w", err)
		}
		open = append(open, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over open payments: %w", err)
	}

	return open, nil
}
