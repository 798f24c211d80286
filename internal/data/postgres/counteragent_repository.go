package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/statement-reconciliation/internal/domain/counteragent"
	"github.com/statement-reconciliation/internal/platform/persistence"
)

// CounteragentRepository implements the counteragent.Repository interface for PostgreSQL
type CounteragentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCounteragentRepository(logger *slog.Logger, db *persistence.PostgresDB) counteragent.Repository {
	return &CounteragentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CounteragentRepository) WithTx(tx pgx.Tx) counteragent.Repository {
	return &CounteragentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// FindByINN returns nil, nil when no active counteragent carries the tax id. Duplicates
// resolve to the oldest record.
func (r *CounteragentRepository) FindByINN(ctx context.Context, inn string) (*counteragent.Counteragent, error) {
	inn = counteragent.NormalizeINN(inn)
	if inn == "" {
		return nil, nil
	}

	query := `
		SELECT uuid, name, inn, is_active, created_at
		FROM counteragents
		WHERE inn = $1 AND is_active
		ORDER BY created_at, uuid
		LIMIT 1
	`

	var ca counteragent.Counteragent
	err := r.querier.QueryRow(ctx, query, inn).Scan(
		&ca.UUID,
		&ca.Name,
		&ca.INN,
		&ca.IsActive,
		&ca.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find counteragent by INN", "inn", inn, "error", err)
		return nil, fmt.Errorf("failed to find counteragent by INN: %w", err)
	}

	return &ca, nil
}
