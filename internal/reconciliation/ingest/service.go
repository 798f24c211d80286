// Package ingest imports bank statement exports into the raw record store
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/outbox"
	"github.com/statement-reconciliation/internal/domain/rawrecord"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/platform/persistence"
	"github.com/statement-reconciliation/internal/statement"
)

// RecordProcessor derives assignments for freshly stored records
type RecordProcessor interface {
	ProcessRecords(ctx context.Context, ids []uuid.UUID, operatorEmail string) job.ScopeResult
}

// ImportReport summarizes one statement import
type ImportReport struct {
	FileName      string          `json:"file_name"`
	SourceAccount string          `json:"source_account"`
	AccountUUID   uuid.UUID       `json:"source_account_uuid"`
	Total         int             `json:"total"`
	Inserted      int             `json:"inserted"`
	Existing      int             `json:"existing"`
	Duplicates    int             `json:"duplicates"` // repeated lines within the file, stored once
	Derivation    job.ScopeResult `json:"derivation"`
}

type Service struct {
	logger    *slog.Logger
	tx        persistence.Transactor
	raw       rawrecord.Repository
	outbox    outbox.Repository
	registry  *rawrecord.Registry
	processor RecordProcessor
}

func NewService(
	logger *slog.Logger,
	tx persistence.Transactor,
	raw rawrecord.Repository,
	outboxRepo outbox.Repository,
	registry *rawrecord.Registry,
	processor RecordProcessor,
) *Service {
	return &Service{
		logger:    logger,
		tx:        tx,
		raw:       raw,
		outbox:    outboxRepo,
		registry:  registry,
		processor: processor,
	}
}

// Import parses a statement export, stores its detail records and derives assignments for the new ones.
// Re-importing the same export refreshes statement columns and leaves assignments untouched.
func (s *Service) Import(ctx context.Context, fileName string, content []byte, operatorEmail string) (*ImportReport, error) {
	logger := s.logger.With("file_name", fileName)

	details, err := statement.ParseBytes(content)
	if err != nil {
		logger.Error("Failed to parse statement", "error", err)
		return nil, err
	}

	account, err := statement.IdentifyAccount(ctx, details, s.registry)
	if err != nil {
		logger.Error("Failed to identify statement account", "error", err)
		return nil, err
	}

	records := make([]*rawrecord.RawRecord, 0, len(details))
	seen := make(map[uuid.UUID]struct{}, len(details))
	for _, d := range details {
		if _, dup := seen[d.Key]; dup {
			continue
		}
		seen[d.Key] = struct{}{}
		records = append(records, d.ToRawRecord(account, fileName))
	}

	report := &ImportReport{
		FileName:      fileName,
		SourceAccount: account.Label(),
		AccountUUID:   account.UUID,
		Total:         len(details),
		Duplicates:    len(details) - len(records),
	}

	var inserted []uuid.UUID
	err = s.tx.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		inserted, err = s.raw.WithTx(tx).Upsert(ctx, records)
		if err != nil {
			return err
		}

		msg, err := outbox.NewMessage(shared.EventStatementImported, nil, operatorEmail, map[string]any{
			"file_name":           fileName,
			"source_account_uuid": account.UUID,
			"total":               report.Total,
			"inserted":            len(inserted),
		})
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return s.outbox.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		logger.Error("Failed to store statement records", "error", err)
		return nil, err
	}

	report.Inserted = len(inserted)
	report.Existing = len(records) - report.Inserted
	report.Derivation = s.processor.ProcessRecords(ctx, inserted, operatorEmail)
	if !report.Derivation.Success {
		// stored rows stay; a later backparse derives them
		logger.Warn("Derivation of imported records failed", "error", report.Derivation.Error)
	}

	logger.Info("Statement imported",
		"source_account", report.SourceAccount,
		"total", report.Total,
		"inserted", report.Inserted,
		"existing", report.Existing,
		"duplicates", report.Duplicates,
	)
	return report, nil
}
