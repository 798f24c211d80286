package service

import (
	"context"
	"log/slog"

	"github.com/statement-reconciliation/internal/platform/objectstore"
	"github.com/statement-reconciliation/internal/reconciliation/ingest"
)

// UploadResult is an import report plus where the original file was archived
type UploadResult struct {
	ObjectURI string               `json:"object_uri,omitempty"`
	Report    *ingest.ImportReport `json:"report"`
}

type StatementServiceImpl struct {
	store    objectstore.StatementStore
	importer Importer
	logger   *slog.Logger
}

func NewStatementService(logger *slog.Logger, store objectstore.StatementStore, importer Importer) StatementService {
	return &StatementServiceImpl{
		store:    store,
		importer: importer,
		logger:   logger,
	}
}

// Upload archives the file first so a failed import can be retried from the archive
func (s *StatementServiceImpl) Upload(ctx context.Context, fileName string, content []byte, operatorEmail string) (*UploadResult, error) {
	uri, err := s.store.Put(ctx, fileName, content)
	if err != nil {
		s.logger.Error("Failed to archive statement file", "file_name", fileName, "error", err)
		return nil, err
	}

	report, err := s.importer.Import(ctx, fileName, content, operatorEmail)
	if err != nil {
		s.logger.Warn("Statement import failed", "file_name", fileName, "object_uri", uri, "error", err)
		return nil, err
	}
	return &UploadResult{ObjectURI: uri, Report: report}, nil
}
