// Package objectstore archives uploaded statement files and fetches statements
// referenced by gs:// URIs for import jobs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/statement-reconciliation/internal/config"
)

const uriScheme = "gs://"

// ErrStorageDisabled is returned by Get when no bucket is configured
var ErrStorageDisabled = errors.New("object storage is disabled")

// StatementStore archives and retrieves raw statement files
type StatementStore interface {
	Put(ctx context.Context, fileName string, data []byte) (string, error)
	Get(ctx context.Context, uri string) ([]byte, error)
	Close() error
}

// GCSStore keeps statement files in a Google Cloud Storage bucket
type GCSStore struct {
	logger  *slog.Logger
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewStatementStore returns a GCS-backed store, or a disabled one when storage is off
func NewStatementStore(ctx context.Context, logger *slog.Logger, cfg *config.StorageConfig) (StatementStore, error) {
	if !cfg.Enabled {
		logger.Info("Object storage disabled, uploaded statements are not archived")
		return disabledStore{}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	logger.Info("Object storage initialized", "bucket", cfg.Bucket)
	return &GCSStore{
		logger:  logger,
		client:  client,
		bucket:  cfg.Bucket,
		timeout: 2 * time.Minute,
	}, nil
}

// Put uploads a statement under statements/<date>/<uuid>_<name> and returns its gs:// URI
func (s *GCSStore) Put(ctx context.Context, fileName string, data []byte) (string, error) {
	objectName := ObjectName(time.Now(), uuid.New(), fileName)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/xml"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to upload statement", "object", objectName, "error", err)
		return "", fmt.Errorf("write statement object: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize statement upload", "object", objectName, "error", err)
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	uri := uriScheme + s.bucket + "/" + objectName
	s.logger.Info("Statement archived", "uri", uri, "size", len(data))
	return uri, nil
}

// Get downloads the object behind a gs:// URI; the bucket in the URI may differ from the configured one
func (s *GCSStore) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return data, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

type disabledStore struct{}

func (disabledStore) Put(context.Context, string, []byte) (string, error) { return "", nil }

func (disabledStore) Get(context.Context, string) ([]byte, error) { return nil, ErrStorageDisabled }

func (disabledStore) Close() error { return nil }

// ParseURI splits gs://bucket/path/to/object into bucket and object path
func ParseURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FileName returns the last path element of a gs:// URI
func FileName(uri string) string {
	trimmed := strings.TrimPrefix(uri, uriScheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// ObjectName builds a collision-free object path for an upload
func ObjectName(now time.Time, id uuid.UUID, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "statement.xml"
	}
	return fmt.Sprintf("statements/%s/%s_%s", now.UTC().Format("2006/01/02"), id.String(), base)
}
