package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/statement-reconciliation/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "audit_trail"
)

// AuditIndexes are the indexes the audit trail relies on; event_id uniqueness makes delivery idempotent
func AuditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "raw_record_uuid", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "occurred_at", Value: -1}}},
	}
}

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit trail repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores an entry once per event id. Redelivered events leave the stored entry untouched.
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	filter := bson.M{"event_id": entry.EventID}
	update := bson.M{"$setOnInsert": entry}
	opts := options.Update().SetUpsert(true)

	result, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to record audit entry",
			"event_id", entry.EventID.String(),
			"event_type", string(entry.EventType),
			"error", err)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	if result.UpsertedCount == 0 {
		r.logger.Debug("Audit entry already recorded", "event_id", entry.EventID.String())
	}

	return nil
}

// ListByRawRecord returns a raw record's history, oldest first
func (r *AuditRepository) ListByRawRecord(ctx context.Context, rawRecordUUID uuid.UUID, limit int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"raw_record_uuid": rawRecordUUID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts, "raw_record_uuid", rawRecordUUID.String())
}

// ListByTimeRange retrieves paginated audit entries within the window, newest first
func (r *AuditRepository) ListByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{
		"occurred_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts, "start_time", start)
}

func (r *AuditRepository) find(ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions, logKey string, logValue any) ([]*audit.Entry, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}
