package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
)

const (
	// JobReportCollectionName is the name of the job report collection in MongoDB
	JobReportCollectionName = "job_reports"
)

// JobReportIndexes makes job ids unique and supports recent-first listing
func JobReportIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
}

// JobReportRepository implements the job.Repository interface for MongoDB
type JobReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJobReportRepository creates a new MongoDB job report repository
func NewJobReportRepository(logger *slog.Logger, db *mongo.Database) job.Repository {
	return &JobReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new report. Returns ErrDuplicateReport if the job id was already submitted.
func (r *JobReportRepository) Create(ctx context.Context, report *job.Report) error {
	collection := r.db.Collection(JobReportCollectionName)

	if _, err := collection.InsertOne(ctx, report); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return job.ErrDuplicateReport{JobID: report.JobID}
		}
		r.logger.Error("Failed to create job report",
			"job_id", report.JobID.String(),
			"error", err)
		return fmt.Errorf("failed to create job report: %w", err)
	}

	return nil
}

// GetByJobID retrieves a report. Returns ErrReportNotFound if the job is unknown.
func (r *JobReportRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*job.Report, error) {
	collection := r.db.Collection(JobReportCollectionName)

	var report job.Report
	err := collection.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, job.ErrReportNotFound{JobID: jobID}
		}
		r.logger.Error("Failed to get job report",
			"job_id", jobID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get job report: %w", err)
	}

	return &report, nil
}

// MarkRunning records the start of processing
func (r *JobReportRepository) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	update := bson.M{
		"$set": bson.M{
			"status":     shared.JobStatusRunning,
			"started_at": time.Now(),
		},
	}
	return r.update(ctx, jobID, update, "mark job running")
}

// Finish stores the per-scope outcome and final status
func (r *JobReportRepository) Finish(ctx context.Context, jobID uuid.UUID, status shared.JobStatus, scopes []job.ScopeResult, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"scopes":      scopes,
			"error":       errMsg,
			"finished_at": time.Now(),
		},
	}
	return r.update(ctx, jobID, update, "finish job")
}

func (r *JobReportRepository) update(ctx context.Context, jobID uuid.UUID, update bson.M, op string) error {
	collection := r.db.Collection(JobReportCollectionName)

	result, err := collection.UpdateOne(ctx, bson.M{"job_id": jobID}, update)
	if err != nil {
		r.logger.Error("Failed to "+op,
			"job_id", jobID.String(),
			"error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if result.MatchedCount == 0 {
		return job.ErrReportNotFound{JobID: jobID}
	}

	return nil
}
