// Package mongo holds the read-side projections of processed closures.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

const (
	// ClosureCollectionName is the name of the closure projection collection
	ClosureCollectionName = "payout_calculations"
)

// ClosureRepository implements the closure.Repository interface for MongoDB
type ClosureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewClosureRepository creates a new MongoDB closure repository
func NewClosureRepository(logger *slog.Logger, db *mongo.Database) *ClosureRepository {
	return &ClosureRepository{
		db:     db,
		logger: logger,
	}
}

var _ closure.Repository = (*ClosureRepository)(nil)

// EnsureIndexes creates the unique closure_id index and the lookup indexes.
func (r *ClosureRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "closure_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reference_type", Value: 1}, {Key: "reference_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := r.db.Collection(ClosureCollectionName).Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create closure indexes", "error", err)
		return fmt.Errorf("failed to create closure indexes: %w", err)
	}
	return nil
}

// Upsert replaces the projection of a closure. Republishing the same event
// leaves a single document.
func (r *ClosureRepository) Upsert(ctx context.Context, rec *closure.Record) error {
	collection := r.db.Collection(ClosureCollectionName)

	filter := bson.M{"closure_id": rec.ClosureID}
	_, err := collection.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert closure record",
			"closure_id", rec.ClosureID,
			"error", err)
		return fmt.Errorf("failed to upsert closure record: %w", err)
	}
	return nil
}

// GetByClosureID returns closure.ErrRecordNotFound for an unknown closure.
func (r *ClosureRepository) GetByClosureID(ctx context.Context, closureID string) (*closure.Record, error) {
	collection := r.db.Collection(ClosureCollectionName)

	var rec closure.Record
	err := collection.FindOne(ctx, bson.M{"closure_id": closureID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, closure.ErrRecordNotFound{ClosureID: closureID}
		}
		r.logger.Error("Failed to get closure record",
			"closure_id", closureID,
			"error", err)
		return nil, fmt.Errorf("failed to get closure record: %w", err)
	}
	return &rec, nil
}

// GetByReference lists every closure of a reference, newest first.
func (r *ClosureRepository) GetByReference(ctx context.Context, referenceType, referenceID string) ([]*closure.Record, error) {
	filter := bson.M{"reference_type": referenceType, "reference_id": referenceID}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	return r.find(ctx, filter, opts, "reference_id", referenceID)
}

// ListByStatus retrieves paginated closures in a given status, newest first.
func (r *ClosureRepository) ListByStatus(ctx context.Context, status shared.ClosureStatus, limit, offset int) ([]*closure.Record, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"status": status}, opts, "status", string(status))
}

// CountByStatus counts closures in a given status
func (r *ClosureRepository) CountByStatus(ctx context.Context, status shared.ClosureStatus) (int64, error) {
	count, err := r.db.Collection(ClosureCollectionName).CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		r.logger.Error("Failed to count closure records",
			"status", string(status),
			"error", err)
		return 0, fmt.Errorf("failed to count closure records: %w", err)
	}
	return count, nil
}

func (r *ClosureRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions, logKey, logValue string) ([]*closure.Record, error) {
	cursor, err := r.db.Collection(ClosureCollectionName).Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to find closure records", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to find closure records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*closure.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode closure records", logKey, logValue, "error", err)
		return nil, fmt.Errorf("failed to decode closure records: %w", err)
	}
	return records, nil
}
