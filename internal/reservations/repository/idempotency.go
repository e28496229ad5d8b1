package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "trimline/internal/reservations/errors"
	"trimline/pkg/config"
	"trimline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	IdempotencyCollectionName = "Reservation_idempotency"
)

// IdempotencyRepository persists the key -> result ledger. Insert races
// are resolved by the unique (key, operation_type) index: the loser gets
// ErrIdempotencyRecordExists and re-reads the winner's record.
type IdempotencyRepository interface {
	Find(ctx context.Context, key, operationType string) (*model.IdempotencyRecord, error)
	Insert(ctx context.Context, record *model.IdempotencyRecord) error
}

type mongoIdempotencyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoIdempotencyRepository(cfg *config.Config) IdempotencyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoIdempotencyRepository{
		cfg:        cfg,
		collection: db.Collection(IdempotencyCollectionName),
	}
}

func (r *mongoIdempotencyRepository) Find(ctx context.Context, key, operationType string) (*model.IdempotencyRecord, error) {
	filter := bson.M{"key": key, "operation_type": operationType}

	var record model.IdempotencyRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNoIdempotencyRecord
		}
		return nil, fmt.Errorf("failed to find idempotency record: %w", err)
	}

	// The TTL monitor deletes lazily; treat an expired record as absent so
	// a stale key does not replay a long-gone result.
	if record.Expired(time.Now()) {
		return nil, reserrors.ErrNoIdempotencyRecord
	}

	return &record, nil
}

func (r *mongoIdempotencyRepository) Insert(ctx context.Context, record *model.IdempotencyRecord) error {
	record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(r.cfg.IdempotencyTTL)
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reserrors.ErrIdempotencyRecordExists
		}
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}
