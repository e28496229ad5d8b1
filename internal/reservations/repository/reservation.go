package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "trimline/internal/reservations/errors"
	"trimline/pkg/config"
	mongotx "trimline/pkg/db/mongo"
	"trimline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"
)

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context) (int64, error)
	// FindBlockingInRange returns the provider's blocking reservations whose
	// effective intervals intersect [start, end). Called inside the provider
	// lock and transaction so the answer stays true until commit.
	FindBlockingInRange(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error)
	// UpdateWithVersion persists res only if the stored version still equals
	// expectedVersion, incrementing it atomically. Returns false when no
	// document matched (missing or concurrently bumped).
	UpdateWithVersion(ctx context.Context, id string, expectedVersion int64, res *model.Reservation) (bool, error)
	FindByProvider(ctx context.Context, providerID string, from, to *time.Time, limit int, offset int64) ([]*model.Reservation, error)
	CountByProvider(ctx context.Context, providerID string, from, to *time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context
// unchanged with a no-op cancel function, as wrapping a SessionContext breaks
// transaction semantics.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res.ComputeEffectiveInterval()
	result, err := r.collection.InsertOne(ctx, res)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		res.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var res model.Reservation
	err = r.collection.FindOne(ctx, filter).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &res, nil
}

func (r *mongoReservationRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

func (r *mongoReservationRepository) FindBlockingInRange(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// Half-open interval intersection on the denormalized effective bounds,
	// served by the (provider_id, effective_start) index.
	filter := bson.M{
		"provider_id":     providerID,
		"status":          bson.M{"$in": model.BlockingStatuses},
		"effective_start": bson.M{"$lt": end},
		"effective_end":   bson.M{"$gt": start},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocking reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode blocking reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) UpdateWithVersion(ctx context.Context, id string, expectedVersion int64, res *model.Reservation) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	res.ComputeEffectiveInterval()

	filter := bson.M{"_id": objectID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"provider_id":       res.ProviderID,
			"start_time":        res.StartTime,
			"duration_min":      res.DurationMin,
			"buffer_before_min": res.BufferBeforeMin,
			"buffer_after_min":  res.BufferAfterMin,
			"effective_start":   res.EffectiveStart,
			"effective_end":     res.EffectiveEnd,
			"status":            res.Status,
			"notes":             res.Notes,
		},
		"$inc": bson.M{"version": int64(1)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update reservation: %w", err)
	}

	return result.MatchedCount == 1, nil
}

func (r *mongoReservationRepository) FindByProvider(ctx context.Context, providerID string, from, to *time.Time, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildProviderFilter(providerID, from, to)

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "effective_start", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode provider reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) CountByProvider(ctx context.Context, providerID string, from, to *time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildProviderFilter(providerID, from, to)

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count provider reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) buildProviderFilter(providerID string, from, to *time.Time) bson.M {
	filter := bson.M{
		"provider_id": providerID,
	}

	if from != nil || to != nil {
		timeFilters := bson.M{}
		if from != nil && to != nil {
			timeFilters = bson.M{
				"effective_start": bson.M{"$lt": *to},
				"effective_end":   bson.M{"$gt": *from},
			}
		} else if from != nil {
			timeFilters = bson.M{
				"effective_end": bson.M{"$gt": *from},
			}
		} else if to != nil {
			timeFilters = bson.M{
				"effective_start": bson.M{"$lt": *to},
			}
		}

		filter["$and"] = []bson.M{timeFilters}
	}

	return filter
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
