package repository

import (
	"context"
	"time"

	"trimline/pkg/config"
	apperrors "trimline/pkg/errors"
	"trimline/pkg/lock"
	"trimline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Provider_locks"

	lockPollInterval = 25 * time.Millisecond
)

// mongoLockManager implements lock.Manager on a collection of one-document
// advisory locks. Acquisition is an insert against the unique _id; a
// duplicate key means another instance holds the provider. The TTL bounds
// how long a crashed holder can wedge a provider; config validation keeps
// it above the request budget so a live critical section is never reaped.
// The collection also carries a TTL index on expires_at as a backstop.
type mongoLockManager struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewMongoLockManager(cfg *config.Config) lock.Manager {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockManager{
		collection: db.Collection(LockCollectionName),
		ttl:        cfg.LockTTL,
	}
}

func (m *mongoLockManager) WithProviderLock(ctx context.Context, providerID string, timeout time.Duration, fn func(ctx context.Context) error) error {
	lockID := "provider_lock_" + providerID
	deadline := time.Now().Add(timeout)

	for {
		acquired, err := m.tryAcquire(ctx, lockID)
		if err != nil {
			return apperrors.StorageContention("failed to acquire provider lock", err)
		}
		if acquired {
			break
		}

		if time.Now().After(deadline) {
			return apperrors.LockTimeout(providerID)
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	defer func() {
		// Release on a fresh context: the critical section may have
		// consumed the caller's deadline.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = m.collection.DeleteOne(releaseCtx, bson.M{"_id": lockID})
	}()

	return fn(ctx)
}

func (m *mongoLockManager) tryAcquire(ctx context.Context, lockID string) (bool, error) {
	now := time.Now()
	doc := &model.ProviderLock{
		ID:        lockID,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}

	_, err := m.collection.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, err
	}

	// Lock held. Reap it if the holder's TTL elapsed so a crash does not
	// block the provider until the TTL monitor runs.
	_, err = m.collection.DeleteOne(ctx, bson.M{
		"_id":        lockID,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return false, err
	}

	return false, nil
}
