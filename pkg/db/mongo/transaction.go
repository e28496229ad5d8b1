package mongo

import (
	"context"
	"fmt"
	apperrors "trimline/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return apperrors.StorageContention("failed to start storage session", err)
	}
	defer session.EndSession(ctx)

	// The driver's WithTransaction retries transient errors itself, but
	// only within a 120s budget it controls. We disable nothing here; if it
	// still surfaces a transient label the caller's retry executor takes
	// over with the engine's own backoff policy.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if isTransient(err) {
			return apperrors.StorageContention("storage transaction aborted under contention", err)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// isTransient recognizes the server labels that mark a transaction as
// safely retryable (write conflicts, failovers mid-commit).
func isTransient(err error) bool {
	if cmdErr, ok := err.(mongo.CommandError); ok {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	if labeled, ok := err.(mongo.ServerError); ok {
		return labeled.HasErrorLabel("TransientTransactionError") ||
			labeled.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
