// Package postgres implements the repositories on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"errors"

	"hiring-entitlements/internal/common/database"
	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type Store struct {
	client *database.PostgresClient
	logger logger.Logger
}

func NewStore(client *database.PostgresClient, log logger.Logger) *Store {
	return &Store{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// mapError turns driver errors into StandardErrors. Errors that already are
// StandardErrors pass through.
func mapError(op string, err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return err
	}
	if database.IsCanceled(err) {
		return apperrors.NewQueryTimeoutError(op)
	}
	return apperrors.NewDatabaseError(op, err)
}
