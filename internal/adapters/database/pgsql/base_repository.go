package pgsql

import (
	"context"
	"errors"
	"net/http"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Ping checks that the database answers.
func (r *BaseRepository) Ping(ctx context.Context) error {
	if r.Pool == nil {
		return apperrors.NewAppError(http.StatusServiceUnavailable, "database pool not configured", errors.New("nil pool"))
	}
	if err := r.Pool.Ping(ctx); err != nil {
		return apperrors.NewAppError(http.StatusServiceUnavailable, "database ping failed", err)
	}
	return nil
}
