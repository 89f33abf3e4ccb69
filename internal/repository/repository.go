package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the raw song table the training pipeline fits on.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
