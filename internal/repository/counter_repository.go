package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository returns a Postgres-backed counter store.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

// Increment relies on the row lock taken by the upsert: concurrent callers
// on the same key queue behind each other and each sees a distinct value.
func (r *counterRepository) Increment(ctx context.Context, key string, start int64) (int64, error) {
	const query = `
        INSERT INTO ticket_counter (k, v) VALUES ($1, $2 + 1)
        ON CONFLICT (k) DO UPDATE SET v = ticket_counter.v + 1
        RETURNING v`
	var next int64
	if err := r.pool.QueryRow(ctx, query, key, start).Scan(&next); err != nil {
		return 0, apperrors.NewStorageUnavailable(err)
	}
	return next, nil
}
