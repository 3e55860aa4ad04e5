package quota

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a Counter backed by the increment_play_count stored functions, so
// each increment is one round trip executed atomically by Postgres.
type PG struct {
	pool pgxQuerier
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed counter.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// NewPGWithQuerier wraps any pgx querier, e.g. a pgxmock pool in tests.
func NewPGWithQuerier(q pgxQuerier) *PG {
	return &PG{pool: q}
}

func (c *PG) IncrementPlayCount(ctx context.Context, userID, day string) (int, error) {
	const q = `SELECT increment_play_count($1, $2)`
	var count int
	if err := c.pool.QueryRow(ctx, q, userID, day).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *PG) IncrementPlayCountWithin(ctx context.Context, userID, day string, ceiling int) (int, bool, error) {
	const q = `SELECT new_count, was_accepted FROM increment_play_count_within($1, $2, $3)`
	var (
		count    int
		accepted bool
	)
	if err := c.pool.QueryRow(ctx, q, userID, day, ceiling).Scan(&count, &accepted); err != nil {
		return 0, false, err
	}
	return count, accepted, nil
}

func (c *PG) GetPlayCount(ctx context.Context, userID, day string) (int, error) {
	const q = `SELECT play_count FROM user_usage WHERE user_id=$1 AND usage_date=$2`
	var count int
	err := c.pool.QueryRow(ctx, q, userID, day).Scan(&count)
	switch {
	case err == nil:
		return count, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, nil
	default:
		return 0, err
	}
}
