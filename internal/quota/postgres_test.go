package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockCounter(t *testing.T) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPGWithQuerier(mock), mock
}

func TestPG_IncrementPlayCount(t *testing.T) {
	c, mock := newMockCounter(t)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT increment_play_count\(\$1, \$2\)`).
		WithArgs("u1", "2025-03-01").
		WillReturnRows(pgxmock.NewRows([]string{"increment_play_count"}).AddRow(6))
	n, err := c.IncrementPlayCount(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 6, n)

	mock.ExpectQuery(`SELECT increment_play_count\(\$1, \$2\)`).
		WithArgs("u1", "2025-03-01").
		WillReturnError(errors.New("boom"))
	_, err = c.IncrementPlayCount(ctx, "u1", "2025-03-01")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_IncrementPlayCountWithin(t *testing.T) {
	c, mock := newMockCounter(t)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT new_count, was_accepted FROM increment_play_count_within\(\$1, \$2, \$3\)`).
		WithArgs("u1", "2025-03-01", 20).
		WillReturnRows(pgxmock.NewRows([]string{"new_count", "was_accepted"}).AddRow(20, false))
	n, ok, err := c.IncrementPlayCountWithin(ctx, "u1", "2025-03-01", 20)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 20, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_GetPlayCount(t *testing.T) {
	c, mock := newMockCounter(t)
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT play_count FROM user_usage WHERE user_id=\$1 AND usage_date=\$2`).
		WithArgs("u1", "2025-03-01").
		WillReturnRows(pgxmock.NewRows([]string{"play_count"}).AddRow(3))
	n, err := c.GetPlayCount(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	mock.ExpectQuery(`SELECT play_count FROM user_usage WHERE user_id=\$1 AND usage_date=\$2`).
		WithArgs("u2", "2025-03-01").
		WillReturnError(pgx.ErrNoRows)
	n, err = c.GetPlayCount(ctx, "u2", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, mock.ExpectationsWereMet())
}
