package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/model"
	sqlrepo "readaloud/internal/model/sql"
	"readaloud/internal/tts"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *sqlrepo.GormRepository {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.MigrateSchema(db))
	return sqlrepo.NewGormRepository(db)
}

// seedUser inserts a record with an explicit creation time so that
// oldest-first ordering is deterministic.
func seedUser(t *testing.T, repo model.Repository, email, provider string, verified bool, createdAt time.Time) *entity.DbUser {
	t.Helper()
	u := &entity.DbUser{
		Email:         email,
		Provider:      provider,
		EmailVerified: verified,
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

// failingLookupRepo fails every email lookup.
type failingLookupRepo struct {
	model.Repository
	err error
}

func (r failingLookupRepo) FindUsersByEmail(context.Context, string) ([]entity.DbUser, error) {
	return nil, r.err
}

// fakeEngine counts vendor calls and optionally blocks until released.
type fakeEngine struct {
	id      string
	calls   atomic.Int32
	err     error
	invalid error
	result  *tts.Result
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (e *fakeEngine) ID() string { return e.id }

func (e *fakeEngine) Validate(tts.Request) error { return e.invalid }

func (e *fakeEngine) Synthesize(ctx context.Context, request tts.Request) (*tts.Result, error) {
	e.calls.Add(1)
	if e.entered != nil {
		e.once.Do(func() { close(e.entered) })
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &tts.Result{Audio: []byte("mp3:" + request.Text), ContentType: "audio/mpeg"}, nil
}
