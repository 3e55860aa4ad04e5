package sql

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *GormRepository {
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

	require.NoError(t, db.AutoMigrate(
		&entity.DbUser{},
		&entity.DbCredential{},
		&entity.DbUsageCounter{},
		&entity.DbVocabulary{},
	))
	return NewGormRepository(db)
}

func TestUsers_CreateFindUpdateDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u := &entity.DbUser{Email: " Alice@Example.com ", Name: "Alice", Provider: entity.ProviderGitHub, EmailVerified: true}
	require.NoError(t, r.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, entity.UserRoleUser, u.Role)

	found, err := r.FindUsersByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)

	name := "Alice B"
	require.NoError(t, r.UpdateUser(ctx, u.ID, entity.UserUpdates{Name: &name}))
	got, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice B", got.Name)

	role, err := r.GetUserRole(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, entity.UserRoleUser, role)

	require.NoError(t, r.DeleteUser(ctx, u.ID))
	_, err = r.GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, r.DeleteUser(ctx, u.ID), errs.ErrNotFound)
}

func TestUsers_FindUsersByEmail_OldestFirst(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first := &entity.DbUser{Email: "dup@example.com", Provider: entity.ProviderCredentials, CreatedAt: time.Now().Add(-time.Hour)}
	second := &entity.DbUser{Email: "dup@example.com", Provider: entity.ProviderGitHub, EmailVerified: true}
	require.NoError(t, r.CreateUser(ctx, first))
	require.NoError(t, r.CreateUser(ctx, second))

	found, err := r.FindUsersByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, first.ID, found[0].ID)
	require.Equal(t, second.ID, found[1].ID)
}

func TestUsers_MarkEmailVerified(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	cred := &entity.DbUser{Email: "c@example.com", Provider: entity.ProviderCredentials}
	gh := &entity.DbUser{Email: "c@example.com", Provider: entity.ProviderGitHub, EmailVerified: true}
	require.NoError(t, r.CreateUser(ctx, cred))
	require.NoError(t, r.CreateUser(ctx, gh))

	n, err := r.MarkEmailVerified(ctx, "c@example.com", entity.ProviderCredentials)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := r.GetUserByID(ctx, cred.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestUsers_ListUsers(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, email := range []string{"a@x.io", "b@x.io", "c@y.io"} {
		require.NoError(t, r.CreateUser(ctx, &entity.DbUser{Email: email, Provider: entity.ProviderGitHub}))
	}

	users, meta, err := r.ListUsers(ctx, &entity.UserQuery{Keyword: "x.io", BaseParams: entity.BaseParams{Page: 1, PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.EqualValues(t, 2, meta.Total)
	require.EqualValues(t, 1, meta.PageSize)
}

func TestCredentials_UniqueAndUpdate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	c := &entity.DbCredential{Email: "p@example.com", PasswordHash: "h"}
	require.NoError(t, r.CreateCredential(ctx, c))
	require.ErrorIs(t, r.CreateCredential(ctx, &entity.DbCredential{Email: "P@example.com", PasswordHash: "h2"}), errs.ErrAlreadyExists)

	otp := "otp-hash"
	purpose := entity.OTPPurposeSignup
	exp := time.Now().Add(time.Minute)
	require.NoError(t, r.UpdateCredential(ctx, c.ID, entity.CredentialUpdates{OTPHash: &otp, OTPPurpose: &purpose, OTPExpiresAt: &exp}))

	got, err := r.GetCredentialByEmail(ctx, "p@example.com")
	require.NoError(t, err)
	require.Equal(t, "otp-hash", got.OTPHash)
	require.NotNil(t, got.OTPExpiresAt)

	verified := true
	require.NoError(t, r.UpdateCredential(ctx, c.ID, entity.CredentialUpdates{Verified: &verified, ClearOTP: true}))
	got, err = r.GetCredentialByEmail(ctx, "p@example.com")
	require.NoError(t, err)
	require.True(t, got.Verified)
	require.Empty(t, got.OTPHash)
	require.Nil(t, got.OTPExpiresAt)

	_, err = r.GetCredentialByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUsage_IncrementPlayCount(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	n, err := r.GetPlayCount(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	for want := 1; want <= 3; want++ {
		n, err = r.IncrementPlayCount(ctx, "u1", "2025-03-01")
		require.NoError(t, err)
		require.Equal(t, want, n)
	}

	// a new day starts from zero, the old row stays
	n, err = r.IncrementPlayCount(ctx, "u1", "2025-03-02")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = r.GetPlayCount(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	records, meta, err := r.ListUsage(ctx, &entity.UsageQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), meta.Total)
	require.Equal(t, "2025-03-02", records[0].UsageDate)
	require.Equal(t, 3, records[1].PlayCount)
}

func TestUsage_IncrementPlayCountWithin(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		n, ok, err := r.IncrementPlayCountWithin(ctx, "u1", "2025-03-01", 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, n)
	}
	n, ok, err := r.IncrementPlayCountWithin(ctx, "u1", "2025-03-01", 2)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, n)
}

func TestUsage_ConcurrentIncrements(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	const workers = 30
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts []int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := r.IncrementPlayCount(ctx, "u1", "2025-03-01")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			counts = append(counts, n)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(counts)
	require.Len(t, counts, workers)
	for i, n := range counts {
		require.Equal(t, i+1, n)
	}

	const ceiling = 10
	accepted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := r.IncrementPlayCountWithin(ctx, "u2", "2025-03-01", ceiling)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, ceiling, accepted)
}

func TestVocabulary_UniqueListDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := &entity.DbVocabulary{UserID: "u1", Word: "serendipity", MeaningChinese: "意外发现"}
	require.NoError(t, r.CreateVocabulary(ctx, item))
	require.NotEmpty(t, item.ID)

	err := r.CreateVocabulary(ctx, &entity.DbVocabulary{UserID: "u1", Word: "serendipity"})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	// another user may save the same word
	require.NoError(t, r.CreateVocabulary(ctx, &entity.DbVocabulary{UserID: "u2", Word: "serendipity"}))

	items, meta, err := r.ListVocabulary(ctx, &entity.VocabularyQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 1, meta.Total)

	require.ErrorIs(t, r.DeleteVocabulary(ctx, item.ID, "u2"), errs.ErrNotFound)
	require.NoError(t, r.DeleteVocabulary(ctx, item.ID, "u1"))
	require.ErrorIs(t, r.DeleteVocabulary(ctx, item.ID, "u1"), errs.ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	require.False(t, isUniqueViolation(nil))
	require.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}
