package service

import (
	"context"
	"testing"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/errs"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	codes map[string]string
}

func (n *recordingNotifier) SendCode(_ context.Context, email, purpose, code string) error {
	if n.codes == nil {
		n.codes = make(map[string]string)
	}
	n.codes[purpose+":"+email] = code
	return nil
}

func newCredentialService(t *testing.T) (*CredentialService, *recordingNotifier) {
	t.Helper()
	repo := newTestRepo(t)
	notifier := &recordingNotifier{}
	return NewCredentialService(repo, newSessionService(t, repo), notifier, time.Minute), notifier
}

func TestCredentials_RegisterVerifyLogin(t *testing.T) {
	svc, notifier := newCredentialService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, entity.CredentialRegisterRequest{Email: "New@Example.com", Password: "correct-horse", Name: "New"}))
	code := notifier.codes["signup:new@example.com"]
	require.Len(t, code, 6)

	_, err := svc.Login(ctx, entity.CredentialLoginRequest{Email: "new@example.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrEmailNotVerified)

	require.ErrorIs(t, svc.Verify(ctx, entity.CredentialVerifyRequest{Email: "new@example.com", Code: "000000x"}), errs.ErrInvalidCode)
	require.NoError(t, svc.Verify(ctx, entity.CredentialVerifyRequest{Email: "new@example.com", Code: code}))
	// 验证码只能使用一次
	require.ErrorIs(t, svc.Verify(ctx, entity.CredentialVerifyRequest{Email: "new@example.com", Code: code}), errs.ErrInvalidCode)

	_, err = svc.Login(ctx, entity.CredentialLoginRequest{Email: "new@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	resp, err := svc.Login(ctx, entity.CredentialLoginRequest{Email: "new@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, entity.ProviderCredentials, resp.User.Provider)

	users, err := svc.repo.FindUsersByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].EmailVerified)
	require.Equal(t, users[0].ID, resp.User.ID)

	require.ErrorIs(t, svc.Register(ctx, entity.CredentialRegisterRequest{Email: "new@example.com", Password: "another-pass"}), errs.ErrAlreadyExists)
}

func TestCredentials_ExpiredCode(t *testing.T) {
	svc, notifier := newCredentialService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, entity.CredentialRegisterRequest{Email: "late@example.com", Password: "password1"}))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	err := svc.Verify(ctx, entity.CredentialVerifyRequest{Email: "late@example.com", Code: notifier.codes["signup:late@example.com"]})
	require.ErrorIs(t, err, errs.ErrInvalidCode)
}

func TestCredentials_RegisterAlongsideGitHubCreatesShadowRecord(t *testing.T) {
	svc, _ := newCredentialService(t)
	ctx := context.Background()
	github := seedUser(t, svc.repo, "both@example.com", entity.ProviderGitHub, true, time.Now().Add(-time.Hour))

	require.NoError(t, svc.Register(ctx, entity.CredentialRegisterRequest{Email: "both@example.com", Password: "password1"}))
	users, err := svc.repo.FindUsersByEmail(ctx, "both@example.com")
	require.NoError(t, err)
	require.Len(t, users, 2)

	report, err := NewCleanupService(svc.repo).Cleanup(ctx, "both@example.com")
	require.NoError(t, err)
	require.Equal(t, CleanupActionDeletedUnverified, report.Action)
	require.Equal(t, github.ID, report.VerifiedUser.ID)
}

func TestCredentials_PasswordReset(t *testing.T) {
	svc, notifier := newCredentialService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, entity.CredentialRegisterRequest{Email: "r@example.com", Password: "old-password"}))
	require.NoError(t, svc.Verify(ctx, entity.CredentialVerifyRequest{Email: "r@example.com", Code: notifier.codes["signup:r@example.com"]}))

	require.NoError(t, svc.RequestPasswordReset(ctx, "unknown@example.com"))
	require.NoError(t, svc.RequestPasswordReset(ctx, "r@example.com"))
	code := notifier.codes["reset:r@example.com"]
	require.NotEmpty(t, code)

	err := svc.ConfirmPasswordReset(ctx, entity.PasswordResetConfirmRequest{Email: "r@example.com", Code: notifier.codes["signup:r@example.com"], NewPassword: "new-password"})
	require.ErrorIs(t, err, errs.ErrInvalidCode)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, entity.PasswordResetConfirmRequest{Email: "r@example.com", Code: code, NewPassword: "new-password"}))

	_, err = svc.Login(ctx, entity.CredentialLoginRequest{Email: "r@example.com", Password: "old-password"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = svc.Login(ctx, entity.CredentialLoginRequest{Email: "r@example.com", Password: "new-password"})
	require.NoError(t, err)
}
