package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"readaloud/internal/auth"
	"readaloud/internal/entity"
	"readaloud/internal/errs"
	"readaloud/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrEmailNotVerified is returned when a password login precedes verification.
var ErrEmailNotVerified = errors.New("email is not verified")

// Notifier delivers one-time codes to the user.
type Notifier interface {
	SendCode(ctx context.Context, email, purpose, code string) error
}

// LogNotifier writes codes to the log. Mail delivery is handled outside
// this service.
type LogNotifier struct {
	Reveal bool
}

func (n LogNotifier) SendCode(_ context.Context, email, purpose, code string) error {
	shown := "******"
	if n.Reveal {
		shown = code
	}
	logrus.WithFields(logrus.Fields{
		"email":   email,
		"purpose": purpose,
		"code":    shown,
	}).Info("otp_issued")
	return nil
}

// CredentialService implements the email and password provider.
type CredentialService struct {
	repo     model.Repository
	sessions *SessionService
	notifier Notifier
	otpTTL   time.Duration
	now      func() time.Time
}

func NewCredentialService(repo model.Repository, sessions *SessionService, notifier Notifier, otpTTL time.Duration) *CredentialService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if otpTTL <= 0 {
		otpTTL = 15 * time.Minute
	}
	return &CredentialService{repo: repo, sessions: sessions, notifier: notifier, otpTTL: otpTTL, now: time.Now}
}

// Register stores an unverified credential plus an unverified identity
// record and sends a sign-up code. Registering again before verification
// replaces the password and sends a fresh code.
func (s *CredentialService) Register(ctx context.Context, req entity.CredentialRegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	code, codeHash, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.otpTTL)
	purpose := entity.OTPPurposeSignup

	existing, err := s.repo.GetCredentialByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return errs.ErrAlreadyExists
	case err == nil:
		if err := s.repo.UpdateCredential(ctx, existing.ID, entity.CredentialUpdates{
			PasswordHash: &passwordHash,
			OTPHash:      &codeHash,
			OTPPurpose:   &purpose,
			OTPExpiresAt: &expiresAt,
		}); err != nil {
			return err
		}
	case errors.Is(err, errs.ErrNotFound):
		credential := &entity.DbCredential{
			Email:        email,
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: passwordHash,
			OTPHash:      codeHash,
			OTPPurpose:   purpose,
			OTPExpiresAt: &expiresAt,
		}
		if err := s.repo.CreateCredential(ctx, credential); err != nil {
			return err
		}
	default:
		return err
	}

	if err := s.ensureCredentialsRecord(ctx, email, strings.TrimSpace(req.Name)); err != nil {
		return err
	}
	return s.notifier.SendCode(ctx, email, purpose, code)
}

// ensureCredentialsRecord creates the unverified credentials identity
// record unless one already exists for the email.
func (s *CredentialService) ensureCredentialsRecord(ctx context.Context, email, name string) error {
	users, err := s.repo.FindUsersByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Provider == entity.ProviderCredentials {
			return nil
		}
	}
	return s.repo.CreateUser(ctx, &entity.DbUser{
		Email:    email,
		Name:     name,
		Provider: entity.ProviderCredentials,
		Role:     entity.UserRoleUser,
	})
}

// Verify confirms a sign-up code and marks the matching records verified.
func (s *CredentialService) Verify(ctx context.Context, req entity.CredentialVerifyRequest) error {
	credential, err := s.checkCode(ctx, req.Email, req.Code, entity.OTPPurposeSignup)
	if err != nil {
		return err
	}
	verified := true
	if err := s.repo.UpdateCredential(ctx, credential.ID, entity.CredentialUpdates{Verified: &verified, ClearOTP: true}); err != nil {
		return err
	}
	if _, err := s.repo.MarkEmailVerified(ctx, credential.Email, entity.ProviderCredentials); err != nil {
		return err
	}
	return nil
}

// Login checks the password and opens a session for the canonical record.
func (s *CredentialService) Login(ctx context.Context, req entity.CredentialLoginRequest) (*entity.AuthResponse, error) {
	credential, err := s.repo.GetCredentialByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if err := auth.VerifyPassword(credential.PasswordHash, req.Password); err != nil {
		return nil, errs.ErrUnauthorized
	}
	if !credential.Verified {
		return nil, ErrEmailNotVerified
	}

	identity := &Identity{
		ID:       "credentials:" + strconv.FormatUint(uint64(credential.ID), 10),
		Email:    credential.Email,
		Name:     credential.Name,
		Provider: entity.ProviderCredentials,
	}
	return s.sessions.SignIn(ctx, identity)
}

// RequestPasswordReset sends a reset code when the email has a credential.
// Unknown emails are not reported to the caller.
func (s *CredentialService) RequestPasswordReset(ctx context.Context, email string) error {
	credential, err := s.repo.GetCredentialByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	code, codeHash, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	purpose := entity.OTPPurposeReset
	expiresAt := s.now().Add(s.otpTTL)
	if err := s.repo.UpdateCredential(ctx, credential.ID, entity.CredentialUpdates{
		OTPHash:      &codeHash,
		OTPPurpose:   &purpose,
		OTPExpiresAt: &expiresAt,
	}); err != nil {
		return err
	}
	return s.notifier.SendCode(ctx, credential.Email, purpose, code)
}

// ConfirmPasswordReset sets a new password when the reset code matches.
func (s *CredentialService) ConfirmPasswordReset(ctx context.Context, req entity.PasswordResetConfirmRequest) error {
	credential, err := s.checkCode(ctx, req.Email, req.Code, entity.OTPPurposeReset)
	if err != nil {
		return err
	}
	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateCredential(ctx, credential.ID, entity.CredentialUpdates{PasswordHash: &passwordHash, ClearOTP: true})
}

func (s *CredentialService) checkCode(ctx context.Context, email, code, purpose string) (*entity.DbCredential, error) {
	credential, err := s.repo.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidCode
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if credential.OTPPurpose != purpose || credential.OTPExpiresAt == nil || s.now().After(*credential.OTPExpiresAt) {
		return nil, errs.ErrInvalidCode
	}
	if !auth.VerifyOTP(credential.OTPHash, code) {
		return nil, errs.ErrInvalidCode
	}
	return credential, nil
}
