package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readaloud/internal/entity"
	"readaloud/internal/model"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoEmail aborts a sign-in whose profile carries no email address.
	ErrNoEmail = errors.New("sign-in profile has no email")
	// ErrDatabase aborts a sign-in whose identity lookup failed.
	ErrDatabase = errors.New("identity lookup failed")
)

// Identity is the in-flight result of an external authentication. After
// Reconcile returns, ID holds the canonical record id.
type Identity struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Provider  string
	Role      string
}

// SessionUser projects the identity for token issuance.
func (i *Identity) SessionUser() entity.SessionUser {
	return entity.SessionUser{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		AvatarURL: i.AvatarURL,
		Role:      i.Role,
		Provider:  i.Provider,
	}
}

// Reconciler maps a sign-in event onto exactly one identity record.
type Reconciler struct {
	repo model.Repository
}

func NewReconciler(repo model.Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// Reconcile finds or creates the canonical record for identity.Email.
// Lookup failures abort with ErrDatabase; create and update failures are
// logged and the sign-in continues.
func (r *Reconciler) Reconcile(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return ErrNoEmail
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return ErrNoEmail
	}
	identity.Email = email

	logger := logrus.WithFields(logrus.Fields{
		"email":    email,
		"provider": identity.Provider,
	})

	users, err := r.repo.FindUsersByEmail(ctx, email)
	if err != nil {
		logger.WithError(err).Error("reconcile_lookup_failed")
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	existing := pickCanonical(users)
	if existing == nil {
		user := &entity.DbUser{
			Email:         email,
			Name:          identity.Name,
			AvatarURL:     identity.AvatarURL,
			Provider:      identity.Provider,
			EmailVerified: identity.Provider == entity.ProviderGitHub,
			Role:          entity.UserRoleUser,
		}
		if err := r.repo.CreateUser(ctx, user); err != nil {
			logger.WithError(err).Warn("reconcile_create_failed")
			return nil
		}
		identity.ID = user.ID
		identity.Role = user.Role
		logger.WithField("user_id", user.ID).Info("reconcile_created")
		return nil
	}

	identity.ID = existing.ID
	identity.Role = existing.Role

	var updates entity.UserUpdates
	if name := strings.TrimSpace(identity.Name); name != "" && name != existing.Name {
		updates.Name = &name
	}
	if avatar := strings.TrimSpace(identity.AvatarURL); avatar != "" && avatar != existing.AvatarURL {
		updates.AvatarURL = &avatar
	}
	if updates.IsEmpty() {
		return nil
	}
	if err := r.repo.UpdateUser(ctx, existing.ID, updates); err != nil {
		logger.WithError(err).WithField("user_id", existing.ID).Warn("reconcile_update_failed")
		return nil
	}
	logger.WithField("user_id", existing.ID).Info("reconcile_updated")
	return nil
}

// FindCanonicalUser resolves the record a session email refers to.
func FindCanonicalUser(ctx context.Context, repo model.Repository, email string) (*entity.DbUser, error) {
	users, err := repo.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return pickCanonical(users), nil
}

// pickCanonical prefers the oldest verified record, else the oldest one.
// users must be ordered oldest first.
func pickCanonical(users []entity.DbUser) *entity.DbUser {
	if len(users) == 0 {
		return nil
	}
	for i := range users {
		if users[i].IsVerified() {
			return &users[i]
		}
	}
	return &users[0]
}
