package service

import (
	"context"

	"readaloud/internal/auth"
	"readaloud/internal/entity"
	"readaloud/internal/model"

	"github.com/sirupsen/logrus"
)

// SessionService issues and refreshes session tokens.
type SessionService struct {
	repo       model.Repository
	manager    *auth.Manager
	reconciler *Reconciler
}

func NewSessionService(repo model.Repository, manager *auth.Manager, reconciler *Reconciler) *SessionService {
	return &SessionService{repo: repo, manager: manager, reconciler: reconciler}
}

// Manager exposes the token manager for request-time verification.
func (s *SessionService) Manager() *auth.Manager {
	return s.manager
}

// SignIn reconciles identity and issues a session for the canonical record.
// If the record could not be written the externally supplied ID is used.
func (s *SessionService) SignIn(ctx context.Context, identity *Identity) (*entity.AuthResponse, error) {
	if err := s.reconciler.Reconcile(ctx, identity); err != nil {
		return nil, err
	}
	if identity.ID == "" {
		return nil, ErrDatabase
	}
	return s.Issue(ctx, identity.SessionUser())
}

// Issue signs a token for user after re-reading the role. When the read
// fails the role already carried by user is kept, defaulting to user.
func (s *SessionService) Issue(ctx context.Context, user entity.SessionUser) (*entity.AuthResponse, error) {
	user.Role = s.currentRole(ctx, user.ID, user.Role)
	token, expiresAt, err := s.manager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &entity.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Refresh re-reads the role behind claims and re-issues the token when the
// role changed. The returned bool reports whether a new token was issued.
func (s *SessionService) Refresh(ctx context.Context, claims *auth.Claims) (*entity.AuthResponse, bool, error) {
	user := claims.SessionUser()
	role := s.currentRole(ctx, user.ID, user.Role)
	if role == user.Role {
		return &entity.AuthResponse{ExpiresAt: claims.ExpiresAtTime(), User: user}, false, nil
	}
	user.Role = role
	token, expiresAt, err := s.manager.GenerateToken(user)
	if err != nil {
		return nil, false, err
	}
	return &entity.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, true, nil
}

// FreshRole reads the role from the store without any fallback.
func (s *SessionService) FreshRole(ctx context.Context, userID string) (string, error) {
	return s.repo.GetUserRole(ctx, userID)
}

// currentRole 读取最新角色，失败时沿用令牌中的角色，否则退回 user
func (s *SessionService) currentRole(ctx context.Context, userID, known string) string {
	role, err := s.repo.GetUserRole(ctx, userID)
	if err == nil && role != "" {
		return role
	}
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("session_role_fetch_failed")
	}
	if known != "" {
		return known
	}
	return entity.UserRoleUser
}
