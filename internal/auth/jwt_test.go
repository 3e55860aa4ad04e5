package auth

import (
	"strings"
	"testing"
	"time"

	"readaloud/internal/entity"
)

func TestNewManagerAndTokenLifecycle(t *testing.T) {
	mgr, err := NewManager("test-secret", "issuer", time.Minute*30)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	user := entity.SessionUser{
		ID:        "0b7c2c1e-8f2e-4a4b-9a59-5d7d6f1f2a10",
		Email:     "user@example.com",
		Name:      "User",
		AvatarURL: "https://avatars.example.com/u.png",
		Role:      entity.UserRoleAdmin,
		Provider:  entity.ProviderGitHub,
	}
	token, expiresAt, err := mgr.GenerateToken(user)
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected future expiry time")
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if !strings.EqualFold(claims.Email, user.Email) {
		t.Fatalf("expected email %s, got %s", user.Email, claims.Email)
	}
	if claims.Role != user.Role {
		t.Fatalf("expected role %s, got %s", user.Role, claims.Role)
	}
	if got := claims.SessionUser(); got != user {
		t.Fatalf("expected session user %+v, got %+v", user, got)
	}
}

func TestGenerateTokenDefaultsRole(t *testing.T) {
	mgr, _ := NewManager("test-secret", "", time.Hour)
	token, _, err := mgr.GenerateToken(entity.SessionUser{ID: "u1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Role != entity.UserRoleUser {
		t.Fatalf("expected default role user, got %q", claims.Role)
	}
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	mgr, _ := NewManager("test-secret", "issuer", time.Minute)
	mgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := mgr.GenerateToken(entity.SessionUser{ID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mgr.now = time.Now
	if _, err := mgr.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	other, _ := NewManager("other-secret", "issuer", time.Minute)
	foreign, _, _ := other.GenerateToken(entity.SessionUser{ID: "u1"})
	if _, err := mgr.ParseToken(foreign); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("   ", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateTokenRequiresID(t *testing.T) {
	mgr, _ := NewManager("s", "", time.Hour)
	if _, _, err := mgr.GenerateToken(entity.SessionUser{Email: "x@y.z"}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
