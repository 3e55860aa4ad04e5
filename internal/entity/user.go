package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"

	ProviderGitHub      = "github"
	ProviderCredentials = "credentials"
)

// DbUser represents a persisted identity record.
//
// Email is indexed, not unique: the same address may exist once per provider
// until CleanupService removes the unverified side.
type DbUser struct {
	ID            string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Email         string    `gorm:"column:email;type:varchar(255);index;not null" json:"email"`
	Name          string    `gorm:"column:name;type:varchar(255)" json:"name"`
	AvatarURL     string    `gorm:"column:avatar_url;type:varchar(1024)" json:"avatar_url"`
	Provider      string    `gorm:"column:provider;type:varchar(32);not null" json:"provider"`
	EmailVerified bool      `gorm:"column:email_verified;not null;default:false" json:"email_verified"`
	Role          string    `gorm:"column:role;type:varchar(50);index;not null" json:"role"`
}

// TableName overrides default pluralised name.
func (DbUser) TableName() string {
	return "users"
}

// BeforeCreate assigns the store-generated identifier.
func (u *DbUser) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	if strings.TrimSpace(u.Role) == "" {
		u.Role = UserRoleUser
	}
	return nil
}

// IsVerified reports whether the record counts as the verified side of a
// duplicate pair.
func (u *DbUser) IsVerified() bool {
	if u == nil {
		return false
	}
	return u.Provider == ProviderGitHub || u.EmailVerified
}

// IsUnverifiedCredentials reports whether the record is an unconfirmed
// password sign-up.
func (u *DbUser) IsUnverifiedCredentials() bool {
	if u == nil {
		return false
	}
	return u.Provider == ProviderCredentials && !u.EmailVerified
}

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatarUrl"`
	Provider      string    `json:"provider"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MakeUserSummary projects a record for API responses.
func MakeUserSummary(user *DbUser) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		AvatarURL:     user.AvatarURL,
		Provider:      user.Provider,
		EmailVerified: user.EmailVerified,
		Role:          user.Role,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// UserQuery supports listing users with pagination.
type UserQuery struct {
	BaseParams
	Role    string `json:"role" form:"role" query:"role"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

type UserListResponse struct {
	Users []UserSummary `json:"users"`
	Meta  *Meta         `json:"meta"`
}

// SessionUser is the projection of a session exposed to clients.
type SessionUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
	Provider  string `json:"provider"`
}

type SessionResponse struct {
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}
