package entity

import "time"

// DbCredential is the password provider's own account row. It is separate from
// DbUser: a credential exists from sign-up on, while the identity record is
// only created on the first completed sign-in.
type DbCredential struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Email        string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"column:name;type:varchar(255)" json:"name"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Verified     bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	OTPHash      string     `gorm:"column:otp_hash;type:varchar(255)" json:"-"`
	OTPPurpose   string     `gorm:"column:otp_purpose;type:varchar(32)" json:"-"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at" json:"-"`
}

func (DbCredential) TableName() string {
	return "credentials"
}

const (
	OTPPurposeSignup = "signup"
	OTPPurposeReset  = "reset"
)

type CredentialRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

type CredentialLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CredentialVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}
