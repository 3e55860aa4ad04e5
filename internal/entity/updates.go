package entity

import "time"

// UserUpdates 用户更新字段
type UserUpdates struct {
	Name          *string
	AvatarURL     *string
	EmailVerified *bool
	Role          *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.AvatarURL != nil {
		updates["avatar_url"] = *u.AvatarURL
	}
	if u.EmailVerified != nil {
		updates["email_verified"] = *u.EmailVerified
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// CredentialUpdates 凭证更新字段
type CredentialUpdates struct {
	PasswordHash *string
	Verified     *bool
	OTPHash      *string
	OTPPurpose   *string
	OTPExpiresAt *time.Time
	ClearOTP     bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u CredentialUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.Verified != nil {
		updates["verified"] = *u.Verified
	}
	if u.OTPHash != nil {
		updates["otp_hash"] = *u.OTPHash
	}
	if u.OTPPurpose != nil {
		updates["otp_purpose"] = *u.OTPPurpose
	}
	if u.OTPExpiresAt != nil {
		updates["otp_expires_at"] = *u.OTPExpiresAt
	}
	if u.ClearOTP {
		updates["otp_hash"] = ""
		updates["otp_purpose"] = ""
		updates["otp_expires_at"] = nil
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u CredentialUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
