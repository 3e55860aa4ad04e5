package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultBcryptCost = bcrypt.DefaultCost

	// MinPasswordLength 密码最小长度
	MinPasswordLength = 8
	otpDigits         = 6
)

// ErrPasswordTooShort 密码为空或长度不足
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// HashPassword 对明文密码进行哈希处理
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" || len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), defaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword 验证密码是否与存储的哈希值匹配
func VerifyPassword(hash, candidate string) error {
	if strings.TrimSpace(hash) == "" {
		return errors.New("stored password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
}

// GenerateOTP 生成 6 位数字验证码，返回明文与哈希
func GenerateOTP() (string, string, error) {
	upper := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%0*d", otpDigits, n.Int64())
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), defaultBcryptCost)
	if err != nil {
		return "", "", err
	}
	return code, string(hashed), nil
}

// VerifyOTP 校验验证码
func VerifyOTP(hash, code string) bool {
	code = strings.TrimSpace(code)
	if hash == "" || len(code) != otpDigits {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
