package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"readaloud/internal/auth"
	"readaloud/internal/entity"
	"readaloud/internal/errs"
	"readaloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *HTTPHandler) setSessionCookie(c *gin.Context, resp *entity.AuthResponse) {
	http.SetCookie(c.Writer, auth.SessionCookie(h.cfg.SessionCookieName, resp.Token, resp.ExpiresAt, h.cfg.IsProduction()))
}

func (h *HTTPHandler) Register(c *gin.Context) {
	var req entity.CredentialRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.credentials.Register(ctx, req); err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyExists):
			Conflict(c, ErrCodeEmailExists, "email already registered")
		case errors.Is(err, auth.ErrPasswordTooShort):
			BadRequest(c, ErrCodeInvalidRequest, err.Error())
		default:
			logrus.WithError(err).Error("credentials_register_failed")
			InternalError(c, "failed to register")
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "verification code sent"})
}

func (h *HTTPHandler) VerifyEmail(c *gin.Context) {
	var req entity.CredentialVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.credentials.Verify(ctx, req); err != nil {
		if errors.Is(err, errs.ErrInvalidCode) {
			BadRequest(c, ErrCodeInvalidCode, "invalid or expired code")
			return
		}
		logrus.WithError(err).Error("credentials_verify_failed")
		InternalError(c, "failed to verify email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req entity.CredentialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.credentials.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid email or password")
		case errors.Is(err, service.ErrEmailNotVerified):
			ErrorResponse(c, http.StatusForbidden, ErrCodeEmailNotVerified, "email is not verified")
		default:
			logrus.WithError(err).Error("credentials_login_failed")
			InternalError(c, "failed to sign in")
		}
		return
	}

	h.setSessionCookie(c, resp)
	c.JSON(http.StatusOK, resp)
}

// RequestPasswordReset 总是返回成功，避免暴露邮箱是否注册
func (h *HTTPHandler) RequestPasswordReset(c *gin.Context) {
	var req entity.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.credentials.RequestPasswordReset(ctx, req.Email); err != nil {
		logrus.WithError(err).Error("password_reset_request_failed")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) ConfirmPasswordReset(c *gin.Context) {
	var req entity.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.credentials.ConfirmPasswordReset(ctx, req); err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidCode):
			BadRequest(c, ErrCodeInvalidCode, "invalid or expired code")
		case errors.Is(err, auth.ErrPasswordTooShort):
			BadRequest(c, ErrCodeInvalidRequest, err.Error())
		default:
			logrus.WithError(err).Error("password_reset_confirm_failed")
			InternalError(c, "failed to reset password")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session 返回当前会话；没有会话时返回空对象
func (h *HTTPHandler) Session(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, entity.SessionResponse{User: user.SessionUser(), ExpiresAt: user.ExpiresAt})
}

// RefreshSession 重新读取角色，角色变化时签发新令牌
func (h *HTTPHandler) RefreshSession(c *gin.Context) {
	claims, ok := h.ResolveSession(c)
	if !ok {
		Unauthorized(c, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp, reissued, err := h.sessions.Refresh(ctx, claims)
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("session_refresh_failed")
		InternalError(c, "failed to refresh session")
		return
	}
	if reissued {
		h.setSessionCookie(c, resp)
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      resp.User,
		"expires":   resp.ExpiresAt,
		"refreshed": reissued,
		"token":     resp.Token,
	})
}

func (h *HTTPHandler) SignOut(c *gin.Context) {
	http.SetCookie(c.Writer, auth.ClearedCookie(h.cfg.SessionCookieName, h.cfg.IsProduction()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
