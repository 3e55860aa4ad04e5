package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"readaloud/internal/auth"
	"readaloud/internal/entity"
	"readaloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute

	signInErrorNoEmail     = "NoEmail"
	signInErrorDatabase    = "DatabaseError"
	signInErrorOAuthFailed = "OAuthFailed"
)

// GitHubLogin 跳转到 GitHub 授权页
func (h *HTTPHandler) GitHubLogin(c *gin.Context) {
	if h.github == nil || !h.github.Configured() {
		ServiceUnavailable(c, "github sign-in is not configured")
		return
	}
	state := uuid.NewString()
	http.SetCookie(c.Writer, auth.StateCookie(oauthStateCookie, state, oauthStateTTL, h.cfg.IsProduction()))
	c.Redirect(http.StatusFound, h.github.AuthURL(state))
}

// GitHubCallback 完成授权码交换并建立会话
func (h *HTTPHandler) GitHubCallback(c *gin.Context) {
	logger := logrus.WithField("provider", entity.ProviderGitHub)

	state, err := c.Cookie(oauthStateCookie)
	http.SetCookie(c.Writer, auth.ClearedCookie(oauthStateCookie, h.cfg.IsProduction()))
	if err != nil || state == "" || state != c.Query("state") {
		logger.Warn("oauth_state_mismatch")
		h.redirectSignInError(c, signInErrorOAuthFailed)
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		h.redirectSignInError(c, signInErrorOAuthFailed)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	accessToken, err := h.github.ExchangeCode(ctx, code)
	if err != nil {
		logger.WithError(err).Warn("oauth_exchange_failed")
		h.redirectSignInError(c, signInErrorOAuthFailed)
		return
	}
	profile, err := h.github.GetUserProfile(ctx, accessToken)
	if err != nil {
		logger.WithError(err).Warn("oauth_profile_failed")
		h.redirectSignInError(c, signInErrorOAuthFailed)
		return
	}

	identity := &service.Identity{
		ID:        "github:" + profile.ProviderID,
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
		Provider:  entity.ProviderGitHub,
	}
	resp, err := h.sessions.SignIn(ctx, identity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoEmail):
			h.redirectSignInError(c, signInErrorNoEmail)
		case errors.Is(err, service.ErrDatabase):
			h.redirectSignInError(c, signInErrorDatabase)
		default:
			logger.WithError(err).Error("oauth_sign_in_failed")
			h.redirectSignInError(c, signInErrorOAuthFailed)
		}
		return
	}

	h.setSessionCookie(c, resp)
	logger.WithField("user_id", resp.User.ID).Info("oauth_sign_in")
	c.Redirect(http.StatusFound, h.frontendURL("/"))
}

func (h *HTTPHandler) redirectSignInError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.frontendURL("/auth/error?error="+url.QueryEscape(reason)))
}

func (h *HTTPHandler) frontendURL(path string) string {
	return strings.TrimRight(strings.TrimSpace(h.cfg.FrontendURL), "/") + path
}
