package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"readaloud/internal/auth"
	"readaloud/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的会话用户信息，全部来自令牌
type RequestUser struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Role      string
	Provider  string
	ExpiresAt time.Time
}

// SessionUser 转换为返回给客户端的会话结构
func (u *RequestUser) SessionUser() entity.SessionUser {
	if u == nil {
		return entity.SessionUser{}
	}
	return entity.SessionUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		Provider:  u.Provider,
	}
}

func requestUserFromClaims(claims *auth.Claims) *RequestUser {
	return &RequestUser{
		ID:        claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.AvatarURL,
		Role:      claims.Role,
		Provider:  claims.Provider,
		ExpiresAt: claims.ExpiresAtTime(),
	}
}

// ResolveSession 从 Bearer 头或会话 Cookie 中解析会话，这是唯一的会话入口
func (h *HTTPHandler) ResolveSession(c *gin.Context) (*auth.Claims, bool) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		if cookie, err := c.Cookie(h.cfg.SessionCookieName); err == nil {
			token = strings.TrimSpace(cookie)
		}
	}
	if token == "" {
		return nil, false
	}
	claims, err := h.sessions.Manager().ParseToken(token)
	if err != nil {
		logrus.WithError(err).Debug("session_token_rejected")
		return nil, false
	}
	return claims, true
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware 要求请求携带有效会话
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := h.ResolveSession(c)
		if !ok || strings.TrimSpace(claims.Email) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "authentication required",
			})
			return
		}
		c.Set(currentUserContextKey, requestUserFromClaims(claims))
		c.Next()
	}
}

// OptionalSession 有会话时写入上下文，没有时继续处理
func (h *HTTPHandler) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := h.ResolveSession(c); ok {
			c.Set(currentUserContextKey, requestUserFromClaims(claims))
		}
		c.Next()
	}
}

// RequireAdmin 管理员权限守卫中间件，角色以数据库为准
func (h *HTTPHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.isFreshAdmin(c, CurrentUser(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Code:    ErrCodeForbidden,
				Message: "admin privileges required",
			})
			return
		}
		c.Next()
	}
}

func (h *HTTPHandler) isFreshAdmin(c *gin.Context, user *RequestUser) bool {
	if user == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	role, err := h.sessions.FreshRole(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("admin_role_check_failed")
		return false
	}
	return role == entity.UserRoleAdmin
}

// CurrentUser 从上下文获取当前会话用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
