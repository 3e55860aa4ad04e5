package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const cronSecretHeader = "X-Cron-Secret"

type cleanupRequest struct {
	Email string `json:"email"`
}

type cleanupDetails struct {
	*service.CleanupReport
	CurrentSession *entity.SessionUser `json:"currentSession"`
}

// CleanupUsers 删除被已验证账号覆盖的未验证密码账号
func (h *HTTPHandler) CleanupUsers(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		MissingField(c, "email")
		return
	}

	user := CurrentUser(c)
	if !h.mayCleanup(c, user, email) {
		Forbidden(c, "not allowed to clean up this email")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	report, err := h.cleanup.Cleanup(ctx, email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Error("cleanup_failed")
		InternalError(c, "failed to clean up users")
		return
	}

	details := cleanupDetails{CleanupReport: report}
	if user != nil {
		session := user.SessionUser()
		details.CurrentSession = &session
	}

	message := "no cleanup needed"
	if report.Action == service.CleanupActionDeletedUnverified {
		message = fmt.Sprintf("deleted %d unverified duplicate account(s)", len(report.DeletedUsers))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"details": details,
	})
}

// mayCleanup 允许定时任务密钥、本人会话或管理员执行清理
func (h *HTTPHandler) mayCleanup(c *gin.Context, user *RequestUser, email string) bool {
	if secret := h.cfg.CleanupCronSecret; secret != "" {
		provided := c.GetHeader(cronSecretHeader)
		if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1 {
			return true
		}
	}
	if user == nil {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(user.Email), email) {
		return true
	}
	return h.isFreshAdmin(c, user)
}
