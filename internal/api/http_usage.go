package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"readaloud/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ListUsage 返回按天统计的播放次数；管理员可通过 user_id 查看其他用户
func (h *HTTPHandler) ListUsage(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var params entity.UsageQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 30
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	params.UserID = requestUser.ID
	if userFilter := strings.TrimSpace(c.Query("user_id")); userFilter != "" && userFilter != requestUser.ID {
		if !h.isFreshAdmin(c, requestUser) {
			Forbidden(c, "admin privileges required")
			return
		}
		params.UserID = userFilter
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, meta, err := h.repo.ListUsage(ctx, &params)
	if err != nil {
		logrus.WithError(err).WithField("user_id", params.UserID).Error("usage_list_failed")
		InternalError(c, "failed to load usage")
		return
	}
	if records == nil {
		records = []entity.DbUsageCounter{}
	}
	c.JSON(http.StatusOK, entity.UsageListResponse{Records: records, Meta: meta})
}
