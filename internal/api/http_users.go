package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type userRoleUpdateRequest struct {
	Role string `json:"role"`
}

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query entity.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	if query.PageSize > 100 {
		query.PageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	users, meta, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		logrus.WithError(err).Error("admin_list_users_failed")
		InternalError(c, "failed to load users")
		return
	}

	response := entity.UserListResponse{
		Users: make([]entity.UserSummary, 0, len(users)),
		Meta:  meta,
	}
	for idx := range users {
		response.Users = append(response.Users, *entity.MakeUserSummary(&users[idx]))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateUserRole 修改用户角色，新角色在对方下一次刷新会话或访问管理区时生效
func (h *HTTPHandler) UpdateUserRole(c *gin.Context) {
	requestUser := CurrentUser(c)
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		MissingField(c, "id")
		return
	}

	var req userRoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	role := sanitizeRole(req.Role)
	if role == "" {
		BadRequest(c, ErrCodeInvalidRequest, "invalid role")
		return
	}
	if requestUser != nil && requestUser.ID == id && role != entity.UserRoleAdmin {
		Forbidden(c, "cannot demote yourself")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.repo.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			NotFound(c, ErrCodeNotFound, "user not found")
			return
		}
		logrus.WithError(err).WithField("user_id", id).Error("admin_load_user_failed")
		InternalError(c, "failed to update user")
		return
	}

	if err := h.repo.UpdateUser(ctx, id, entity.UserUpdates{Role: &role}); err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("admin_update_role_failed")
		InternalError(c, "failed to update user")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("admin_load_user_failed")
		InternalError(c, "failed to update user")
		return
	}
	c.JSON(http.StatusOK, entity.MakeUserSummary(updated))
}

func sanitizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case entity.UserRoleAdmin:
		return entity.UserRoleAdmin
	case entity.UserRoleUser:
		return entity.UserRoleUser
	default:
		return ""
	}
}
