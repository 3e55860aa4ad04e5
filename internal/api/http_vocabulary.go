package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/errs"
	"readaloud/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (h *HTTPHandler) ListVocabulary(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var query entity.VocabularyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	query.UserID = user.ID

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	items, meta, err := h.vocabulary.List(ctx, &query)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("vocabulary_list_failed")
		InternalError(c, "failed to load vocabulary")
		return
	}
	if items == nil {
		items = []entity.DbVocabulary{}
	}
	c.JSON(http.StatusOK, entity.VocabularyListResponse{Items: items, Meta: meta})
}

func (h *HTTPHandler) CreateVocabulary(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.VocabularyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	item, err := h.vocabulary.Add(ctx, user.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWordRequired):
			MissingField(c, "word")
		case errors.Is(err, errs.ErrAlreadyExists):
			Conflict(c, ErrCodeWordExists, "word already in vocabulary")
		default:
			logrus.WithError(err).WithField("user_id", user.ID).Error("vocabulary_create_failed")
			InternalError(c, "failed to save word")
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *HTTPHandler) DeleteVocabulary(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		MissingField(c, "id")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.vocabulary.Delete(ctx, id, user.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			NotFound(c, ErrCodeVocabularyNotFound, "word not found")
			return
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("vocabulary_delete_failed")
		InternalError(c, "failed to delete word")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
