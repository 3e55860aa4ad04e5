package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"readaloud/internal/entity"
	"readaloud/internal/quota"
	"readaloud/internal/service"
	"readaloud/internal/tts"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SynthesizeSpeech 按引擎合成语音，受每日播放次数限制
func (h *HTTPHandler) SynthesizeSpeech(c *gin.Context) {
	h.synthesize(c, c.Param("engine"), h.cfg.DailyPlayLimit)
}

// LegacySynthesizeSpeech 旧版接口固定使用 azure 与较低的上限
func (h *HTTPHandler) LegacySynthesizeSpeech(c *gin.Context) {
	h.synthesize(c, tts.EngineAzure, h.cfg.LegacyDailyPlayLimit)
}

func (h *HTTPHandler) synthesize(c *gin.Context, engine string, limit int) {
	user := CurrentUser(c)
	if user == nil || strings.TrimSpace(user.Email) == "" {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.TTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		MissingField(c, "text")
		return
	}
	if strings.TrimSpace(req.Voice) == "" {
		MissingField(c, "voice")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := h.speech.Synthesize(ctx, service.SpeechRequest{
		Email:  user.Email,
		Engine: engine,
		Limit:  limit,
		Request: tts.Request{
			Text:  req.Text,
			Voice: strings.TrimSpace(req.Voice),
			SSML:  req.SSML,
			Speed: req.Speed,
		},
	})
	if err != nil {
		h.writeSpeechError(c, user, engine, err)
		return
	}

	setRateLimitHeaders(c, result.Decision)
	c.JSON(http.StatusOK, entity.TTSResponse{
		URL:       result.URL,
		Remaining: result.Decision.Remaining,
		Limit:     result.Decision.Limit,
	})
}

func (h *HTTPHandler) writeSpeechError(c *gin.Context, user *RequestUser, engine string, err error) {
	logger := logrus.WithFields(logrus.Fields{"email": user.Email, "engine": engine})

	var exceeded *service.QuotaExceededError
	var vendorErr *tts.VendorError
	switch {
	case errors.As(err, &exceeded):
		setRateLimitHeaders(c, exceeded.Decision)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":      ErrCodeQuotaExceeded,
			"error":     "daily play limit reached",
			"message":   quotaExceededMessage(c.GetHeader("Accept-Language"), exceeded.Decision.Limit),
			"remaining": 0,
			"limit":     exceeded.Decision.Limit,
		})
	case errors.Is(err, tts.ErrUnknownEngine):
		NotFound(c, ErrCodeEngineNotFound, "unknown tts engine")
	case errors.Is(err, tts.ErrEngineNotConfigured):
		ServiceUnavailable(c, "tts engine is not configured")
	case errors.Is(err, service.ErrSessionDesync):
		logger.Warn("tts_session_desync")
		NotFound(c, ErrCodeSessionDesync, "session user not found")
	case errors.Is(err, tts.ErrInvalidRequest):
		BadRequest(c, ErrCodeInvalidRequest, err.Error())
	case errors.As(err, &vendorErr):
		logger.WithError(err).WithField("vendor_status", vendorErr.Status).Error("tts_vendor_failed")
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeTTSFailed, "speech synthesis failed")
	default:
		logger.WithError(err).Error("tts_failed")
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeTTSFailed, "speech synthesis failed")
	}
}

func setRateLimitHeaders(c *gin.Context, decision quota.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

// RemainingPlays 返回今日剩余播放次数，无会话时返回 0
func (h *HTTPHandler) RemainingPlays(c *gin.Context) {
	limit := h.cfg.DailyPlayLimit
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, entity.RemainingPlaysResponse{RemainingPlays: 0, Limit: limit})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	decision, err := h.speech.Remaining(ctx, user.Email, limit)
	if err != nil {
		logrus.WithError(err).WithField("email", user.Email).Warn("remaining_plays_failed")
		c.JSON(http.StatusOK, entity.RemainingPlaysResponse{RemainingPlays: 0, Limit: limit})
		return
	}
	c.JSON(http.StatusOK, entity.RemainingPlaysResponse{RemainingPlays: decision.Remaining, Limit: limit})
}
