package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readaloud/internal/model"
	"readaloud/internal/quota"
	"readaloud/internal/tts"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// vendorCallTimeout bounds a shared vendor call that no longer follows any
// single caller's context.
const vendorCallTimeout = 45 * time.Second

// ErrSessionDesync means a valid session names an email with no record.
var ErrSessionDesync = errors.New("session user has no identity record")

// QuotaExceededError is returned when the daily ceiling rejects a play.
type QuotaExceededError struct {
	Decision quota.Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily play limit of %d reached", e.Decision.Limit)
}

// SpeechRequest is one synthesis call on behalf of a session.
type SpeechRequest struct {
	Email  string
	Engine string
	Limit  int
	tts.Request
}

// SpeechResult is what the client receives on success.
type SpeechResult struct {
	URL      string
	Cached   bool
	Decision quota.Decision
}

// SpeechService charges the daily quota and forwards to a vendor.
type SpeechService struct {
	repo    model.Repository
	limiter *quota.Limiter
	engines *tts.Registry
	cache   AudioCache
	group   singleflight.Group
}

func NewSpeechService(repo model.Repository, limiter *quota.Limiter, engines *tts.Registry, cache AudioCache) *SpeechService {
	if cache == nil {
		cache = noopAudioCache{}
	}
	return &SpeechService{repo: repo, limiter: limiter, engines: engines, cache: cache}
}

// Synthesize resolves and validates against the engine, resolves the user,
// consumes one play, then returns cached audio or calls the vendor. A consumed
// play is never refunded.
func (s *SpeechService) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	engine, err := s.engines.Get(req.Engine)
	if err != nil {
		return nil, err
	}

	request := req.Request
	request.Speed = tts.NormalizeSpeed(request.Speed)
	// 无效输入不计入配额
	if err := engine.Validate(request); err != nil {
		return nil, err
	}

	user, err := FindCanonicalUser(ctx, s.repo, req.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionDesync
	}

	decision, err := s.limiter.Consume(ctx, user.ID, req.Limit)
	if err != nil {
		return nil, err
	}
	logger := logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"engine":  engine.ID(),
		"count":   decision.Count,
		"limit":   decision.Limit,
	})
	if !decision.Allowed {
		logger.Info("tts_quota_exceeded")
		return nil, &QuotaExceededError{Decision: decision}
	}

	key := AudioCacheKey(engine.ID(), request)

	if url, ok := s.cache.Get(ctx, key); ok {
		logger.Debug("tts_cache_hit")
		return &SpeechResult{URL: url, Cached: true, Decision: decision}, nil
	}

	// 相同内容的并发请求只调用一次供应商；共享调用不随任一调用方取消
	flight := s.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), vendorCallTimeout)
		defer cancel()
		result, err := engine.Synthesize(callCtx, request)
		if err != nil {
			return nil, err
		}
		return s.cache.Put(callCtx, key, result)
	})

	select {
	case <-ctx.Done():
		logger.WithError(ctx.Err()).Info("tts_caller_gone")
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("tts_singleflight_shared")
		}
		return &SpeechResult{URL: res.Val.(string), Decision: decision}, nil
	}
}

// Remaining reports the plays left today for the session email. An unknown
// user yields zero remaining.
func (s *SpeechService) Remaining(ctx context.Context, email string, limit int) (quota.Decision, error) {
	if strings.TrimSpace(email) == "" {
		return quota.Decision{Limit: limit}, nil
	}
	user, err := FindCanonicalUser(ctx, s.repo, email)
	if err != nil {
		return quota.Decision{Limit: limit}, err
	}
	if user == nil {
		return quota.Decision{Limit: limit}, nil
	}
	return s.limiter.Peek(ctx, user.ID, limit)
}
