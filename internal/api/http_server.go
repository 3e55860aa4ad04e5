package api

import (
	"net/http"
	"time"

	"readaloud/internal/auth"
	"readaloud/internal/config"
	"readaloud/internal/model"
	"readaloud/internal/oauth"
	"readaloud/internal/quota"
	"readaloud/internal/service"
	"readaloud/internal/storage"
	"readaloud/internal/tts"

	"github.com/gin-gonic/gin"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg  config.Config
	repo model.Repository

	// 服务层
	sessions    *service.SessionService
	credentials *service.CredentialService
	speech      *service.SpeechService
	cleanup     *service.CleanupService
	vocabulary  *service.VocabularyService
	github      *oauth.GitHubProvider
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, limiter *quota.Limiter, engines *tts.Registry) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	sessions := service.NewSessionService(repo, authManager, service.NewReconciler(repo))
	notifier := service.LogNotifier{Reveal: !cfg.IsProduction()}
	otpTTL := time.Duration(cfg.OTPTTLMinutes) * time.Minute
	cache := service.NewAudioCache(cfg.AudioCache, cfg.AudioCacheMaxEntries, store, storage.NormalisePublicBase(cfg.StoragePublicBaseURL))

	return &HTTPHandler{
		cfg:         cfg,
		repo:        repo,
		sessions:    sessions,
		credentials: service.NewCredentialService(repo, sessions, notifier, otpTTL),
		speech:      service.NewSpeechService(repo, limiter, engines, cache),
		cleanup:     service.NewCleanupService(repo),
		vocabulary:  service.NewVocabularyService(repo),
		github:      oauth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL),
	}, nil
}

// RegisterRoutes 注册全部 API 路由
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/verify", h.VerifyEmail)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/password/reset", h.RequestPasswordReset)
	authGroup.POST("/password/confirm", h.ConfirmPasswordReset)
	authGroup.GET("/session", h.OptionalSession(), h.Session)
	authGroup.POST("/session/refresh", h.AuthMiddleware(), h.RefreshSession)
	authGroup.POST("/signout", h.SignOut)
	authGroup.GET("/github/login", h.GitHubLogin)
	authGroup.GET("/github/callback", h.GitHubCallback)

	apiGroup.GET("/get-remaining-plays", h.OptionalSession(), h.RemainingPlays)
	apiGroup.POST("/cleanup-users", h.OptionalSession(), h.CleanupUsers)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware())
	protected.POST("/tts", h.LegacySynthesizeSpeech)
	protected.POST("/tts/:engine", h.SynthesizeSpeech)
	protected.GET("/vocabulary", h.ListVocabulary)
	protected.POST("/vocabulary", h.CreateVocabulary)
	protected.DELETE("/vocabulary/:id", h.DeleteVocabulary)
	protected.GET("/usage", h.ListUsage)

	admin := protected.Group("/admin")
	admin.Use(h.RequireAdmin())
	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id", h.UpdateUserRole)
}
