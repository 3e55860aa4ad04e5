package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	QuotaPolicyIncrementThenCheck = "increment_then_check"
	QuotaPolicyCheckThenIncrement = "check_then_increment"

	AudioCacheNone    = "none"
	AudioCacheMemory  = "memory"
	AudioCacheStorage = "storage"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"readaloud"`
	DBPath     string `env:"DBPath" envDefault:"datas/readaloud.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/audio"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"readaloud"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`
	SessionCookieName    string `env:"SESSION_COOKIE_NAME" envDefault:"session_token"`
	OTPTTLMinutes        int    `env:"OTP_TTL_MINUTES" envDefault:"15"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/github/callback"`

	// 语音合成服务商
	AzureSpeechKey      string `env:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion   string `env:"AZURE_SPEECH_REGION" envDefault:"eastus"`
	AzureSpeechEndpoint string `env:"AZURE_SPEECH_ENDPOINT"`
	TTSMakerToken       string `env:"TTSMAKER_TOKEN"`
	TTSMakerEndpoint    string `env:"TTSMAKER_ENDPOINT"`

	DailyPlayLimit       int    `env:"DAILY_PLAY_LIMIT" envDefault:"20"`
	LegacyDailyPlayLimit int    `env:"LEGACY_DAILY_PLAY_LIMIT" envDefault:"10"`
	QuotaPolicy          string `env:"QUOTA_POLICY" envDefault:"increment_then_check"`

	AudioCache           string `env:"AUDIO_CACHE" envDefault:"memory"`
	AudioCacheMaxEntries int    `env:"AUDIO_CACHE_MAX_ENTRIES" envDefault:"2000"`

	CleanupCronSecret string `env:"CLEANUP_CRON_SECRET"`
}

// IsProduction reports whether cookies should be marked secure.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func ParseConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	if err := Conf.validate(); err != nil {
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}

func (c Config) validate() error {
	switch c.QuotaPolicy {
	case QuotaPolicyIncrementThenCheck, QuotaPolicyCheckThenIncrement:
	default:
		return errors.New("QUOTA_POLICY must be increment_then_check or check_then_increment")
	}
	switch c.AudioCache {
	case AudioCacheNone, AudioCacheMemory, AudioCacheStorage:
	default:
		return errors.New("AUDIO_CACHE must be none, memory or storage")
	}
	if c.DailyPlayLimit <= 0 || c.LegacyDailyPlayLimit <= 0 {
		return errors.New("daily play limits must be positive")
	}
	return nil
}
