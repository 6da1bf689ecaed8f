package app

import (
	"time"

	"github.com/klhlearn/peerlearn-backend/internal/platform/envutil"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

type Config struct {
	JWTSecretKey string

	// Upload limits.
	MaxUploadBytes int64

	// Object storage backend: "local" or "gcs".
	StorageMode string
	MediaDir    string

	// Optional collaborators; empty means disabled.
	GeminiEnabled bool
	SpeechEnabled bool
	RedisEnabled  bool

	// Job worker tuning.
	WorkerConcurrency int
	PollInterval      time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	StaleRunning      time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		JWTSecretKey:      envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		MaxUploadBytes:    envutil.Int64("MAX_UPLOAD_BYTES", 500*1024*1024),
		StorageMode:       envutil.Str("MEDIA_STORAGE_MODE", "local"),
		MediaDir:          envutil.Str("MEDIA_DIR", "./media"),
		GeminiEnabled:     envutil.Str("GEMINI_API_KEY", "") != "",
		SpeechEnabled:     envutil.Str("GOOGLE_APPLICATION_CREDENTIALS", "") != "",
		RedisEnabled:      envutil.Str("REDIS_ADDR", "") != "",
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 2),
		PollInterval:      time.Duration(envutil.Int("WORKER_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		MaxAttempts:       envutil.Int("JOB_MAX_ATTEMPTS", 5),
		RetryDelay:        time.Duration(envutil.Int("JOB_RETRY_DELAY_SECONDS", 30)) * time.Second,
		StaleRunning:      time.Duration(envutil.Int("JOB_STALE_RUNNING_SECONDS", 600)) * time.Second,
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg
}
