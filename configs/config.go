package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cast"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Facebook struct {
	AppID     string
	AppSecret string
	GraphURL  string
}

type Instagram struct {
	ClientID     string
	ClientSecret string
	GraphURL     string
}

type X struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
}

// Scheduler holds the publishing and reconciliation policy.
type Scheduler struct {
	MaxRetries         int
	RetryBackoff       time.Duration
	PublishCron        string
	SyncCron           string
	TokenRefreshCron   string
	SyncWindowDays     int
	SyncBatchLimit     int
	SyncPacing         time.Duration
	PublishConcurrency int
	PlatformTimeout    time.Duration
}

type Config struct {
	Facebook    Facebook
	Instagram   Instagram
	X           X
	PostgresURI string
	RedisURI    string
	Port        string
	R2          R2
	SecretKey   string
	CookieName  string
	Scheduler   Scheduler
}

func LoadConfig() *Config {
	return &Config{
		Facebook: Facebook{
			AppID:     getEnv("FACEBOOK_APP_ID", ""),
			AppSecret: getEnv("FACEBOOK_APP_SECRET", ""),
			GraphURL:  getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v21.0"),
		},
		Instagram: Instagram{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			GraphURL:     getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com/v21.0"),
		},
		X: X{
			ClientID:     getEnv("X_CLIENT_ID", ""),
			ClientSecret: getEnv("X_CLIENT_SECRET", ""),
			APIURL:       getEnv("X_API_URL", "https://api.x.com"),
			TokenURL:     getEnv("X_TOKEN_URL", "https://api.x.com/2/oauth2/token"),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		Port:        getEnv("PORT", "3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postcast_token"),
		Scheduler: Scheduler{
			MaxRetries:         getEnvInt("MAX_RETRIES", 3),
			RetryBackoff:       getEnvDuration("RETRY_BACKOFF", 5*time.Minute),
			PublishCron:        getEnv("PUBLISH_CRON", "@every 1m"),
			SyncCron:           getEnv("SYNC_CRON", "@every 1h"),
			TokenRefreshCron:   getEnv("TOKEN_REFRESH_CRON", "@every 10m"),
			SyncWindowDays:     getEnvInt("SYNC_WINDOW_DAYS", 7),
			SyncBatchLimit:     getEnvInt("SYNC_BATCH_LIMIT", 50),
			SyncPacing:         getEnvDuration("SYNC_PACING", 150*time.Millisecond),
			PublishConcurrency: getEnvInt("PUBLISH_CONCURRENCY", 5),
			PlatformTimeout:    getEnvDuration("PLATFORM_TIMEOUT", 20*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := cast.ToIntE(value)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration reads a Go duration string such as "5m" or "150ms". A bare
// number has no unit and is rejected.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if _, err := cast.ToFloat64E(value); err == nil {
		slog.Warn("duration in environment has no unit, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	d, err := cast.ToDurationE(value)
	if err != nil || d < 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return d
}
