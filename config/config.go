package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"civicsync/media"
	"civicsync/store"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is read from the environment once at startup.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	StorageDriver string
	SQLitePath    string
	RedisAddress  string
	RedisPassword string
	MongoURI      string
	MongoDatabase string
	IssuesKey     string
	SessionKey    string

	Media media.Config

	SessionSecret    string
	IssueCreateLimit int
	IssueLimitPrefix string
	CORSAllowOrigins []string
}

// Load reads the configuration from environment variables, applying
// defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		Env:           getenv("GO_ENV", "development"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", DriverSQLite)),
		SQLitePath:    getenv("SQLITE_PATH", "civicsync.db"),
		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getenv("MONGODB_DATABASE", "civicsync"),
		IssuesKey:     getenv("ISSUES_KEY", store.DefaultIssuesKey),
		SessionKey:    getenv("SESSION_KEY", store.DefaultSessionKey),
		Media: media.Config{
			BaseURL:      getenv("MEDIA_BASE_URL", media.DefaultBaseURL),
			CloudName:    os.Getenv("MEDIA_CLOUD_NAME"),
			UploadPreset: os.Getenv("MEDIA_UPLOAD_PRESET"),
		},
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		IssueLimitPrefix: getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		CORSAllowOrigins: splitList(getenv("CORS_ORIGINS", "*")),
	}

	limit, err := strconv.Atoi(getenv("ISSUE_CREATE_LIMIT", "20"))
	if err != nil || limit < 1 {
		return Config{}, fmt.Errorf("ISSUE_CREATE_LIMIT must be a positive integer, got %q", os.Getenv("ISSUE_CREATE_LIMIT"))
	}
	cfg.IssueCreateLimit = limit

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// Production reports whether GO_ENV is production.
func (c Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
