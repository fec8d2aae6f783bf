// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Feed policy values.
const (
	FollowingFallbackPublic = "public"
	FollowingFallbackEmpty  = "empty"

	InvalidCursorReset  = "reset"
	InvalidCursorReject = "reject"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	defaultJWTSecret = "your-secret-key-change-in-production"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	FeedDefaultLimit    int           `mapstructure:"FEED_DEFAULT_LIMIT"`
	FeedMaxLimit        int           `mapstructure:"FEED_MAX_LIMIT"`
	FollowingFallback   string        `mapstructure:"FEED_FOLLOWING_FALLBACK"`
	InvalidCursorPolicy string        `mapstructure:"FEED_INVALID_CURSOR_POLICY"`
	FeedCountCacheTTL   time.Duration `mapstructure:"FEED_COUNT_CACHE_TTL"`

	CacheBackend string `mapstructure:"CACHE_BACKEND"`
	CacheSize    int    `mapstructure:"CACHE_SIZE"`

	SchedulerMaxConcurrency int `mapstructure:"SCHEDULER_MAX_CONCURRENCY"`

	ToggleMaxAttempts  int           `mapstructure:"TOGGLE_MAX_ATTEMPTS"`
	ToggleBaseDelay    time.Duration `mapstructure:"TOGGLE_BASE_DELAY"`
	ToggleScopeTimeout time.Duration `mapstructure:"TOGGLE_SCOPE_TIMEOUT"`

	MediaDir         string `mapstructure:"MEDIA_DIR"`
	MediaBaseURL     string `mapstructure:"MEDIA_BASE_URL"`
	MediaMaxUploadMB int    `mapstructure:"MEDIA_MAX_UPLOAD_MB"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base config file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "inkfeed")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("FEED_DEFAULT_LIMIT", 20)
	v.SetDefault("FEED_MAX_LIMIT", 50)
	v.SetDefault("FEED_FOLLOWING_FALLBACK", FollowingFallbackPublic)
	v.SetDefault("FEED_INVALID_CURSOR_POLICY", InvalidCursorReset)
	v.SetDefault("FEED_COUNT_CACHE_TTL", "30s")

	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("CACHE_SIZE", 1024)

	v.SetDefault("SCHEDULER_MAX_CONCURRENCY", 8)

	v.SetDefault("TOGGLE_MAX_ATTEMPTS", 3)
	v.SetDefault("TOGGLE_BASE_DELAY", "50ms")
	v.SetDefault("TOGGLE_SCOPE_TIMEOUT", "10s")

	v.SetDefault("MEDIA_DIR", "/tmp/inkfeed/media")
	v.SetDefault("MEDIA_BASE_URL", "/media")
	v.SetDefault("MEDIA_MAX_UPLOAD_MB", 10)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.FeedDefaultLimit < 1 || c.FeedMaxLimit < c.FeedDefaultLimit {
		return fmt.Errorf("FEED_DEFAULT_LIMIT must be in [1, FEED_MAX_LIMIT], got %d/%d", c.FeedDefaultLimit, c.FeedMaxLimit)
	}
	switch c.FollowingFallback {
	case FollowingFallbackPublic, FollowingFallbackEmpty:
	default:
		return fmt.Errorf("FEED_FOLLOWING_FALLBACK must be %q or %q", FollowingFallbackPublic, FollowingFallbackEmpty)
	}
	switch c.InvalidCursorPolicy {
	case InvalidCursorReset, InvalidCursorReject:
	default:
		return fmt.Errorf("FEED_INVALID_CURSOR_POLICY must be %q or %q", InvalidCursorReset, InvalidCursorReject)
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q", CacheBackendMemory, CacheBackendRedis)
	}
	if c.SchedulerMaxConcurrency < 1 {
		return errors.New("SCHEDULER_MAX_CONCURRENCY must be at least 1")
	}
	if c.ToggleMaxAttempts < 1 {
		return errors.New("TOGGLE_MAX_ATTEMPTS must be at least 1")
	}
	if c.ToggleScopeTimeout <= 0 {
		return errors.New("TOGGLE_SCOPE_TIMEOUT must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
