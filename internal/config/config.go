// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret  = "posterboard-dev-secret-change-in-production"
	defaultTeamSecret = "posterboard-dev-team-secret"

	DeletePolicyOpen = "open"
	DeletePolicyTeam = "team"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBDriver     string `mapstructure:"DB_DRIVER"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	DBMaxOpen    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdle    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBAutoSchema bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	BlobDriver    string `mapstructure:"BLOB_DRIVER"`
	BlobEndpoint  string `mapstructure:"BLOB_ENDPOINT"`
	BlobAccessKey string `mapstructure:"BLOB_ACCESS_KEY"`
	BlobSecretKey string `mapstructure:"BLOB_SECRET_KEY"`
	BlobBucket    string `mapstructure:"BLOB_BUCKET"`
	BlobUseSSL    bool   `mapstructure:"BLOB_USE_SSL"`
	BlobPublicURL string `mapstructure:"BLOB_PUBLIC_URL"`
	MaxPosterMB   int    `mapstructure:"MAX_POSTER_MB"`

	// TeamSecret is either the plain shared secret or its bcrypt hash.
	TeamSecret   string        `mapstructure:"TEAM_SECRET"`
	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	TeamTokenTTL time.Duration `mapstructure:"TEAM_TOKEN_TTL"`

	PostCooldown  time.Duration `mapstructure:"POST_COOLDOWN"`
	DeletePolicy  string        `mapstructure:"DELETE_POLICY"`
	ClientTimeout time.Duration `mapstructure:"CLIENT_TIMEOUT"`

	PosterJanitorSchedule string `mapstructure:"POSTER_JANITOR_SCHEDULE"`

	OTELEnabled  bool   `mapstructure:"OTEL_ENABLED"`
	OTELExporter string `mapstructure:"OTEL_EXPORTER"`
	OTELEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) || env != "test" {
				return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
			}
		} else {
			slog.Info("Loaded profile-specific configuration", "file", "config."+env+".yml")
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "reply_counts=on,poster_thumbnails=on")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "posterboard")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "posterboard.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("BLOB_DRIVER", "minio")
	viper.SetDefault("BLOB_ENDPOINT", "localhost:9000")
	viper.SetDefault("BLOB_ACCESS_KEY", "minioadmin")
	viper.SetDefault("BLOB_SECRET_KEY", "minioadmin")
	viper.SetDefault("BLOB_BUCKET", "posters")
	viper.SetDefault("BLOB_USE_SSL", false)
	viper.SetDefault("BLOB_PUBLIC_URL", "")
	viper.SetDefault("MAX_POSTER_MB", 20)

	viper.SetDefault("TEAM_SECRET", defaultTeamSecret)
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("TEAM_TOKEN_TTL", "12h")

	viper.SetDefault("POST_COOLDOWN", "10s")
	viper.SetDefault("DELETE_POLICY", DeletePolicyOpen)
	viper.SetDefault("CLIENT_TIMEOUT", "15s")
	viper.SetDefault("POSTER_JANITOR_SCHEDULE", "@every 1h")

	viper.SetDefault("OTEL_ENABLED", false)
	viper.SetDefault("OTEL_EXPORTER", "stdout")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DeletePolicy = strings.ToLower(strings.TrimSpace(c.DeletePolicy))
	c.BlobDriver = strings.ToLower(strings.TrimSpace(c.BlobDriver))
}

// IsProduction reports whether the app runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// PublicBlobBase is the base URL poster links are built from.
func (c *Config) PublicBlobBase() string {
	if c.BlobPublicURL != "" {
		return strings.TrimRight(c.BlobPublicURL, "/")
	}
	scheme := "http"
	if c.BlobUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, c.BlobEndpoint, c.BlobBucket)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TeamSecret == "" {
		return errors.New("TEAM_SECRET is required")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.DeletePolicy {
	case DeletePolicyOpen, DeletePolicyTeam:
	default:
		return fmt.Errorf("DELETE_POLICY must be %q or %q, got %q", DeletePolicyOpen, DeletePolicyTeam, c.DeletePolicy)
	}
	if c.PostCooldown < 0 {
		return errors.New("POST_COOLDOWN must not be negative")
	}
	switch c.BlobDriver {
	case "minio", "memory":
	default:
		return fmt.Errorf("BLOB_DRIVER must be minio or memory, got %q", c.BlobDriver)
	}
	if c.BlobBucket == "" {
		return errors.New("BLOB_BUCKET is required")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
		}
		if c.TeamSecret == defaultTeamSecret {
			return errors.New("TEAM_SECRET must be changed from the default value in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.BlobDriver == "memory" {
			return errors.New("BLOB_DRIVER=memory loses posters on restart and is not allowed in production")
		}
		if c.AllowedOrigins == "*" {
			slog.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		slog.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
