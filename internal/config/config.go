package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"credlyse_backend/pkg/ratelimit"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Tracing     TracingConfig `mapstructure:"tracing"`
	Redis       RedisConfig
	AI          AIConfig
	Cache       CacheConfig       `mapstructure:"cache"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Batch       BatchConfig       `mapstructure:"batch"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Email       EmailConfig       `mapstructure:"email"`

	// Set from command-line flags, not the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port    string
	Mode    string
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"`
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string `mapstructure:"service_name"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
	// TranscriptTTL is how long transcripts live in the shared tier.
	TranscriptTTL time.Duration `mapstructure:"transcript_ttl"`
}

type AIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	TranscriptURL string        `mapstructure:"transcript_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryCount    int           `mapstructure:"retry_count"`
	QuestionCount int           `mapstructure:"question_count"`
}

type CacheConfig struct {
	Transcript CachePolicy `mapstructure:"transcript"`
	Quiz       CachePolicy `mapstructure:"quiz"`
}

type CachePolicy struct {
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Default         ratelimit.Policy `mapstructure:"default"`
	AI              ratelimit.Policy `mapstructure:"ai"`
	CleanupInterval time.Duration    `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration    `mapstructure:"max_age"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	// SweepSpec is a cron spec for re-running analysis on pending videos; empty disables it.
	SweepSpec string `mapstructure:"sweep_spec"`
}

type CertificateConfig struct {
	ArtifactPrefix string `mapstructure:"artifact_prefix"`
	VerifyBaseURL  string `mapstructure:"verify_base_url"`
}

type EmailConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address"`
	FromName       string `mapstructure:"from_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "credlyse.db")

	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("tracing.service_name", "credlyse-backend")

	v.SetDefault("redis.transcript_ttl", "24h")

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.retry_count", 3)
	v.SetDefault("ai.question_count", 5)

	v.SetDefault("cache.transcript.max_size", 1000)
	v.SetDefault("cache.transcript.ttl", "1h")
	v.SetDefault("cache.quiz.max_size", 500)
	v.SetDefault("cache.quiz.ttl", "4h")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("rate_limit.default.name", ratelimit.DefaultPolicy.Name)
	v.SetDefault("rate_limit.default.requests_per_minute", ratelimit.DefaultPolicy.RequestsPerMinute)
	v.SetDefault("rate_limit.default.burst", ratelimit.DefaultPolicy.Burst)
	v.SetDefault("rate_limit.ai.name", ratelimit.AIPolicy.Name)
	v.SetDefault("rate_limit.ai.requests_per_minute", ratelimit.AIPolicy.RequestsPerMinute)
	v.SetDefault("rate_limit.ai.burst", ratelimit.AIPolicy.Burst)
	v.SetDefault("rate_limit.cleanup_interval", "10m")
	v.SetDefault("rate_limit.max_age", "1h")

	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("batch.sweep_spec", "@every 30m")

	v.SetDefault("certificate.artifact_prefix", "certificates")

	v.SetDefault("email.from_address", "no-reply@credlyse.app")
	v.SetDefault("email.from_name", "Credlyse")
}

func bindEnv(v *viper.Viper) {
	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// AI
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")
	v.BindEnv("ai.transcript_url", "TRANSCRIPT_URL")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Email
	v.BindEnv("email.enabled", "EMAIL_ENABLED")
	v.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
}

// LoadConfig reads <path>/config.yaml, a .env file in the working directory
// and the environment. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CREDLYSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.RateLimit.Default.RequestsPerMinute <= 0 || c.RateLimit.AI.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests_per_minute must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	return nil
}
