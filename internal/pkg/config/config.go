// internal/pkg/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // report zones resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingRequiredConfig is returned when a required value is absent
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Config holds all application configuration
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Asynq
	Asynq AsynqConfig

	// AWS
	AWS AWSConfig

	// Object storage for uploads and exports
	Storage StorageConfig

	// Ledger behaviour
	Ledger LedgerConfig

	// Security
	Security SecurityConfig

	// Server
	Server ServerConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `validate:"required"`
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
	// ReportTimezone is the IANA zone report day boundaries are taken in
	ReportTimezone string `validate:"timezone"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host               string `validate:"required"`
	Port               string `validate:"required"`
	User               string `validate:"required"`
	Password           string
	Name               string `validate:"required"`
	SSLMode            string
	MaxConnections     int32 `validate:"gtefield=MinConnections"`
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementCacheMode string
	EnableQueryLogging bool
	// MigrationPath overrides the embedded migrations when set
	MigrationPath string
	AutoMigrate   bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host            string `validate:"required"`
	Port            string `validate:"required"`
	Password        string
	DB              int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int `validate:"gt=0"`
	MinIdleConns    int
	MaxConnAge      time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	TTL             time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	Concurrency          int `validate:"gt=0"`
	Queues               map[string]int // queue name -> priority
	StrictPriority       bool
	RetryMax             int
	ShutdownTimeout      time.Duration
	HealthCheckInterval  time.Duration
	DelayedTaskCheckTime time.Duration
	CleanupSchedule      string
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
	SecretsName     string // Secrets Manager entry overlaying credentials
}

// StorageConfig selects where uploads and exports are kept
type StorageConfig struct {
	Backend         string `validate:"oneof=s3 local"`
	LocalPath       string
	MaxUploadSizeMB int    `validate:"gt=0"`
	UploadRetention time.Duration
	ExportURLExpiry time.Duration
}

// LedgerConfig holds stock ledger tuning
type LedgerConfig struct {
	RecentLimit         int           `validate:"min=1,max=100"`
	IdempotencyTTL      time.Duration `validate:"gte=1m"`
	ReportCacheTTL      time.Duration
	LowStockAlertWindow time.Duration
	ImportTimeout       time.Duration
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret         string
	JWTIssuer         string
	RateLimitRequests int `validate:"gt=0"`
	RateLimitDuration time.Duration
	AllowedOrigins    []string
	TrustedProxies    []string
	SecureHeaders     bool
	RequestIDHeader   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string
	Port              string `validate:"required"`
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GracefulTimeout   time.Duration
	EnableHealthCheck bool
	TLSEnabled        bool
	TLSCertFile       string
	TLSKeyFile        string
}

// Load loads configuration from environment variables and an optional
// CONFIG_FILE understood by viper
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Load .env file in development
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := newViper()
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		logger.Info("config file loaded", slog.String("file", file))
	}

	cfg := build(v, env)

	if cfg.AWS.SecretsName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		src, err := NewSecretsManagerSource(ctx, cfg.AWS.Region, cfg.AWS.SecretsName, logger)
		if err != nil {
			return nil, err
		}
		applied, err := ApplySecrets(ctx, cfg, src)
		if err != nil {
			return nil, err
		}
		logger.Info("secrets applied", slog.Any("keys", applied))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_NAME", "stockledger-api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REPORT_TIMEZONE", "UTC")
	return v
}

// build reads every section through v. Unset keys fall back to defaults.
func build(v *viper.Viper, env string) *Config {
	e := envReader{v: v}

	return &Config{
		App: AppConfig{
			Name:           e.str("APP_NAME", "stockledger-api"),
			Environment:    env,
			Version:        e.str("APP_VERSION", "dev"),
			LogLevel:       e.str("LOG_LEVEL", "info"),
			LogFormat:      e.str("LOG_FORMAT", "json"),
			Debug:          e.boolean("APP_DEBUG", env == "development"),
			ReportTimezone: e.str("REPORT_TIMEZONE", "UTC"),
		},
		Database: DatabaseConfig{
			Host:               e.str("DB_HOST", "localhost"),
			Port:               e.str("DB_PORT", "5432"),
			User:               e.str("DB_USER", "ledger"),
			Password:           e.str("DB_PASSWORD", "ledger_dev"),
			Name:               e.str("DB_NAME", "stock_ledger"),
			SSLMode:            e.str("DB_SSL_MODE", "disable"),
			MaxConnections:     int32(e.integer("DB_MAX_CONNECTIONS", 25)),
			MinConnections:     int32(e.integer("DB_MIN_CONNECTIONS", 5)),
			MaxConnLifetime:    e.duration("DB_CONNECTION_LIFETIME", time.Hour),
			MaxConnIdleTime:    e.duration("DB_IDLE_TIME", 30*time.Minute),
			HealthCheckPeriod:  e.duration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			ConnectTimeout:     e.duration("DB_CONNECT_TIMEOUT", 10*time.Second),
			StatementCacheMode: e.str("DB_STATEMENT_CACHE_MODE", "describe"),
			EnableQueryLogging: e.boolean("DB_QUERY_LOGGING", false),
			MigrationPath:      e.str("DB_MIGRATION_PATH", ""),
			AutoMigrate:        e.boolean("DB_AUTO_MIGRATE", env != "production"),
		},
		Redis: RedisConfig{
			Host:            e.str("REDIS_HOST", "localhost"),
			Port:            e.str("REDIS_PORT", "6379"),
			Password:        e.str("REDIS_PASSWORD", ""),
			DB:              e.integer("REDIS_DB", 0),
			MaxRetries:      e.integer("REDIS_MAX_RETRIES", 3),
			MinRetryBackoff: e.duration("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: e.duration("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond),
			DialTimeout:     e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolSize:        e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns:    e.integer("REDIS_MIN_IDLE_CONNS", 2),
			MaxConnAge:      e.duration("REDIS_MAX_CONN_AGE", 0),
			PoolTimeout:     e.duration("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:     e.duration("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			TTL:             e.duration("REDIS_TTL", time.Hour),
		},
		Asynq: AsynqConfig{
			RedisAddr:            fmt.Sprintf("%s:%s", e.str("REDIS_HOST", "localhost"), e.str("REDIS_PORT", "6379")),
			RedisPassword:        e.str("REDIS_PASSWORD", ""),
			RedisDB:              e.integer("ASYNQ_REDIS_DB", 0),
			Concurrency:          e.integer("ASYNQ_CONCURRENCY", 10),
			Queues:               parseQueues(e.str("ASYNQ_QUEUES", "critical:6,default:3,low:1")),
			StrictPriority:       e.boolean("ASYNQ_STRICT_PRIORITY", false),
			RetryMax:             e.integer("ASYNQ_RETRY_MAX", 3),
			ShutdownTimeout:      e.duration("ASYNQ_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthCheckInterval:  e.duration("ASYNQ_HEALTH_CHECK_INTERVAL", 30*time.Second),
			DelayedTaskCheckTime: e.duration("ASYNQ_DELAYED_TASK_CHECK", 5*time.Second),
			CleanupSchedule:      e.str("ASYNQ_CLEANUP_SCHEDULE", "@every 1h"),
		},
		AWS: AWSConfig{
			Region:          e.str("AWS_REGION", "us-east-1"),
			AccessKeyID:     e.str("AWS_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: e.str("AWS_SECRET_ACCESS_KEY", "minioadmin123"),
			S3Bucket:        e.str("AWS_S3_BUCKET", "stockledger"),
			S3Endpoint:      e.str("AWS_S3_ENDPOINT", ""),
			UsePathStyle:    e.boolean("AWS_S3_PATH_STYLE", env == "development"),
			SecretsName:     e.str("AWS_SECRETS_NAME", ""),
		},
		Storage: StorageConfig{
			Backend:         e.str("STORAGE_BACKEND", "s3"),
			LocalPath:       e.str("STORAGE_LOCAL_PATH", "./data/storage"),
			MaxUploadSizeMB: e.integer("MAX_UPLOAD_SIZE_MB", 20),
			UploadRetention: e.duration("UPLOAD_RETENTION", 7*24*time.Hour),
			ExportURLExpiry: e.duration("EXPORT_URL_EXPIRY", time.Hour),
		},
		Ledger: LedgerConfig{
			RecentLimit:         e.integer("LEDGER_RECENT_LIMIT", 20),
			IdempotencyTTL:      e.duration("LEDGER_IDEMPOTENCY_TTL", 24*time.Hour),
			ReportCacheTTL:      e.duration("LEDGER_REPORT_CACHE_TTL", 24*time.Hour),
			LowStockAlertWindow: e.duration("LEDGER_LOW_STOCK_ALERT_WINDOW", 6*time.Hour),
			ImportTimeout:       e.duration("LEDGER_IMPORT_TIMEOUT", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTSecret:         e.str("JWT_SECRET", generateDefaultSecret(env)),
			JWTIssuer:         e.str("JWT_ISSUER", ""),
			RateLimitRequests: e.integer("RATE_LIMIT_REQUESTS", 100),
			RateLimitDuration: e.duration("RATE_LIMIT_DURATION", time.Minute),
			AllowedOrigins:    e.slice("ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:    e.slice("TRUSTED_PROXIES", []string{}),
			SecureHeaders:     e.boolean("SECURE_HEADERS", env == "production"),
			RequestIDHeader:   e.str("REQUEST_ID_HEADER", "X-Request-ID"),
		},
		Server: ServerConfig{
			Host:              e.str("SERVER_HOST", "0.0.0.0"),
			Port:              e.str("SERVER_PORT", "8080"),
			ReadTimeout:       e.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      e.duration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:       e.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes:    e.integer("SERVER_MAX_HEADER_BYTES", 1<<20), // 1 MB
			GracefulTimeout:   e.duration("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
			EnableHealthCheck: e.boolean("ENABLE_HEALTH_CHECK", true),
			TLSEnabled:        e.boolean("TLS_ENABLED", false),
			TLSCertFile:       e.str("TLS_CERT_FILE", ""),
			TLSKeyFile:        e.str("TLS_KEY_FILE", ""),
		},
	}
}

// ReportLocation resolves the reporting time zone
func (c *Config) ReportLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", c.App.ReportTimezone, err)
	}
	return loc, nil
}

// GetDatabaseURL returns the formatted database connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns host:port for the Redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

// envReader reads typed values through viper, falling back on parse errors
type envReader struct {
	v *viper.Viper
}

func (e envReader) str(key, defaultValue string) string {
	if value := e.v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e.v.GetString(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func (e envReader) integer(key string, defaultValue int) int {
	if value := e.v.GetString(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e.v.GetString(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func (e envReader) slice(key string, defaultValue []string) []string {
	if value := e.v.GetString(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func parseQueues(queuesStr string) map[string]int {
	queues := make(map[string]int)
	pairs := strings.Split(queuesStr, ",")
	for _, pair := range pairs {
		parts := strings.Split(pair, ":")
		if len(parts) == 2 {
			name := strings.TrimSpace(parts[0])
			priority, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err == nil {
				queues[name] = priority
			}
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}

func generateDefaultSecret(env string) string {
	if env == "production" {
		return "" // Force error in production if not set
	}
	return developmentSecret
}
