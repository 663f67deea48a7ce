package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Upload    UploadConfig
	PDF       PDFConfig
	Events    EventsConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s Timezone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Insecure    bool
	SampleRate  float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Global Rate limit per IP
	RequestsPerSecond float64
	BurstSize         int
	// Auth endpoints have stricter limits
	AuthRequestsPerMinute int
}

type StorageConfig struct {
	Backend string // "local" | "s3"
	// Root directory for the local backend.
	LocalDir string
	// Hex-encoded 32-byte key; attachments are stored in clear when empty.
	EncryptionKey string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3UsePathStyle    bool
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Key returns the decoded encryption key, nil when encryption is disabled.
func (s StorageConfig) Key() []byte {
	if s.EncryptionKey == "" {
		return nil
	}
	b, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil
	}
	return b
}

type UploadConfig struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

type PDFConfig struct {
	Author string
	Title  string
}

type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	// Consecutive failures before the publisher stops calling the broker.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type JobsConfig struct {
	PDFBackfillEnabled  bool
	PDFBackfillInterval time.Duration
	PDFBackfillBatch    int
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "neuroref-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "neuroref"),
			User:               getEnv("DB_USER", "neuroref"),
			Password:           getEnv("DB_PASSWORD", ""),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "neuroref-api"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "neuroref-api"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318/v1/traces"),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID"}),
			MaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     getEnvFloat("RATE_LIMIT_RPS", 100),
			BurstSize:             getEnvInt("RATE_LIMIT_BURST", 200),
			AuthRequestsPerMinute: getEnvInt("RATE_LIMIT_AUTH_RPM", 10),
		},
		Storage: StorageConfig{
			Backend:           getEnv("STORAGE_BACKEND", "local"),
			LocalDir:          getEnv("STORAGE_LOCAL_DIR", "./data"),
			EncryptionKey:     getEnv("STORAGE_ENCRYPTION_KEY", ""),
			S3Bucket:          getEnv("S3_BUCKET", ""),
			S3Region:          getEnv("S3_REGION", "eu-west-1"),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Upload: UploadConfig{
			MaxImageBytes: int64(getEnvInt("UPLOAD_MAX_IMAGE_BYTES", 10<<20)),
			MaxVideoBytes: int64(getEnvInt("UPLOAD_MAX_VIDEO_BYTES", 50<<20)),
		},
		PDF: PDFConfig{
			Author: getEnv("PDF_AUTHOR", "Service de Neurologie"),
			Title:  getEnv("PDF_TITLE", "Formulaire de consultation - Epilepsie"),
		},
		Events: EventsConfig{
			Enabled:         getEnvBool("EVENTS_ENABLED", false),
			Brokers:         getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:           getEnv("KAFKA_NOTIFICATION_TOPIC", "neuroref.notifications"),
			BreakerFailures: getEnvInt("EVENTS_BREAKER_FAILURES", 5),
			BreakerTimeout:  getEnvDuration("EVENTS_BREAKER_TIMEOUT", 30*time.Second),
		},
		Jobs: JobsConfig{
			PDFBackfillEnabled:  getEnvBool("JOBS_PDF_BACKFILL_ENABLED", true),
			PDFBackfillInterval: getEnvDuration("JOBS_PDF_BACKFILL_INTERVAL", 10*time.Minute),
			PDFBackfillBatch:    getEnvInt("JOBS_PDF_BACKFILL_BATCH", 20),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalDir == "" {
			errs = append(errs, "STORAGE_LOCAL_DIR is required for the local backend")
		}
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			errs = append(errs, "S3_BUCKET is required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND %q is not supported", cfg.Storage.Backend))
	}

	if k := cfg.Storage.EncryptionKey; k != "" {
		if b, err := hex.DecodeString(k); err != nil || len(b) != 32 {
			errs = append(errs, "STORAGE_ENCRYPTION_KEY must be 64 hex characters")
		}
	} else if cfg.App.Environment == "production" {
		errs = append(errs, "STORAGE_ENCRYPTION_KEY is required in production")
	}

	if cfg.Events.Enabled && len(cfg.Events.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}

	if cfg.Jobs.PDFBackfillEnabled && cfg.Jobs.PDFBackfillInterval < time.Minute {
		errs = append(errs, "JOBS_PDF_BACKFILL_INTERVAL must be at least 1m")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
