package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret              string
	JWTExpiry              time.Duration
	TokenEmailVerifyExpiry time.Duration

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage for published share blobs (local filesystem or S3-compatible)
	StorageDriver string // "local" or "s3"
	StoragePath   string // base directory for the local driver
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string        // Optional: for S3-compatible services (MinIO, R2, etc.)
	S3PresignTTL  time.Duration // Expiry for presigned download URLs

	// Uploads
	ChunkDir             string // working directory for in-progress chunk blobs
	DefaultChunkSize     int64
	PublicMaxUploadBytes int64
	UserMaxUploadBytes   int64
	UploadSessionTTL     time.Duration
	SweepInterval        time.Duration

	// Share slots
	PublicShareTTL time.Duration
	UserShareTTL   time.Duration

	// Rate limits (requests per window, keyed by client IP)
	RateLimitWindow  time.Duration
	RegisterLimit    int
	LoginLimit       int
	EmailStatusLimit int
	PublicShareLimit int
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "DShare"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envRequired("APP_URL"), // Required: base URL for email verification links
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/dshare.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:              envRequired("JWT_SECRET"),
		JWTExpiry:              envDuration("JWT_EXPIRY", 168*time.Hour),               // 7 days
		TokenEmailVerifyExpiry: envDuration("TOKEN_EMAIL_VERIFY_EXPIRY", 24*time.Hour), // 24 hours

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver: envString("STORAGE_DRIVER", "local"),
		StoragePath:   envString("STORAGE_PATH", "./data/storage"),
		S3Region:      envString("S3_REGION", ""),
		S3Bucket:      envString("S3_BUCKET", ""),
		S3AccessKey:   envString("S3_ACCESS_KEY", ""),
		S3SecretKey:   envString("S3_SECRET_KEY", ""),
		S3Endpoint:    envString("S3_ENDPOINT", ""),
		S3PresignTTL:  envDuration("S3_PRESIGN_TTL", 1*time.Hour),

		// Uploads
		ChunkDir:             envString("CHUNK_DIR", "./data/chunks"),
		DefaultChunkSize:     envInt64("DEFAULT_CHUNK_SIZE", 1<<20),        // 1 MiB
		PublicMaxUploadBytes: envInt64("PUBLIC_MAX_UPLOAD_BYTES", 10<<20),  // 10 MiB
		UserMaxUploadBytes:   envInt64("USER_MAX_UPLOAD_BYTES", 10<<20),    // 10 MiB
		UploadSessionTTL:     envDuration("UPLOAD_SESSION_TTL", 24*time.Hour),
		SweepInterval:        envDuration("SWEEP_INTERVAL", 1*time.Hour),

		// Share slots
		PublicShareTTL: envDuration("PUBLIC_SHARE_TTL", 24*time.Hour),
		UserShareTTL:   envDuration("USER_SHARE_TTL", 720*time.Hour), // 30 days

		// Rate limits
		RateLimitWindow:  envDuration("RATE_LIMIT_WINDOW", 10*time.Minute),
		RegisterLimit:    envInt("REGISTER_LIMIT", 10),
		LoginLimit:       envInt("LOGIN_LIMIT", 50),
		EmailStatusLimit: envInt("EMAIL_STATUS_LIMIT", 120),
		PublicShareLimit: envInt("PUBLIC_SHARE_LIMIT", 100),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to fall back to log mode for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if cfg.StorageDriver == "s3" && (cfg.S3Region == "" || cfg.S3Bucket == "") {
		slog.Error("STORAGE_DRIVER=s3 requires S3_REGION and S3_BUCKET")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MaxUploadBytes returns the upload cap for the given caller class.
func (c *Config) MaxUploadBytes(authenticated bool) int64 {
	if authenticated {
		return c.UserMaxUploadBytes
	}
	return c.PublicMaxUploadBytes
}

// ShareTTL returns the slot artifact TTL for the given caller class.
func (c *Config) ShareTTL(authenticated bool) time.Duration {
	if authenticated {
		return c.UserShareTTL
	}
	return c.PublicShareTTL
}
