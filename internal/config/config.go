package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type StorageDriver string

const (
	StorageLocal StorageDriver = "local" // Files on disk, served under /covers
	StorageOSS   StorageDriver = "oss"   // Aliyun OSS bucket with signed URLs
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Mail
		Storage
		Covers
		Tasks
		Scheduler
		Telemetry
		Maintenance
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // sqlite file
		URL      string // postgres DSN
		LogLevel string // silent, error, warn, info
	}
	Auth struct {
		SessionSecret    string
		SessionLifetime  time.Duration
		BcryptCost       int
		SecureCookies    bool // Set to false for local dev without HTTPS
		CSRFEnabled      bool
		EmailTokenSecret string
		ResetTokenSecret string
		EmailTokenExpiry time.Duration
		GoogleClientID   string
		WebsiteURL       string // Base URL used in verification and reset links

		// Login lockout
		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration

		// Mail-sending endpoints (signup, reset) per client
		MailRatePerMinute int
	}
	Mail struct {
		APIURL string
		APIKey string
		From   string
	}
	Storage struct {
		Driver             StorageDriver
		LocalDir           string
		PublicURL          string
		OSSEndpoint        string
		OSSAccessKeyID     string
		OSSAccessKeySecret string
		OSSBucket          string
	}
	Covers struct {
		URLTTL         time.Duration
		MaxWidth       int
		Quality        float32
		MaxUploadBytes int64
	}
	Tasks struct {
		Enabled           bool
		DatabasePath      string
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Scheduler struct {
		CoverSweepEnabled  bool
		CoverSweepSchedule string        // Cron format: "30 3 * * *" = nightly
		CoverRetention     time.Duration // How long soft-deleted books keep their covers
	}
	Telemetry struct {
		Enabled      bool
		OTLPEndpoint string
		ServiceName  string
	}
	Maintenance struct {
		ReadOnly bool
	}
)

// getDatabaseURL prefers DATABASE_URL and falls back to the legacy variable name.
func getDatabaseURL(v *viper.Viper) string {
	if dsn := v.GetString("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return v.GetString("POSTGRE_CONNECTION_STRING")
}

func NewConfig() *Config {
	// A missing .env file is fine; the environment may already be populated.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_log_level", "warn")

	// Auth defaults
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("secure_cookies", true)
	v.SetDefault("csrf_enabled", false)
	v.SetDefault("email_token_secret", "")
	v.SetDefault("reset_token_secret", "")
	v.SetDefault("email_token_expiry", "5m")
	v.SetDefault("website_url", "http://localhost:3000")
	v.SetDefault("max_login_attempts", 5)
	v.SetDefault("rate_limit_window", "15m")
	v.SetDefault("lockout_duration", "30m")
	v.SetDefault("mail_rate_per_minute", 3)

	v.SetDefault("mail_api_url", DefaultMailAPIURL)
	v.SetDefault("mail_from", "Kitaplik <no-reply@kitaplik.app>")

	v.SetDefault("storage_driver", string(StorageLocal))
	v.SetDefault("storage_local_dir", DefaultCoversDir)
	v.SetDefault("storage_public_url", "/covers")

	v.SetDefault("cover_url_ttl", "1h")
	v.SetDefault("cover_max_width", 800)
	v.SetDefault("cover_quality", 80)
	v.SetDefault("cover_max_upload_bytes", 5<<20)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "2m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("cover_sweep_enabled", true)
	v.SetDefault("cover_sweep_schedule", "30 3 * * *") // Nightly at 03:30
	v.SetDefault("cover_retention", "720h")           // 30 days

	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4318")
	v.SetDefault("otel_service_name", "kitaplik")

	v.SetDefault("read_only_mode", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			URL:      getDatabaseURL(v),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Auth: Auth{
			SessionSecret:     v.GetString("SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("SESSION_LIFETIME"),
			BcryptCost:        v.GetInt("BCRYPT_COST"),
			SecureCookies:     v.GetBool("SECURE_COOKIES"),
			CSRFEnabled:       v.GetBool("CSRF_ENABLED"),
			EmailTokenSecret:  v.GetString("EMAIL_TOKEN_SECRET"),
			ResetTokenSecret:  v.GetString("RESET_TOKEN_SECRET"),
			EmailTokenExpiry:  v.GetDuration("EMAIL_TOKEN_EXPIRY"),
			GoogleClientID:    v.GetString("GOOGLE_CLIENT_ID"),
			WebsiteURL:        v.GetString("WEBSITE_URL"),
			MaxLoginAttempts:  v.GetInt("MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("LOCKOUT_DURATION"),
			MailRatePerMinute: v.GetInt("MAIL_RATE_PER_MINUTE"),
		},
		Mail: Mail{
			APIURL: v.GetString("MAIL_API_URL"),
			APIKey: v.GetString("RESEND_API_KEY"),
			From:   v.GetString("MAIL_FROM"),
		},
		Storage: Storage{
			Driver:             StorageDriver(v.GetString("STORAGE_DRIVER")),
			LocalDir:           v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL:          v.GetString("STORAGE_PUBLIC_URL"),
			OSSEndpoint:        v.GetString("OSS_ENDPOINT"),
			OSSAccessKeyID:     v.GetString("OSS_ACCESS_KEY_ID"),
			OSSAccessKeySecret: v.GetString("OSS_ACCESS_KEY_SECRET"),
			OSSBucket:          v.GetString("OSS_BUCKET"),
		},
		Covers: Covers{
			URLTTL:         v.GetDuration("COVER_URL_TTL"),
			MaxWidth:       v.GetInt("COVER_MAX_WIDTH"),
			Quality:        float32(v.GetFloat64("COVER_QUALITY")),
			MaxUploadBytes: v.GetInt64("COVER_MAX_UPLOAD_BYTES"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DatabasePath:      v.GetString("TASKS_DATABASE_PATH"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Scheduler: Scheduler{
			CoverSweepEnabled:  v.GetBool("COVER_SWEEP_ENABLED"),
			CoverSweepSchedule: v.GetString("COVER_SWEEP_SCHEDULE"),
			CoverRetention:     v.GetDuration("COVER_RETENTION"),
		},
		Telemetry: Telemetry{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
		Maintenance: Maintenance{
			ReadOnly: v.GetBool("READ_ONLY_MODE"),
		},
	}
}
