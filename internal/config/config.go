package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Output
		Report
		Tasks
		Sessions
		Retention
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Output struct {
		Dir             string
		DefaultFileName string
	}
	Report struct {
		MaxInvalidShown int
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Sessions struct {
		Secret        string
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Retention struct {
		Enabled  bool
		Schedule string        // Cron format: "0 3 * * *" = daily at 03:00
		MaxAge   time.Duration // Generations and audit events older than this are removed
	}
	Audit struct {
		Enabled bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("output_file_name", DefaultFileName)
	v.SetDefault("report_max_invalid_shown", DefaultMaxInvalidShown)

	// Session defaults
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("session_secure_cookies", true) // HTTPS-only cookies

	// Retention defaults
	v.SetDefault("retention_enabled", true)
	v.SetDefault("retention_schedule", "0 3 * * *")
	v.SetDefault("retention_max_age", "168h") // 7 days

	v.SetDefault("audit_enabled", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Output: Output{
			Dir:             v.GetString("OUTPUT_DIR"),
			DefaultFileName: v.GetString("OUTPUT_FILE_NAME"),
		},
		Report: Report{
			MaxInvalidShown: v.GetInt("REPORT_MAX_INVALID_SHOWN"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Sessions: Sessions{
			Secret:        v.GetString("SESSION_SECRET"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
		},
		Retention: Retention{
			Enabled:  v.GetBool("RETENTION_ENABLED"),
			Schedule: v.GetString("RETENTION_SCHEDULE"),
			MaxAge:   v.GetDuration("RETENTION_MAX_AGE"),
		},
		Audit: Audit{
			Enabled: v.GetBool("AUDIT_ENABLED"),
		},
	}
}
