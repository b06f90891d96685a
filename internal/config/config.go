// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Mail services accepted in MAIL_SERVICE.
var mailServices = []string{"GMX", "smtp", "mailersend"}

// Config holds all configuration values shared by the binaries.
// Values are populated by Load from environment variables.
type Config struct {
	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ExamScrapURL string `envconfig:"EXAM_SCRAP_URL" default:"https://fischerpruefung-online.bayern.de/fprApp/verwaltung/Pruefungssuche"`

	// SpreadsheetID identifies the subscription form responses. Required.
	SpreadsheetID string `envconfig:"GSHEET_SPREADSHEET_ID"`
	// CredentialsFile is a service account key for the Sheets API. When
	// empty the public CSV export of the sheet is read instead.
	CredentialsFile string `envconfig:"GSHEET_CREDENTIALS_FILE"`
	SheetRange      string `envconfig:"GSHEET_RANGE" default:"A:Z"`

	SubscribeURL   string `envconfig:"SUBSCRIBE_URL"`
	UnsubscribeURL string `envconfig:"UNSUBSCRIBE_URL"`

	// MailService selects the transport: GMX or smtp for SMTP, mailersend
	// for the MailerSend API. Required.
	MailService  string `envconfig:"MAIL_SERVICE"`
	MailFrom     string `envconfig:"NOTIFY_MAIL_FROM"`
	MailReplyTo  string `envconfig:"NOTIFY_MAIL_REPLY_TO"`
	MailPassword string `envconfig:"NOTIFY_MAIL_PASSWORD"`
	SMTPHost     string `envconfig:"SMTP_HOST" default:"mail.gmx.net"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`

	MapsAPIKey string `envconfig:"GMAP_API_KEY"`

	// DistanceThreshold is the distance in meters above which a newly
	// resolved route triggers an admin alert.
	DistanceThreshold int    `envconfig:"DISTANCE_THRESHOLD" default:"500"`
	AlertWebhookURL   string `envconfig:"GCHAT_WEBHOOK_URL"`

	RunIntervalMinutes          int `envconfig:"RUN_INTERVAL_MINUTES" default:"60"`
	ConfirmationIntervalSeconds int `envconfig:"CONFIRMATION_INTERVAL_SECONDS" default:"10"`

	// StatusAddr is the listen address of the status server. Empty
	// disables it.
	StatusAddr string `envconfig:"STATUS_ADDR"`

	// TestEmail receives the mails of the connectivity check.
	TestEmail string `envconfig:"TEST_EMAIL"`
}

// RunInterval is the pause between alert cycles.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.RunIntervalMinutes) * time.Minute
}

// ConfirmationInterval is the pause between confirmation cycles.
func (c Config) ConfirmationInterval() time.Duration {
	return time.Duration(c.ConfirmationIntervalSeconds) * time.Second
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first if present; it never
// overrides variables that are already set.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	var missing []string
	for _, req := range []struct {
		key, value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"GSHEET_SPREADSHEET_ID", cfg.SpreadsheetID},
		{"SUBSCRIBE_URL", cfg.SubscribeURL},
		{"UNSUBSCRIBE_URL", cfg.UnsubscribeURL},
		{"MAIL_SERVICE", cfg.MailService},
		{"NOTIFY_MAIL_FROM", cfg.MailFrom},
		{"NOTIFY_MAIL_PASSWORD", cfg.MailPassword},
		{"GMAP_API_KEY", cfg.MapsAPIKey},
		{"GCHAT_WEBHOOK_URL", cfg.AlertWebhookURL},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if !validMailService(cfg.MailService) {
		return Config{}, fmt.Errorf("MAIL_SERVICE must be one of %s; not %q", strings.Join(mailServices, ", "), cfg.MailService)
	}
	if cfg.RunIntervalMinutes <= 0 || cfg.ConfirmationIntervalSeconds <= 0 {
		return Config{}, fmt.Errorf("RUN_INTERVAL_MINUTES and CONFIRMATION_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func validMailService(s string) bool {
	for _, m := range mailServices {
		if strings.EqualFold(s, m) {
			return true
		}
	}
	return false
}
