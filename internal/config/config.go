package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	// ----------------------------
	// Sender credentials
	// ----------------------------
	EmailSender string `envconfig:"EMAIL_SENDER" default:""`
	EmailPass   string `envconfig:"EMAIL_PASS" default:""`

	// ----------------------------
	// SMTP
	// ----------------------------
	SMTPHost string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"587"`

	// ----------------------------
	// Dispatcher
	// ----------------------------
	PollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"20"`
	RateLimit   int `envconfig:"RATE_LIMIT" default:"5"`

	// ----------------------------
	// Storage
	// ----------------------------
	DataDir        string `envconfig:"DATA_DIR" default:"./data"`
	AttachmentsDir string `envconfig:"ATTACHMENTS_DIR" default:"./attachments"`
	LockTimeoutSec int    `envconfig:"LOCK_TIMEOUT_SECONDS" default:"5"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Display
	// ----------------------------
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Rome"`
}

func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
