package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	AdminUsername  string `env:"ADMIN_USERNAME,required" validate:"required"`
	AdminPassword  string `env:"ADMIN_PASSWORD,required" validate:"required,min=12"`
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET,required" validate:"required,min=32"`

	BaseURL   string `env:"BASE_URL" validate:"omitempty,url"`
	StoreName string `env:"STORE_NAME" envDefault:"Tajer"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	SettingsSeedFile string `env:"SETTINGS_SEED_FILE"`

	NotifyChannel    string `env:"NOTIFY_CHANNEL" envDefault:"none" validate:"omitempty,oneof=sms whatsapp email none"`
	NotifyGatewayURL string `env:"NOTIFY_GATEWAY_URL" validate:"required_if=NotifyChannel sms,required_if=NotifyChannel whatsapp,omitempty,url"`
	NotifyAPIKey     string `env:"NOTIFY_API_KEY"`
	NotifySender     string `env:"NOTIFY_SENDER"`
	ResendAPIKey     string `env:"RESEND_API_KEY" validate:"required_if=NotifyChannel email"`
	NotifyFromEmail  string `env:"NOTIFY_FROM_EMAIL" validate:"required_if=NotifyChannel email,omitempty,email"`

	SheetsSpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	SheetsRange           string `env:"SHEETS_RANGE" envDefault:"Commandes!A:L"`
	SheetsCredentialsJSON string `env:"SHEETS_CREDENTIALS_JSON"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"order-events"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SheetsEnabled reports whether the spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.SheetsSpreadsheetID) != "" &&
		strings.TrimSpace(c.SheetsCredentialsJSON) != ""
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasSpreadsheet := strings.TrimSpace(c.SheetsSpreadsheetID) != ""
	hasCredentials := strings.TrimSpace(c.SheetsCredentialsJSON) != ""
	if hasSpreadsheet != hasCredentials {
		return fmt.Errorf("SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON must be set together")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
