// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "meetlog"
	DefaultPGSSLMode      = "disable"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultWhisperModel   = "whisper-1"
	DefaultGeocodeBaseURL = "https://nominatim.openstreetmap.org"
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultReminderCron   = "0 8 * * *"
	DefaultTimeoutSeconds = 10
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Telegram TelegramConfig `toml:"telegram"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Geocode  GeocodeConfig  `toml:"geocode"`
	Reminder ReminderConfig `toml:"reminder"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the initial admin account created on first boot.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Email    string `toml:"email"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// TelegramConfig holds the bot token, webhook secret, and API base URL.
// The webhook must be registered under the secret path segment so third
// parties cannot post fabricated updates.
type TelegramConfig struct {
	BotToken      string `toml:"bot_token"`
	WebhookSecret string `toml:"webhook_secret"`
	APIBaseURL    string `toml:"api_base_url"`
}

// OpenAIConfig holds the OpenAI-compatible endpoint used for structured
// extraction and voice transcription.
type OpenAIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	ChatModel      string `toml:"chat_model"`
	WhisperModel   string `toml:"whisper_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GeocodeConfig holds the geocoding service base URL, user agent, and timeout.
type GeocodeConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ReminderConfig holds the birthday reminder schedule and SMTP delivery.
type ReminderConfig struct {
	Enabled  bool   `toml:"enabled"`
	Cron     string `toml:"cron"`
	From     string `toml:"from"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
}

// ExpiresIn returns the configured JWT lifetime as a duration.
func (c AuthConfig) ExpiresIn() time.Duration {
	d, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultJWTExpiresIn)
	}
	return d
}

// Timeout returns the configured OpenAI call timeout as a duration.
func (c OpenAIConfig) Timeout() time.Duration {
	return timeoutSeconds(c.TimeoutSeconds)
}

// Timeout returns the configured geocoding call timeout as a duration.
func (c GeocodeConfig) Timeout() time.Duration {
	return timeoutSeconds(c.TimeoutSeconds)
}

func timeoutSeconds(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = DefaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
			Email:    "you@example.com",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Telegram: TelegramConfig{
			APIBaseURL: DefaultTelegramAPIURL,
		},
		OpenAI: OpenAIConfig{
			BaseURL:      DefaultOpenAIBaseURL,
			ChatModel:    DefaultChatModel,
			WhisperModel: DefaultWhisperModel,
		},
		Geocode: GeocodeConfig{
			BaseURL:   DefaultGeocodeBaseURL,
			UserAgent: "meetlog/1.0",
		},
		Reminder: ReminderConfig{
			Cron:     DefaultReminderCron,
			SMTPPort: 587,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
