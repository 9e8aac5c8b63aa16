// Package config provides configuration loading from environment variables.
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

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrTelegramTokenRequired is returned when TELEGRAM_BOT_TOKEN is not set.
	ErrTelegramTokenRequired = errors.New("config: TELEGRAM_BOT_TOKEN is required")
	// ErrTelegramAPIIDRequired is returned when TELEGRAM_API_ID is not set or not positive.
	ErrTelegramAPIIDRequired = errors.New("config: TELEGRAM_API_ID is required")
	// ErrTelegramAPIHashRequired is returned when TELEGRAM_API_HASH is not set.
	ErrTelegramAPIHashRequired = errors.New("config: TELEGRAM_API_HASH is required")
	// ErrYandexTokenRequired is returned when YANDEX_OAUTH_TOKEN is not set.
	ErrYandexTokenRequired = errors.New("config: YANDEX_OAUTH_TOKEN is required")
	// ErrAllowedUsersRequired is returned when ALLOWED_USER_IDS is not set or empty.
	ErrAllowedUsersRequired = errors.New("config: ALLOWED_USER_IDS is required")
	// ErrUnknownTimezone is returned when TIMEZONE is not a recognized zone name.
	ErrUnknownTimezone = errors.New("config: unknown timezone")
)

// requiredVars maps required environment variables to their domain errors,
// in the order envconfig visits them.
var requiredVars = []struct {
	name string
	err  error
}{
	{"TELEGRAM_BOT_TOKEN", ErrTelegramTokenRequired},
	{"TELEGRAM_API_ID", ErrTelegramAPIIDRequired},
	{"TELEGRAM_API_HASH", ErrTelegramAPIHashRequired},
	{"YANDEX_OAUTH_TOKEN", ErrYandexTokenRequired},
	{"ALLOWED_USER_IDS", ErrAllowedUsersRequired},
}

// IDList is a comma-separated list of chat user identities.
type IDList []int64

// EnvDecode implements envconfig.Decoder. Blank entries and surrounding
// whitespace are ignored.
func (l *IDList) EnvDecode(val string) error {
	ids := make(IDList, 0)
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// Config holds all configuration for the application.
type Config struct {
	// Telegram settings
	TelegramBotToken     string `env:"TELEGRAM_BOT_TOKEN, required" json:"-" validate:"required"`
	TelegramAPIID        int    `env:"TELEGRAM_API_ID, required" json:"telegram_api_id" validate:"min=1"`
	TelegramAPIHash      string `env:"TELEGRAM_API_HASH, required" json:"-" validate:"required"`
	TelegramAPIEndpoint  string `env:"TELEGRAM_API_ENDPOINT, default=https://api.telegram.org/bot%s/%s" json:"telegram_api_endpoint"`
	TelegramFileEndpoint string `env:"TELEGRAM_FILE_ENDPOINT, default=https://api.telegram.org/file/bot%s/%s" json:"telegram_file_endpoint"`
	GroupsOnly           bool   `env:"TELEGRAM_GROUPS_ONLY, default=true" json:"groups_only"`

	// Yandex Disk settings
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN, required" json:"-" validate:"required"`
	RootFolder       string `env:"YANDEX_ROOT_FOLDER, default=Alisa" json:"root_folder" validate:"required"`

	// Access settings
	AllowedUserIDs IDList `env:"ALLOWED_USER_IDS, required" json:"allowed_user_ids" validate:"required,min=1"`

	// Timezone used to name the per-day folders
	Timezone string `env:"TIMEZONE, default=Europe/Moscow" json:"timezone" validate:"timezone"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/telegram_videos" json:"temp_dir"`

	// Server settings
	Port            int           `env:"PORT, default=8080" json:"port" validate:"min=0,max=65535"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=30s" json:"shutdown_timeout"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"

	location *time.Location
}

// Load reads configuration from environment variables using go-envconfig
// and validates it. It returns an error if a required variable is missing
// or a value is invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		for _, rv := range requiredVars {
			if errors.Is(err, envconfig.ErrMissingRequired) && strings.Contains(err.Error(), rv.name) {
				return nil, rv.err
			}
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and well formed.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		loc, lerr := time.LoadLocation(c.Timezone)
		if lerr != nil {
			return fmt.Errorf("%w: %s", ErrUnknownTimezone, c.Timezone)
		}
		c.location = loc
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}

	switch verrs[0].StructField() {
	case "TelegramBotToken":
		return ErrTelegramTokenRequired
	case "TelegramAPIID":
		return ErrTelegramAPIIDRequired
	case "TelegramAPIHash":
		return ErrTelegramAPIHashRequired
	case "YandexOAuthToken":
		return ErrYandexTokenRequired
	case "AllowedUserIDs":
		return ErrAllowedUsersRequired
	case "Timezone":
		return fmt.Errorf("%w: %s", ErrUnknownTimezone, c.Timezone)
	default:
		return fmt.Errorf("config: %w", verrs)
	}
}

// Location returns the configured time zone. It falls back to UTC when the
// config was not validated and the zone cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{TelegramAPIID: %d, GroupsOnly: %t, RootFolder: %s, AllowedUsers: %d, Timezone: %s, TempDir: %s, Port: %d, LogFormat: %s, LogLevel: %s}",
		c.TelegramAPIID,
		c.GroupsOnly,
		c.RootFolder,
		len(c.AllowedUserIDs),
		c.Timezone,
		c.TempDir,
		c.Port,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
