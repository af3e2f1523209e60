package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DiscordToken         string `env:"DISCORD_TOKEN"`
	DiscordClientID      string `env:"DISCORD_CLIENT_ID"`
	BotOwnerID           string `env:"BOT_OWNER_ID"`
	MessageContentIntent bool   `env:"ENABLE_MESSAGE_CONTENT_INTENT" envDefault:"false"`
	InitSlashCommands    bool   `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandCacheDir      string `env:"COMMAND_CACHE_DIR" envDefault:"data/commands"`
	AppVersion           string `env:"APP_VERSION"`

	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Limits   LimitsConfig
	Log      LogConfig `envPrefix:"LOG_"`
}

type StorageConfig struct {
	Driver     string `env:"DRIVER" envDefault:"json"`
	Path       string `env:"PATH" envDefault:"datastore.json"`
	SyncWrites bool   `env:"SYNC_WRITES" envDefault:"false"`
}

type DatabaseConfig struct {
	DSN             string        `env:"DSN"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// LimitsConfig holds the tunables of command storage.
type LimitsConfig struct {
	TriggerPrefix     string `env:"TRIGGER_PREFIX" envDefault:"!"`
	HistoryLimit      int    `env:"HISTORY_LIMIT" envDefault:"50"`
	MaxHistoryEntries int    `env:"MAX_HISTORY_ENTRIES" envDefault:"1000"`
	BatchSize         int    `env:"BATCH_SIZE" envDefault:"100"`
}

type LogConfig struct {
	Level          string `env:"LEVEL" envDefault:"info"`
	Format         string `env:"FORMAT" envDefault:"text"`
	File           string `env:"FILE"`
	FileMaxSizeMB  int    `env:"FILE_MAX_SIZE_MB" envDefault:"10"`
	FileMaxBackups int    `env:"FILE_MAX_BACKUPS" envDefault:"3"`
	FileMaxAgeDays int    `env:"FILE_MAX_AGE_DAYS" envDefault:"28"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, falling back to system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every binary needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverJSON:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("STORAGE_PATH is required for the json driver"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Limits.TriggerPrefix == "" {
		errs = append(errs, errors.New("TRIGGER_PREFIX must not be empty"))
	}
	if c.Limits.HistoryLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be positive"))
	}
	if c.Limits.MaxHistoryEntries <= 0 {
		errs = append(errs, errors.New("MAX_HISTORY_ENTRIES must be positive"))
	}
	if c.Limits.BatchSize <= 0 {
		errs = append(errs, errors.New("BATCH_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateDiscord checks the settings needed to connect to Discord.
func (c *Config) ValidateDiscord() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if c.BotOwnerID == "" {
		errs = append(errs, errors.New("BOT_OWNER_ID is not set"))
	}
	return errors.Join(errs...)
}
