// Package config defines the top-level configuration for the betting
// market service and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from
// a TOML file and then optionally overridden by MARKETD_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Vault    VaultConfig    `toml:"vault"`
	Telegram TelegramConfig `toml:"telegram"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Worker   WorkerConfig   `toml:"worker"`
	Registry RegistryConfig `toml:"registry"`
}

// RegistryConfig identifies the deployment authority. When Authority is
// non-zero the process initializes the registry at bootstrap if it does
// not exist yet.
type RegistryConfig struct {
	Authority int64 `toml:"authority"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DatabaseConfig holds the SQLite settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// AuthConfig holds the API token secret
type AuthConfig struct {
	Secret string `toml:"secret"`
}

// VaultConfig holds the key vault authorizations are minted from
type VaultConfig struct {
	Key string `toml:"key"`
}

// TelegramConfig holds the channel notifier settings. Both fields empty
// disables the Telegram notifier.
type TelegramConfig struct {
	BotToken  string `toml:"bot_token"`
	ChannelID string `toml:"channel_id"`
}

// LedgerConfig holds ledger account settings
type LedgerConfig struct {
	OpeningBalance int64 `toml:"opening_balance"`
}

// WorkerConfig holds the deadline worker settings
type WorkerConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"-"`
	// IntervalSeconds is the tick interval; it maps to Interval after Load
	IntervalSeconds int `toml:"interval_seconds"`
}

// Defaults returns the built-in configuration defaults
func Defaults() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "./data/markets.db"},
		Ledger:   LedgerConfig{OpeningBalance: 100000},
		Worker:   WorkerConfig{Enabled: true, IntervalSeconds: 60},
	}
}

// Validate checks that the configuration is usable. The auth secret and
// vault key have no defaults on purpose; both must be provided.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret must be set (MARKETD_AUTH_SECRET)")
	}
	if c.Vault.Key == "" {
		return fmt.Errorf("vault.key must be set (MARKETD_VAULT_KEY)")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChannelID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.channel_id must be set together")
	}
	if c.Worker.IntervalSeconds <= 0 {
		return fmt.Errorf("worker.interval_seconds must be positive")
	}
	return nil
}
