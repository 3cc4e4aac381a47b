package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is
// empty or the file does not exist), merges it on top of the built-in
// defaults, applies MARKETD_* environment variable overrides, and
// returns the final Config. The caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	cfg.Worker.Interval = time.Duration(cfg.Worker.IntervalSeconds) * time.Second

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETD_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Addr, "MARKETD_SERVER_ADDR")
	setStr(&cfg.Database.Path, "MARKETD_DATABASE_PATH")
	setStr(&cfg.Auth.Secret, "MARKETD_AUTH_SECRET")
	setStr(&cfg.Vault.Key, "MARKETD_VAULT_KEY")
	setStr(&cfg.Telegram.BotToken, "MARKETD_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.ChannelID, "MARKETD_TELEGRAM_CHANNEL_ID")
	setInt64(&cfg.Ledger.OpeningBalance, "MARKETD_LEDGER_OPENING_BALANCE")
	setBool(&cfg.Worker.Enabled, "MARKETD_WORKER_ENABLED")
	setInt(&cfg.Worker.IntervalSeconds, "MARKETD_WORKER_INTERVAL_SECONDS")
	setInt64(&cfg.Registry.Authority, "MARKETD_REGISTRY_AUTHORITY")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
