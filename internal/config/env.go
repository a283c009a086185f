package config

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/polaris/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDatabaseDriver  = "VAULT_DB_DRIVER"
	EnvDatabaseDSN     = "VAULT_DB_DSN"
	EnvLogLevel        = "VAULT_LOG_LEVEL"
	EnvLogFormat       = "VAULT_LOG_FORMAT"
	EnvOutboxDir       = "VAULT_OUTBOX_DIR"
	EnvSyncInterval    = "VAULT_SYNC_INTERVAL"
	EnvStatsWindowDays = "VAULT_STATS_WINDOW_DAYS"
	EnvGrantForeground = "VAULT_GRANT_FOREGROUND"
	EnvGrantBackground = "VAULT_GRANT_BACKGROUND"
)

type lookupFunc func(key string) (string, bool)

// parseEnv loads the optional .env file named by -e/-env-file into the
// process environment, then overlays cfg with VAULT_* values read via lookup.
func parseEnv(cfg *Config, args []string, lookup lookupFunc) error {
	if envFile := flagx.EnvFileFlags(args); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if v, ok := lookup(EnvDatabaseDriver); ok {
		cfg.DatabaseDriver = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.LogFormat = v
	}
	if v, ok := lookup(EnvOutboxDir); ok {
		cfg.OutboxDir = v
	}
	if v, ok := lookup(EnvSyncInterval); ok {
		d, err := ParseSyncInterval(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSyncInterval, err)
		}
		cfg.SyncInterval = d
	}
	if v, ok := lookup(EnvStatsWindowDays); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStatsWindowDays, err)
		}
		cfg.StatsWindowDays = n
	}
	if v, ok := lookup(EnvGrantForeground); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvGrantForeground, err)
		}
		cfg.GrantForeground = b
	}
	if v, ok := lookup(EnvGrantBackground); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvGrantBackground, err)
		}
		cfg.GrantBackground = b
	}
	return nil
}
