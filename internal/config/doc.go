// Package config loads runtime configuration for the vault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed with VAULT_. A .env file given with
//     -e or -env-file is loaded first; variables already set in the process
//     environment win over the file.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-driver string   database driver: sqlite or postgres
//	-d string        database DSN (sqlite file path or postgres URL)
//	-l string        log level: debug, info, warn, error
//	-log-format      text or json
//	-o string        outbox directory for sync batches
//	-s string        sync interval: a preset (realtime, frequent, normal,
//	                 infrequent, manual) or a Go duration such as 90s
//	-w int           statistics window in days
//	-fg bool         simulated foreground location permission
//	-bg bool         simulated background location permission
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "15m" or integer
// nanoseconds. sync_preset, when present, overrides sync_interval:
//
//	{
//	  "database_driver": "sqlite",
//	  "database_dsn": "polaris.db",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "outbox_dir": "outbox",
//	  "sync_interval": "15m",
//	  "sync_preset": "frequent",
//	  "stats_window_days": 30,
//	  "grant_foreground": true,
//	  "grant_background": false
//	}
package config
