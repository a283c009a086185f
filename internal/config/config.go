package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Sync interval presets.
const (
	SyncRealtime   = 10 * time.Second
	SyncFrequent   = 5 * time.Minute
	SyncNormal     = 15 * time.Minute
	SyncInfrequent = time.Hour
	// SyncManual disables the periodic sync loop.
	SyncManual time.Duration = 0
)

var syncPresets = map[string]time.Duration{
	"realtime":   SyncRealtime,
	"frequent":   SyncFrequent,
	"normal":     SyncNormal,
	"infrequent": SyncInfrequent,
	"manual":     SyncManual,
}

// Config holds runtime settings for the vault.
//
// GrantForeground and GrantBackground stand in for the operating system's
// location permission dialogs when running from a terminal.
type Config struct {
	DatabaseDriver  string
	DatabaseDSN     string
	LogLevel        string
	LogFormat       string
	OutboxDir       string
	SyncInterval    time.Duration
	StatsWindowDays int
	GrantForeground bool
	GrantBackground bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "polaris.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.OutboxDir = "outbox"
	c.SyncInterval = SyncNormal
	c.StatsWindowDays = 30
	c.GrantForeground = true
	c.GrantBackground = false
}

// Validate reports settings that can never work.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.StatsWindowDays <= 0 {
		return fmt.Errorf("stats window must be positive, got %d", c.StatsWindowDays)
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("sync interval must not be negative, got %s", c.SyncInterval)
	}
	return nil
}

// ParseSyncInterval accepts a preset name or a Go duration string.
func ParseSyncInterval(s string) (time.Duration, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := syncPresets[key]; ok {
		return d, nil
	}
	d, err := time.ParseDuration(key)
	if err != nil {
		return 0, fmt.Errorf("invalid sync interval %q", s)
	}
	return d, nil
}

// LoadConfig builds a Config from defaults, then JSON, environment and the
// command-line arguments args (usually os.Args[1:]). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, args, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
