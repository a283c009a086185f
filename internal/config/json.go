package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/polaris/internal/flagx"
	"github.com/dmitrijs2005/polaris/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the corresponding Config field untouched.
type JsonConfig struct {
	DatabaseDriver  string          `json:"database_driver"`
	DatabaseDSN     string          `json:"database_dsn"`
	LogLevel        string          `json:"log_level"`
	LogFormat       string          `json:"log_format"`
	OutboxDir       string          `json:"outbox_dir"`
	SyncInterval    *timex.Duration `json:"sync_interval"`
	SyncPreset      string          `json:"sync_preset"`
	StatsWindowDays int             `json:"stats_window_days"`
	GrantForeground *bool           `json:"grant_foreground"`
	GrantBackground *bool           `json:"grant_background"`
}

// parseJson overlays cfg with the JSON file named by -c/-config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.DatabaseDriver, jc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.OutboxDir, jc.OutboxDir)

	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.SyncPreset != "" {
		d, err := ParseSyncInterval(jc.SyncPreset)
		if err != nil {
			return err
		}
		cfg.SyncInterval = d
	}
	if jc.StatsWindowDays != 0 {
		cfg.StatsWindowDays = jc.StatsWindowDays
	}
	if jc.GrantForeground != nil {
		cfg.GrantForeground = *jc.GrantForeground
	}
	if jc.GrantBackground != nil {
		cfg.GrantBackground = *jc.GrantBackground
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
