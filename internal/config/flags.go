package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/polaris/internal/flagx"
)

var knownFlags = []string{
	"-driver", "-d", "-l", "-log-format", "-o", "-s", "-w", "-fg", "-bg",
}

// parseFlags populates Config fields from command-line flags. args is
// filtered through flagx.FilterArgs first so flags owned by other loaders
// (-c, -e) do not trip the parser.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("vault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite, postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	fs.StringVar(&cfg.OutboxDir, "o", cfg.OutboxDir, "outbox directory")
	syncInterval := fs.String("s", "", "sync interval preset or duration")
	fs.IntVar(&cfg.StatsWindowDays, "w", cfg.StatsWindowDays, "statistics window (days)")
	fs.BoolVar(&cfg.GrantForeground, "fg", cfg.GrantForeground, "grant foreground location permission")
	fs.BoolVar(&cfg.GrantBackground, "bg", cfg.GrantBackground, "grant background location permission")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *syncInterval != "" {
		d, err := ParseSyncInterval(*syncInterval)
		if err != nil {
			return err
		}
		cfg.SyncInterval = d
	}
	return nil
}
