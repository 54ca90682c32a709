package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/syncstore/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-t string   database driver (postgres, mysql, sqlite)
//	-d string   database DSN
//	-p int      connection pool size
//	-w          enable well-known collection ids
//	-i int      expired item purge interval, seconds (0 disables)
//	-l string   log level
//
// Only these flags are parsed; others are left to their own consumers.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-t", "-d", "-p", "-w", "-i", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxOpenConns, "p", config.MaxOpenConns, "connection pool size")
	fs.BoolVar(&config.StandardCollections, "w", config.StandardCollections, "use well-known collection ids")
	purgeInterval := fs.Int("i", int(config.PurgeInterval.Seconds()), "expired item purge interval (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.PurgeInterval = time.Duration(*purgeInterval) * time.Second
	return nil
}
