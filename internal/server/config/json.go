package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/syncstore/internal/flagx"
	"github.com/dmitrijs2005/syncstore/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "10m" style strings or integer nanoseconds. Zero or missing values
// leave the current setting untouched.
type JsonConfig struct {
	DatabaseDriver      string          `json:"database_driver"`
	DatabaseDSN         string          `json:"database_dsn"`
	MaxOpenConns        int             `json:"max_open_conns"`
	StandardCollections *bool           `json:"standard_collections"`
	PurgeInterval       *timex.Duration `json:"purge_interval"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays values from the file named by -c / -config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.DatabaseDriver != "" {
		config.DatabaseDriver = c.DatabaseDriver
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.MaxOpenConns != 0 {
		config.MaxOpenConns = c.MaxOpenConns
	}
	if c.StandardCollections != nil {
		config.StandardCollections = *c.StandardCollections
	}
	if c.PurgeInterval != nil {
		config.PurgeInterval = c.PurgeInterval.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	return nil
}
