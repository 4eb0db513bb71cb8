package config

import (
	"fmt"
	"strings"
)

// OutputConfig names the result files. Empty paths are not written.
type OutputConfig struct {
	Revenue string `json:"revenue"`
	Trace   string `json:"trace"`
	// Chart is an HTML revenue histogram with ChartBins bins.
	Chart     string `json:"chart"`
	ChartBins int    `json:"chart_bins"`
	// Format applies to the revenue file: "csv" or "json".
	Format string       `json:"format"`
	RunLog RunLogConfig `json:"run_log"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "csv"
	}
	if c.ChartBins == 0 {
		c.ChartBins = 20
	}
	c.Format = strings.ToLower(c.Format)
}

// Validate checks mandatory fields.
func (c OutputConfig) Validate() error {
	if c.Format != "csv" && c.Format != "json" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	if c.ChartBins < 0 {
		return fmt.Errorf("chart_bins must not be negative")
	}
	return c.RunLog.Validate()
}

// RunLogConfig defines settings for the run history file and its rotation.
type RunLogConfig struct {
	// Path is the JSONL file. Empty disables the run log.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	// Zero keeps a single unrotated file.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// Rotating reports whether the run log is size-rotated.
func (c RunLogConfig) Rotating() bool { return c.MaxSizeMB > 0 }

// Validate checks mandatory fields.
func (c RunLogConfig) Validate() error {
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("run_log limits must not be negative")
	}
	return nil
}
