package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level string `json:"level"`
	// Format is "json" or "console". Empty lets APP_ENV decide.
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("unknown level %s", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
		return nil
	}
	return fmt.Errorf("unknown format %s", c.Format)
}
