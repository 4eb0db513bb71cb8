// Package config loads the run configuration from a YAML or JSON file with
// K_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/infra/loader"
)

type Config struct {
	Model      ModelConfig      `json:"model"`
	Choice     ChoiceConfig     `json:"choice"`
	Solver     SolverConfig     `json:"solver"`
	Simulation SimulationConfig `json:"simulation"`
	Transition TransitionConfig `json:"transition"`
	Input      loader.Source    `json:"input"`
	Output     OutputConfig     `json:"output"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    metrics.Config   `json:"metrics"`
	Sentry     SentryConfig     `json:"sentry"`
	// Workers bounds the goroutines of every parallel stage. Zero means
	// unbounded.
	Workers int `json:"workers"`
}

// Default returns a configuration holding the default settings. Load
// overlays the file and the environment on top of it.
func Default() Config {
	return Config{
		Model:      DefaultModel(),
		Choice:     DefaultChoice(),
		Solver:     DefaultSolver(),
		Simulation: DefaultSimulation(),
		Transition: DefaultTransition(),
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	// K_SOLVER__ALGORITHM sets solver.algorithm
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Output.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Transition.Validate(); err != nil {
		return fmt.Errorf("transition: %w", err)
	}
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}
