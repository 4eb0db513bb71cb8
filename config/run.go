package config

import (
	"fmt"

	"github.com/kilianp07/drtmdp/core/simulator"
	"github.com/kilianp07/drtmdp/core/transition"
)

// SimulationConfig controls the Monte Carlo rollout of the solved policy.
type SimulationConfig struct {
	Trials  int    `json:"trials"`
	Seed    uint64 `json:"seed"`
	Trace   bool   `json:"trace"`
	Workers int    `json:"workers"`
}

func DefaultSimulation() SimulationConfig {
	return SimulationConfig{Trials: 10000, Seed: 1}
}

func (c SimulationConfig) Validate() error {
	if c.Trials < 0 {
		return fmt.Errorf("negative trials")
	}
	if c.Workers < 0 {
		return fmt.Errorf("negative workers")
	}
	return nil
}

// Simulator converts the section into simulator settings.
func (c SimulationConfig) Simulator() simulator.Config {
	return simulator.Config{Seed: c.Seed, Trace: c.Trace, Workers: c.Workers}
}

// TransitionConfig tunes the transition matrix builder.
type TransitionConfig struct {
	RowTolerance float64 `json:"row_tolerance"`
	ChunkSize    int     `json:"chunk_size"`
	Workers      int     `json:"workers"`
}

func DefaultTransition() TransitionConfig {
	return TransitionConfig{RowTolerance: 1e-6, ChunkSize: 256}
}

func (c TransitionConfig) Validate() error {
	if c.RowTolerance <= 0 {
		return fmt.Errorf("row_tolerance must be positive")
	}
	if c.ChunkSize < 0 || c.Workers < 0 {
		return fmt.Errorf("negative chunk_size or workers")
	}
	return nil
}

// Options converts the section into builder options.
func (c TransitionConfig) Options() transition.Options {
	return transition.Options{Workers: c.Workers, RowTolerance: c.RowTolerance, ChunkSize: c.ChunkSize}
}
