package config

import (
	"fmt"

	"github.com/kilianp07/drtmdp/core/factory"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/solver"
)

// ModelConfig describes the fleet, the horizon and the fares.
type ModelConfig struct {
	Horizon         int     `json:"horizon"`
	FleetSize       int     `json:"fleet_size"`
	Capacity        int     `json:"capacity"`
	StepMinutes     float64 `json:"step_minutes"`
	FlatFare        float64 `json:"flat_fare"`
	DistanceFare    float64 `json:"distance_fare"`
	ServiceConstant float64 `json:"service_constant"`
}

// ChoiceConfig holds the recursive-logit scale and discount.
type ChoiceConfig struct {
	Scale    float64 `json:"scale"`
	Discount float64 `json:"discount"`
}

func DefaultModel() ModelConfig {
	p := model.DefaultParams()
	return ModelConfig{
		Horizon:         p.Horizon,
		FleetSize:       p.Fleet,
		Capacity:        p.Capacity,
		StepMinutes:     p.StepMinutes,
		FlatFare:        p.FlatFare,
		DistanceFare:    p.DistanceFare,
		ServiceConstant: p.ServiceConstant,
	}
}

func DefaultChoice() ChoiceConfig {
	p := model.DefaultParams()
	return ChoiceConfig{Scale: p.Scale, Discount: p.Discount}
}

// Params assembles the immutable parameters of a solve.
func (c Config) Params() model.Params {
	return model.Params{
		Horizon:         c.Model.Horizon,
		Fleet:           c.Model.FleetSize,
		Capacity:        c.Model.Capacity,
		StepMinutes:     c.Model.StepMinutes,
		FlatFare:        c.Model.FlatFare,
		DistanceFare:    c.Model.DistanceFare,
		ServiceConstant: c.Model.ServiceConstant,
		Scale:           c.Choice.Scale,
		Discount:        c.Choice.Discount,
	}
}

// SolverConfig selects the dynamic-programming algorithm.
type SolverConfig struct {
	// Algorithm is backward_induction, policy_iteration or value_iteration.
	Algorithm     string  `json:"algorithm"`
	Gamma         float64 `json:"gamma"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"max_iterations"`
	InitialValue  float64 `json:"initial_value"`
	// Conf is passed to the algorithm's constructor.
	Conf map[string]any `json:"conf"`
}

func DefaultSolver() SolverConfig {
	return SolverConfig{
		Algorithm:     solver.BackwardInduction,
		Gamma:         1,
		Tolerance:     1e-9,
		MaxIterations: 1000,
	}
}

// Module returns the registry entry for the configured algorithm.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Algorithm, Conf: c.Conf}
}

func (c SolverConfig) Validate() error {
	switch {
	case !solver.Known(c.Algorithm):
		return fmt.Errorf("unknown algorithm %q, want one of %v", c.Algorithm, solver.Algorithms())
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("gamma %g outside [0, 1]", c.Gamma)
	case c.Tolerance < 0:
		return fmt.Errorf("negative tolerance")
	case c.MaxIterations < 0:
		return fmt.Errorf("negative max_iterations")
	}
	return nil
}
