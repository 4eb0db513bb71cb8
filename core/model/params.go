package model

import "fmt"

// Params is the immutable configuration of one solve. It is passed by value
// through every stage so that several configurations can coexist.
type Params struct {
	// Horizon is the number of decision epochs; states exist for
	// t = 0 .. Horizon-1.
	Horizon  int `json:"horizon"`
	Fleet    int `json:"fleet_size"`
	Capacity int `json:"capacity"`
	// StepMinutes is the duration of one epoch used by the choice model.
	StepMinutes     float64 `json:"step_minutes"`
	FlatFare        float64 `json:"flat_fare"`
	DistanceFare    float64 `json:"distance_fare"`
	ServiceConstant float64 `json:"service_constant"`
	// Scale and Discount are the recursive-logit mu and beta.
	Scale    float64 `json:"scale"`
	Discount float64 `json:"discount"`
}

// DefaultParams returns the settings of the nine-epoch benchmark instance.
func DefaultParams() Params {
	return Params{
		Horizon:         9,
		Fleet:           1,
		Capacity:        1,
		StepMinutes:     5,
		FlatFare:        100,
		DistanceFare:    50,
		ServiceConstant: 1.5,
		Scale:           1,
		Discount:        1,
	}
}

// Tmax is the terminal timestep.
func (p Params) Tmax() int { return p.Horizon - 1 }

// Validate checks that the parameters describe a solvable instance.
func (p Params) Validate() error {
	switch {
	case p.Horizon < 1:
		return fmt.Errorf("horizon must be positive, got %d", p.Horizon)
	case p.Fleet < 1:
		return fmt.Errorf("fleet size must be positive, got %d", p.Fleet)
	case p.Capacity < 0:
		return fmt.Errorf("capacity must not be negative, got %d", p.Capacity)
	case p.Scale <= 0:
		return fmt.Errorf("choice scale must be positive, got %g", p.Scale)
	}
	return nil
}
