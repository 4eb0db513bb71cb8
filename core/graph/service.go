package graph

import (
	"errors"
	"fmt"

	"github.com/kilianp07/drtmdp/core/model"
)

// Service binds the demand catalogue to the vehicle network: for every demand
// it resolves the pick-up and drop-off links and the trip length between them.
type Service struct {
	*Oracle
	Demands []model.Demand
	Pickup  []int
	Dropoff []int
	Trip    []int
}

// NewService resolves the service-side links of every demand. A demand whose
// drop-off cannot be reached from its pick-up is rejected.
func NewService(g *Graph, demands []model.Demand) (*Service, error) {
	s := &Service{
		Oracle:  NewOracle(g),
		Demands: demands,
		Pickup:  make([]int, len(demands)),
		Dropoff: make([]int, len(demands)),
		Trip:    make([]int, len(demands)),
	}
	for k, d := range demands {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		o, err := g.Index(d.ServiceOrigin)
		if err != nil {
			return nil, fmt.Errorf("demand %d pick-up: %w", d.ID, err)
		}
		dst, err := g.Index(d.ServiceDestination)
		if err != nil {
			return nil, fmt.Errorf("demand %d drop-off: %w", d.ID, err)
		}
		trip, err := s.DistanceIndex(o, dst)
		if err != nil {
			return nil, fmt.Errorf("demand %d trip: %w", d.ID, err)
		}
		s.Pickup[k], s.Dropoff[k], s.Trip[k] = o, dst, trip
	}
	return s, nil
}

// Reach is DistanceIndex with unreachable pairs reported as ok == false
// instead of an error.
func (s *Service) Reach(from, to int) (int, bool, error) {
	d, err := s.DistanceIndex(from, to)
	if errors.Is(err, model.ErrGraphUnreachable) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}
