// Package fixture provides small hand-checked instances shared by tests.
package fixture

import "github.com/kilianp07/drtmdp/core/model"

// Instance is a complete problem definition.
type Instance struct {
	model.Instance
	Params model.Params
}

// riderNetwork is the demand-side network: the rider stays at home on link 1,
// travels on link 3 or sits at the destination on link 2.
func riderNetwork() []model.Link {
	return []model.Link{
		{ID: 1, Origin: 1, Destination: 1},
		{ID: 2, Origin: 2, Destination: 2},
		{ID: 3, Origin: 1, Destination: 2, Fare: 10},
	}
}

// WorkedExample has one vehicle, one demand, two parallel self-loop service
// links and a horizon of two epochs. It yields 6 states and 4 actions.
func WorkedExample() Instance {
	p := model.DefaultParams()
	p.Horizon = 2
	return Instance{
		Params: p,
		Instance: model.Instance{
			Service: []model.Link{
				{ID: 10, Origin: 1, Destination: 1, Cost: 1},
				{ID: 20, Origin: 1, Destination: 1, Cost: 2},
			},
			Rider: riderNetwork(),
			Demands: []model.Demand{{
				ID: 1, Origin: 1, Destination: 2,
				ServiceOrigin: 10, ServiceDestination: 20,
				BookingTime: 2, Deadline: 4, RouteExponent: 1,
				BetaTime: -0.1, BetaFare: -0.01, BetaExperience: 0.5,
			}},
		},
	}
}

// Corridor has two nodes joined by a link in each direction with an idle
// loop at both ends. The single demand is picked up at node 1 and dropped at
// node 2; its bid arrives at t=0.
func Corridor() Instance {
	p := model.DefaultParams()
	p.Horizon = 4
	return Instance{
		Params: p,
		Instance: model.Instance{
			Service: []model.Link{
				{ID: 10, Origin: 1, Destination: 1, Cost: 1},
				{ID: 12, Origin: 1, Destination: 2, Cost: 2},
				{ID: 20, Origin: 2, Destination: 2, Cost: 1},
				{ID: 21, Origin: 2, Destination: 1, Cost: 2},
			},
			Rider: riderNetwork(),
			Demands: []model.Demand{{
				ID: 1, Origin: 1, Destination: 2,
				ServiceOrigin: 10, ServiceDestination: 20,
				BookingTime: 1, Deadline: 3, RouteExponent: 1,
				BetaTime: -0.1, BetaFare: -0.01, BetaExperience: 0.5,
			}},
		},
	}
}

// TwoVehicles is Corridor served by a fleet of two.
func TwoVehicles() Instance {
	in := Corridor()
	in.Params.Fleet = 2
	in.Params.Horizon = 3
	return in
}

// DeadEnd is Corridor with a link 23 into node 3, which has no way out. The
// demand books after the horizon so no bid ever arrives.
func DeadEnd() Instance {
	in := Corridor()
	in.Service = append(in.Service, model.Link{ID: 23, Origin: 2, Destination: 3, Cost: 1})
	in.Demands[0].BookingTime = 5
	in.Demands[0].Deadline = 6
	return in
}
