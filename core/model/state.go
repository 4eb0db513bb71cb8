package model

import (
	"strconv"
	"strings"
)

// Status is the progress of one demand as seen by one vehicle.
type Status uint8

const (
	NoBid Status = iota
	BidPending
	Reserved
	Boarded
)

func (s Status) String() string {
	switch s {
	case NoBid:
		return "no_bid"
	case BidPending:
		return "bid_pending"
	case Reserved:
		return "reserved"
	case Boarded:
		return "boarded"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// VehicleState is a vehicle's current service link (an index into the
// service network) and its status for every demand.
type VehicleState struct {
	Link   int
	Status []Status
}

// Onboard counts the demands currently boarded on the vehicle.
func (v VehicleState) Onboard() int {
	n := 0
	for _, s := range v.Status {
		if s == Boarded {
			n++
		}
	}
	return n
}

// State is one configuration of the fleet at time T.
type State struct {
	ID       int
	T        int
	Vehicles []VehicleState
	Feasible bool
}

// Status returns the status of demand k held by vehicle v.
func (s *State) Status(v, k int) Status { return s.Vehicles[v].Status[k] }

// Pending reports whether demand k is waiting for an accept or reject
// decision. Pending demands share the status across all vehicles.
func (s *State) Pending(k int) bool {
	return len(s.Vehicles) > 0 && s.Vehicles[0].Status[k] == BidPending
}

// Untouched reports whether no vehicle has any involvement with demand k.
func (s *State) Untouched(k int) bool {
	for _, v := range s.Vehicles {
		if v.Status[k] != NoBid {
			return false
		}
	}
	return true
}

func (s *State) String() string {
	var b strings.Builder
	b.WriteString("t=")
	b.WriteString(strconv.Itoa(s.T))
	for i, v := range s.Vehicles {
		b.WriteString(" v")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("@")
		b.WriteString(strconv.Itoa(v.Link))
		b.WriteString("[")
		for k, st := range v.Status {
			if k > 0 {
				b.WriteString(",")
			}
			b.WriteString(strconv.Itoa(int(st)))
		}
		b.WriteString("]")
	}
	return b.String()
}

// NoVehicle marks a pending demand that the action rejects.
const NoVehicle = -1

// Action moves every vehicle onto a next link and settles the pending bids.
type Action struct {
	ID    int
	State int
	// NextLinks holds one service link index per vehicle.
	NextLinks []int
	// Accept holds, per demand, the accepting vehicle or NoVehicle.
	Accept []int
	Reward Value
}

// Accepts reports whether vehicle v takes demand k.
func (a *Action) Accepts(v, k int) bool { return a.Accept[k] == v }

// NoAction is the policy entry of a terminal state.
const NoAction = -1

// Policy maps a state id to the chosen action id.
type Policy []int
