// Package statespace enumerates every fleet configuration per timestep.
//
// At time t the configuration of one demand k is a single status digit whose
// base depends on the booking time tb of k:
//
//	t <= tb-2   base 1     nobody knows about the demand
//	t == tb-1   base 2     0 no bid, 1 bid pending on every vehicle
//	t == tb     base V+1   0 rejected or never bid, d reserved on vehicle d-1
//	t >  tb     base 2V+1  as above, plus V+d boarded on vehicle d-1
//
// Each vehicle then contributes one position digit with base L, the number of
// service links. Status digits are more significant than position digits and
// demand 0 and vehicle 0 come first.
package statespace

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/radix"
)

// StatusBase returns the number of status digits demand k can take at t.
func StatusBase(t, bookingTime, fleet int) int {
	switch {
	case t <= bookingTime-2:
		return 1
	case t == bookingTime-1:
		return 2
	case t == bookingTime:
		return fleet + 1
	default:
		return 2*fleet + 1
	}
}

// Count is the closed-form number of states for the instance.
func Count(p model.Params, demands []model.Demand, links int) (int, error) {
	positions := 1
	for v := 0; v < p.Fleet; v++ {
		if links > 0 && positions > math.MaxInt/links {
			return 0, radix.ErrOverflow
		}
		positions *= links
	}
	total := 0
	for t := 0; t < p.Horizon; t++ {
		n := positions
		for _, d := range demands {
			b := StatusBase(t, d.BookingTime, p.Fleet)
			if n > math.MaxInt/b {
				return 0, radix.ErrOverflow
			}
			n *= b
		}
		if total > math.MaxInt-n {
			return 0, radix.ErrOverflow
		}
		total += n
	}
	return total, nil
}

// Space is the enumerated state table. It is read-only once built.
type Space struct {
	params  model.Params
	demands []model.Demand
	links   int
	states  []model.State
	offsets []int
	codecs  []radix.Radix
}

// Build enumerates all states of the instance, one goroutine per timestep,
// and marks the states that break the capacity limit as infeasible.
func Build(ctx context.Context, p model.Params, demands []model.Demand, links, workers int) (*Space, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if links < 1 {
		return nil, fmt.Errorf("service network has no links")
	}
	want, err := Count(p, demands, links)
	if err != nil {
		return nil, err
	}
	s := &Space{
		params:  p,
		demands: demands,
		links:   links,
		offsets: make([]int, p.Horizon+1),
		codecs:  make([]radix.Radix, p.Horizon),
	}
	for t := 0; t < p.Horizon; t++ {
		c, err := radix.New(s.bases(t)...)
		if err != nil {
			return nil, err
		}
		s.codecs[t] = c
	}

	perStep := make([][]model.State, p.Horizon)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for t := 0; t < p.Horizon; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			states, err := s.enumerate(t)
			if err != nil {
				return err
			}
			perStep[t] = states
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	got := 0
	for t, states := range perStep {
		s.offsets[t] = got
		got += len(states)
	}
	s.offsets[p.Horizon] = got
	if got != want {
		return nil, &model.MismatchError{What: "states", Got: got, Want: want}
	}
	s.states = make([]model.State, 0, got)
	for _, states := range perStep {
		for _, st := range states {
			st.ID = len(s.states)
			st.Feasible = s.withinCapacity(&st)
			s.states = append(s.states, st)
		}
	}
	return s, nil
}

func (s *Space) bases(t int) []int {
	b := make([]int, 0, len(s.demands)+s.params.Fleet)
	for _, d := range s.demands {
		b = append(b, StatusBase(t, d.BookingTime, s.params.Fleet))
	}
	for v := 0; v < s.params.Fleet; v++ {
		b = append(b, s.links)
	}
	return b
}

func (s *Space) enumerate(t int) ([]model.State, error) {
	codec := s.codecs[t]
	K, V := len(s.demands), s.params.Fleet
	out := make([]model.State, 0, codec.Size())
	digits := make([]int, codec.Len())
	for i := 0; i < codec.Size(); i++ {
		var err error
		if digits, err = codec.Decode(i, digits); err != nil {
			return nil, err
		}
		st := model.State{T: t, Vehicles: make([]model.VehicleState, V)}
		for v := range st.Vehicles {
			st.Vehicles[v] = model.VehicleState{Link: digits[K+v], Status: make([]model.Status, K)}
		}
		for k, d := range s.demands {
			statusDecoder(t, d.BookingTime, V, digits[k], st.Vehicles, k)
		}
		// the decoded state must encode back to its own index
		idx, err := s.index(t, st.Vehicles)
		if err != nil {
			return nil, fmt.Errorf("t=%d index %d: %v: %w", t, i, err, model.ErrCombinatorialMismatch)
		}
		if idx != i {
			return nil, &model.MismatchError{What: fmt.Sprintf("state index at t=%d", t), Got: idx, Want: i}
		}
		out = append(out, st)
	}
	return out, nil
}

// statusDecoder is swapped in tests.
var statusDecoder = decodeStatus

func decodeStatus(t, tb, fleet, digit int, vehicles []model.VehicleState, k int) {
	switch {
	case digit == 0:
	case t == tb-1:
		for v := range vehicles {
			vehicles[v].Status[k] = model.BidPending
		}
	case digit <= fleet:
		vehicles[digit-1].Status[k] = model.Reserved
	default:
		vehicles[digit-fleet-1].Status[k] = model.Boarded
	}
}

func encodeStatus(t, tb, fleet int, vehicles []model.VehicleState, k int) (int, error) {
	holder, holderStatus, pending := -1, model.NoBid, 0
	for v, vs := range vehicles {
		switch st := vs.Status[k]; st {
		case model.NoBid:
		case model.BidPending:
			pending++
		default:
			if holder >= 0 {
				return 0, fmt.Errorf("demand %d held by vehicles %d and %d", k, holder, v)
			}
			holder, holderStatus = v, st
		}
	}
	switch {
	case pending > 0:
		if t != tb-1 || pending != fleet || holder >= 0 {
			return 0, fmt.Errorf("demand %d: bid pending outside t=tb-1 or on a subset of vehicles", k)
		}
		return 1, nil
	case holder < 0:
		return 0, nil
	case t < tb:
		return 0, fmt.Errorf("demand %d: %s before booking time", k, holderStatus)
	case holderStatus == model.Reserved:
		return holder + 1, nil
	case t > tb:
		return fleet + holder + 1, nil
	default:
		return 0, fmt.Errorf("demand %d: boarded at booking time", k)
	}
}

func (s *Space) withinCapacity(st *model.State) bool {
	for _, v := range st.Vehicles {
		if v.Onboard() > s.params.Capacity {
			return false
		}
	}
	return true
}

// Lookup returns the id of the state at t with the given vehicles.
func (s *Space) Lookup(t int, vehicles []model.VehicleState) (int, error) {
	if t < 0 || t >= s.params.Horizon {
		return 0, fmt.Errorf("time %d outside horizon", t)
	}
	if len(vehicles) != s.params.Fleet {
		return 0, fmt.Errorf("got %d vehicles, want %d", len(vehicles), s.params.Fleet)
	}
	idx, err := s.index(t, vehicles)
	if err != nil {
		return 0, err
	}
	return s.offsets[t] + idx, nil
}

// index encodes vehicles into their position within timestep t.
func (s *Space) index(t int, vehicles []model.VehicleState) (int, error) {
	K := len(s.demands)
	digits := make([]int, K+s.params.Fleet)
	for k, d := range s.demands {
		dg, err := encodeStatus(t, d.BookingTime, s.params.Fleet, vehicles, k)
		if err != nil {
			return 0, err
		}
		digits[k] = dg
	}
	for v, vs := range vehicles {
		digits[K+v] = vs.Link
	}
	return s.codecs[t].Encode(digits)
}

// Params returns the parameters the space was built with.
func (s *Space) Params() model.Params { return s.params }

// Demands returns the demand catalogue.
func (s *Space) Demands() []model.Demand { return s.demands }

// Links returns the number of service links.
func (s *Space) Links() int { return s.links }

// Len returns the number of states.
func (s *Space) Len() int { return len(s.states) }

// States returns all states ordered by id.
func (s *Space) States() []model.State { return s.states }

// State returns the state with the given id.
func (s *Space) State(id int) *model.State { return &s.states[id] }

// At returns the states of timestep t.
func (s *Space) At(t int) []model.State { return s.states[s.offsets[t]:s.offsets[t+1]] }

// Terminal reports whether the state sits on the last timestep.
func (s *Space) Terminal(id int) bool { return s.states[id].T == s.params.Tmax() }

// Infeasible counts the states that break the capacity limit.
func (s *Space) Infeasible() int {
	n := 0
	for i := range s.states {
		if !s.states[i].Feasible {
			n++
		}
	}
	return n
}
