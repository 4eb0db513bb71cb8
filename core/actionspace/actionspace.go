// Package actionspace enumerates the decisions available in every
// non-terminal state and prices them.
//
// An action picks one successor link per vehicle and, for every demand with a
// pending bid, either rejects it or assigns it to exactly one vehicle. Vehicle
// digits are the most significant, followed by one digit per demand with base
// V+1 when the bid is pending and base 1 otherwise.
package actionspace

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/radix"
	"github.com/kilianp07/drtmdp/core/statespace"
)

// Space is the action table grouped by originating state.
type Space struct {
	actions []model.Action
	byState [][]int
}

// Count is the closed-form number of actions over the non-terminal states.
func Count(states *statespace.Space, svc *graph.Service) (int, error) {
	total := 0
	for _, st := range states.States() {
		if states.Terminal(st.ID) {
			continue
		}
		n := 1
		for _, v := range st.Vehicles {
			n *= len(svc.Graph().Successors(v.Link))
		}
		for k := range states.Demands() {
			if st.Pending(k) {
				if n > math.MaxInt/(len(st.Vehicles)+1) {
					return 0, radix.ErrOverflow
				}
				n *= len(st.Vehicles) + 1
			}
		}
		total += n
	}
	return total, nil
}

// Build enumerates and prices the actions of every non-terminal state.
func Build(ctx context.Context, states *statespace.Space, svc *graph.Service, workers int) (*Space, error) {
	want, err := Count(states, svc)
	if err != nil {
		return nil, err
	}
	p := states.Params()
	perStep := make([][][]model.Action, p.Horizon)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for t := 0; t < p.Tmax(); t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			step := states.At(t)
			out := make([][]model.Action, len(step))
			for i := range step {
				acts, err := enumerate(&step[i], svc, p)
				if err != nil {
					return err
				}
				out[i] = acts
			}
			perStep[t] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Space{actions: make([]model.Action, 0, want), byState: make([][]int, states.Len())}
	for _, step := range perStep {
		for _, acts := range step {
			for _, a := range acts {
				a.ID = len(s.actions)
				s.byState[a.State] = append(s.byState[a.State], a.ID)
				s.actions = append(s.actions, a)
			}
		}
	}
	if len(s.actions) != want {
		return nil, &model.MismatchError{What: "actions", Got: len(s.actions), Want: want}
	}
	return s, nil
}

func enumerate(st *model.State, svc *graph.Service, p model.Params) ([]model.Action, error) {
	V, K := len(st.Vehicles), len(svc.Demands)
	bases := make([]int, 0, V+K)
	for _, v := range st.Vehicles {
		bases = append(bases, len(svc.Graph().Successors(v.Link)))
	}
	for k := 0; k < K; k++ {
		if st.Pending(k) {
			bases = append(bases, V+1)
		} else {
			bases = append(bases, 1)
		}
	}
	codec, err := radix.New(bases...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Action, 0, codec.Size())
	digits := make([]int, codec.Len())
	for i := 0; i < codec.Size(); i++ {
		if digits, err = codec.Decode(i, digits); err != nil {
			return nil, err
		}
		a := model.Action{State: st.ID, NextLinks: make([]int, V), Accept: make([]int, K)}
		for v := range st.Vehicles {
			a.NextLinks[v] = svc.Graph().Successors(st.Vehicles[v].Link)[digits[v]]
		}
		for k := 0; k < K; k++ {
			a.Accept[k] = digits[V+k] - 1
		}
		if a.Reward, err = Reward(st, &a, svc, p); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Reward prices action a in state st: fares of newly accepted demands minus
// the operating cost of the chosen links. It is Infeasible when the state is
// infeasible or a chosen link is not admissible for some demand.
func Reward(st *model.State, a *model.Action, svc *graph.Service, p model.Params) (model.Value, error) {
	if !st.Feasible {
		return model.Infeasible, nil
	}
	g := svc.Graph()
	r := 0.0
	for v, vs := range st.Vehicles {
		for k := range svc.Demands {
			ok, err := Admissible(svc, k, vs.Status[k], vs.Link, a.NextLinks[v], st.T)
			if err != nil {
				return model.Infeasible, err
			}
			if !ok {
				return model.Infeasible, nil
			}
			if a.Accepts(v, k) {
				r += p.FlatFare + p.DistanceFare*float64(svc.Trip[k])
			}
		}
		r -= g.Link(a.NextLinks[v]).Cost
	}
	return model.Feasible(r), nil
}

// Len returns the number of actions.
func (s *Space) Len() int { return len(s.actions) }

// Actions returns all actions ordered by id.
func (s *Space) Actions() []model.Action { return s.actions }

// Action returns the action with the given id.
func (s *Space) Action(id int) *model.Action { return &s.actions[id] }

// ByState returns the ids of the actions available in state id.
func (s *Space) ByState(id int) []int { return s.byState[id] }

// Feasible counts the actions with a feasible reward.
func (s *Space) Feasible() int {
	n := 0
	for i := range s.actions {
		if s.actions[i].Reward.IsFeasible() {
			n++
		}
	}
	return n
}
