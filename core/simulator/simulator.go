// Package simulator estimates the revenue distribution of a solved policy by
// Monte Carlo rollout over the transition matrix.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/core/transition"
)

// Config controls a simulation run.
type Config struct {
	// Seed and the trial number seed the random stream of each trial, so a
	// run is reproducible whatever the number of workers.
	Seed    uint64
	Trace   bool
	Workers int
}

// Step is one decision epoch of a trial.
type Step struct {
	T      int
	State  int
	Action int
	Reward float64
}

// Trial is the outcome of one rollout.
type Trial struct {
	Number  int
	Revenue float64
	// Feasible is false once the policy had to take an infeasible action or
	// the fleet reached a dead end before the horizon.
	Feasible bool
	Trace    []Step
}

// Simulator replays a policy.
type Simulator struct {
	states  *statespace.Space
	actions *actionspace.Space
	matrix  *transition.Matrix
	policy  model.Policy
	init    []transition.Entry
	initCDF []float64
	cfg     Config
}

// New checks the inputs and precomputes the initial-state distribution.
func New(states *statespace.Space, actions *actionspace.Space, m *transition.Matrix, init []transition.Entry, policy model.Policy, cfg Config) (*Simulator, error) {
	if len(policy) != states.Len() {
		return nil, &model.MismatchError{What: "policy entries", Got: len(policy), Want: states.Len()}
	}
	if len(init) == 0 {
		return nil, fmt.Errorf("%w: empty initial distribution", model.ErrMalformedInput)
	}
	s := &Simulator{states: states, actions: actions, matrix: m, policy: policy, init: init, cfg: cfg}
	s.initCDF = cdf(nil, init)
	return s, nil
}

// Run plays trials rollouts in parallel. Trials are numbered from 1.
func (s *Simulator) Run(ctx context.Context, trials int) ([]Trial, error) {
	out := make([]Trial, trials)
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	const chunk = 256
	for lo := 0; lo < trials; lo += chunk {
		hi := min(lo+chunk, trials)
		g.Go(func() error {
			var buf []float64
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				tr, err := s.trial(i+1, &buf)
				if err != nil {
					return fmt.Errorf("trial %d: %w", i+1, err)
				}
				out[i] = tr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Simulator) trial(number int, buf *[]float64) (Trial, error) {
	rng := rand.New(rand.NewPCG(s.cfg.Seed, uint64(number)))
	tr := Trial{Number: number, Feasible: true}
	state := s.init[draw(s.initCDF, rng)].State
	tmax := s.states.Params().Tmax()
	for t := 0; t < tmax; t++ {
		a := s.policy[state]
		if a == model.NoAction {
			// dead end: the vehicle has nowhere to go before the horizon
			tr.Feasible = false
			if s.cfg.Trace {
				tr.Trace = append(tr.Trace, Step{T: t, State: state, Action: model.NoAction})
			}
			return tr, nil
		}
		act := s.actions.Action(a)
		step := Step{T: t, State: state, Action: a}
		if act.Reward.IsFeasible() {
			step.Reward = act.Reward.Float()
			tr.Revenue += step.Reward
		} else {
			tr.Feasible = false
		}
		if s.cfg.Trace {
			tr.Trace = append(tr.Trace, step)
		}
		row := s.matrix.Row(a)
		if len(row) == 0 {
			return tr, fmt.Errorf("action %d has no successor", a)
		}
		*buf = cdf((*buf)[:0], row)
		state = row[draw(*buf, rng)].State
	}
	if s.cfg.Trace {
		tr.Trace = append(tr.Trace, Step{T: tmax, State: state, Action: model.NoAction})
	}
	if !s.states.State(state).Feasible {
		tr.Feasible = false
	}
	return tr, nil
}

func cdf(dst []float64, entries []transition.Entry) []float64 {
	for _, e := range entries {
		dst = append(dst, e.P)
	}
	return floats.CumSum(dst, dst)
}

// draw inverts the cumulative distribution. Rows that sum slightly below one
// are renormalised by scaling the draw.
func draw(c []float64, rng *rand.Rand) int {
	u := rng.Float64() * c[len(c)-1]
	i := sort.SearchFloat64s(c, u)
	for i < len(c)-1 && c[i] == u {
		i++
	}
	return min(i, len(c)-1)
}
