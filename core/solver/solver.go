// Package solver computes an optimal dispatch policy over the enumerated
// state and action spaces. Three dynamic-programming algorithms share the same
// Bellman backup and are selected by name through a registry.
package solver

import (
	"context"
	"fmt"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/factory"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/core/transition"
)

// Algorithm names accepted by New.
const (
	BackwardInduction = "backward_induction"
	PolicyIteration   = "policy_iteration"
	ValueIteration    = "value_iteration"
)

// Problem is everything a solver reads. It is not modified by Solve.
type Problem struct {
	States      *statespace.Space
	Actions     *actionspace.Space
	Transitions *transition.Matrix
	// Gamma discounts the expected value of the successors.
	Gamma float64
	// Tolerance stops the iterative algorithms once the largest value change
	// of a sweep falls below it.
	Tolerance     float64
	MaxIterations int
	// InitialValue seeds the non-terminal values of the iterative algorithms.
	InitialValue float64
	Workers      int
	// Progress, when set, is called after every timestep or sweep.
	Progress func(step int)
}

// Result is the solved policy with its value per state.
type Result struct {
	Policy     model.Policy
	Values     []model.Value
	Iterations int
}

// Solver computes a policy for a problem.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Result, error)
}

var registry = factory.NewRegistry[Solver]()

func init() {
	_ = registry.Register(BackwardInduction, func(map[string]any) (Solver, error) {
		return NewBackwardInduction(), nil
	})
	_ = registry.Register(PolicyIteration, func(conf map[string]any) (Solver, error) {
		s := NewPolicyIteration()
		if err := factory.Decode(conf, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = registry.Register(ValueIteration, func(map[string]any) (Solver, error) {
		return NewValueIteration(), nil
	})
}

// New builds the solver registered under cfg.Type.
func New(cfg factory.ModuleConfig) (Solver, error) {
	return registry.Create(cfg)
}

// Algorithms lists the registered algorithm names.
func Algorithms() []string { return registry.Names() }

// Known reports whether name is a registered algorithm.
func Known(name string) bool { return registry.Has(name) }

const defaultMaxIterations = 1000

func (p *Problem) maxIterations() int {
	if p.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return p.MaxIterations
}

func (p *Problem) tolerance() float64 {
	if p.Tolerance <= 0 {
		return 1e-9
	}
	return p.Tolerance
}

func (p *Problem) progress(step int) {
	if p.Progress != nil {
		p.Progress(step)
	}
}

func (p *Problem) validate() error {
	if p.States == nil || p.Actions == nil || p.Transitions == nil {
		return fmt.Errorf("%w: incomplete problem", model.ErrMalformedInput)
	}
	if p.Transitions.Len() != p.Actions.Len() {
		return &model.MismatchError{What: "transition rows", Got: p.Transitions.Len(), Want: p.Actions.Len()}
	}
	return nil
}

// terminalValue is zero for a feasible terminal state.
func terminalValue(st *model.State) model.Value {
	if st.Feasible {
		return model.Feasible(0)
	}
	return model.Infeasible
}

// Q is the Bellman backup of action a under V. An infeasible reward or any
// reachable infeasible successor makes the whole backup infeasible, whatever
// the discount.
func (p *Problem) Q(a int, V []model.Value) model.Value {
	r := p.Actions.Action(a).Reward
	if !r.IsFeasible() {
		return model.Infeasible
	}
	sum := 0.0
	for _, e := range p.Transitions.Row(a) {
		v := V[e.State]
		if !v.IsFeasible() {
			return model.Infeasible
		}
		sum += e.P * v.Float()
	}
	return r.Add(model.Feasible(p.Gamma * sum))
}

// best returns the first action with the highest backup. A state without a
// feasible action falls back to its first action. A state before the horizon
// with no action at all is a dead end and infeasible.
func (p *Problem) best(s int, V []model.Value) (int, model.Value) {
	acts := p.Actions.ByState(s)
	if len(acts) == 0 {
		return model.NoAction, p.stuck(s)
	}
	arg, val := acts[0], p.Q(acts[0], V)
	for _, a := range acts[1:] {
		if q := p.Q(a, V); q.Better(val) {
			arg, val = a, q
		}
	}
	return arg, val
}

// stuck is the value of a state that has no action.
func (p *Problem) stuck(s int) model.Value {
	if p.States.Terminal(s) {
		return terminalValue(p.States.State(s))
	}
	return model.Infeasible
}

// initial seeds V with InitialValue, the terminal values and the dead ends.
func (p *Problem) initial() []model.Value {
	V := make([]model.Value, p.States.Len())
	for id := range V {
		if p.States.Terminal(id) || len(p.Actions.ByState(id)) == 0 {
			V[id] = p.stuck(id)
		} else {
			V[id] = model.Feasible(p.InitialValue)
		}
	}
	return V
}

// Expected is the value of the initial distribution under V.
func Expected(init []transition.Entry, V []model.Value) model.Value {
	sum := 0.0
	for _, e := range init {
		if !V[e.State].IsFeasible() {
			return model.Infeasible
		}
		sum += e.P * V[e.State].Float()
	}
	return model.Feasible(sum)
}
