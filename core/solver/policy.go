package solver

import (
	"context"
	"fmt"

	"github.com/kilianp07/drtmdp/core/model"
)

// PolicyIterationSolver alternates Gauss-Seidel evaluation of the current
// policy with greedy improvement until the policy is stable.
type PolicyIterationSolver struct {
	// TieTolerance is the margin a challenger must beat the incumbent action
	// by before the policy changes.
	TieTolerance float64 `json:"tie_tolerance"`
}

// NewPolicyIteration returns a policy iteration solver with default margins.
func NewPolicyIteration() *PolicyIterationSolver {
	return &PolicyIterationSolver{TieTolerance: 1e-9}
}

func (s *PolicyIterationSolver) Solve(ctx context.Context, p *Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := p.States.Len()
	V := p.initial()
	policy := make(model.Policy, n)
	for id := range policy {
		policy[id] = model.NoAction
		if acts := p.Actions.ByState(id); len(acts) > 0 {
			policy[id] = acts[0]
		}
	}
	limit := p.maxIterations()
	for it := 1; ; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.evaluate(ctx, p, policy, V); err != nil {
			return nil, err
		}
		stable := true
		for id := n - 1; id >= 0; id-- {
			if policy[id] == model.NoAction {
				continue
			}
			a, q := p.best(id, V)
			incumbent := p.Q(policy[id], V)
			if a != policy[id] && q.Better(incumbent) && q.Delta(incumbent) > s.TieTolerance {
				policy[id] = a
				stable = false
			}
		}
		p.progress(it)
		if stable {
			return &Result{Policy: policy, Values: V, Iterations: it}, nil
		}
		if it >= limit {
			return nil, fmt.Errorf("policy iteration after %d improvements: %w", it, model.ErrNotConverged)
		}
	}
}

// evaluate updates V in place until the largest change of a sweep is below
// the tolerance. States are swept from the last epoch backwards so that a
// policy on the finite horizon settles in very few sweeps.
func (s *PolicyIterationSolver) evaluate(ctx context.Context, p *Problem, policy model.Policy, V []model.Value) error {
	for sweep := 1; ; sweep++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		delta := 0.0
		for id := len(V) - 1; id >= 0; id-- {
			if policy[id] == model.NoAction {
				continue
			}
			v := p.Q(policy[id], V)
			delta = max(delta, v.Delta(V[id]))
			V[id] = v
		}
		if delta < p.tolerance() {
			return nil
		}
		if sweep >= p.maxIterations() {
			return fmt.Errorf("policy evaluation after %d sweeps: %w", sweep, model.ErrNotConverged)
		}
	}
}
