package solver

import (
	"context"
	"fmt"

	"github.com/kilianp07/drtmdp/core/model"
)

type valueIteration struct{}

// NewValueIteration sweeps the Bellman optimality update until the values
// settle, then extracts the greedy policy.
func NewValueIteration() Solver { return valueIteration{} }

func (valueIteration) Solve(ctx context.Context, p *Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	V := p.initial()
	limit := p.maxIterations()
	it := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it++
		delta := 0.0
		for id := len(V) - 1; id >= 0; id-- {
			if p.States.Terminal(id) {
				continue
			}
			_, q := p.best(id, V)
			delta = max(delta, q.Delta(V[id]))
			V[id] = q
		}
		p.progress(it)
		if delta < p.tolerance() {
			break
		}
		if it >= limit {
			return nil, fmt.Errorf("value iteration after %d sweeps: %w", it, model.ErrNotConverged)
		}
	}
	policy := make(model.Policy, len(V))
	for id := range policy {
		policy[id], _ = p.best(id, V)
	}
	return &Result{Policy: policy, Values: V, Iterations: it}, nil
}
