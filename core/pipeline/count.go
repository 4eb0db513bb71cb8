package pipeline

import (
	"context"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/statespace"
)

// Counts is the size of a problem.
type Counts struct {
	States     int `json:"states"`
	Infeasible int `json:"infeasible_states"`
	Actions    int `json:"actions"`
}

// Count sizes the problem without building actions or transitions. The state
// total comes from the closed form; the action total needs the enumerated
// states.
func Count(ctx context.Context, in *model.Instance, p model.Params, workers int) (Counts, error) {
	if err := p.Validate(); err != nil {
		return Counts{}, err
	}
	sg, err := graph.New(in.Service)
	if err != nil {
		return Counts{}, err
	}
	svc, err := graph.NewService(sg, in.Demands)
	if err != nil {
		return Counts{}, err
	}
	n, err := statespace.Count(p, in.Demands, sg.Len())
	if err != nil {
		return Counts{}, err
	}
	states, err := statespace.Build(ctx, p, in.Demands, sg.Len(), workers)
	if err != nil {
		return Counts{}, err
	}
	actions, err := actionspace.Count(states, svc)
	if err != nil {
		return Counts{}, err
	}
	return Counts{States: n, Infeasible: states.Infeasible(), Actions: actions}, nil
}
