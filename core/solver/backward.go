package solver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/drtmdp/core/model"
)

type backwardInduction struct{}

// NewBackwardInduction solves the finite-horizon problem exactly in one
// pass from the last decision epoch down to t=0.
func NewBackwardInduction() Solver { return backwardInduction{} }

func (backwardInduction) Solve(ctx context.Context, p *Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := p.States.Len()
	res := &Result{Policy: make(model.Policy, n), Values: make([]model.Value, n)}
	tmax := p.States.Params().Tmax()
	for _, st := range p.States.At(tmax) {
		res.Policy[st.ID] = model.NoAction
		res.Values[st.ID] = terminalValue(&st)
	}
	for t := tmax - 1; t >= 0; t-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer := p.States.At(t)
		g := new(errgroup.Group)
		if p.Workers > 0 {
			g.SetLimit(p.Workers)
		}
		const chunk = 512
		for lo := 0; lo < len(layer); lo += chunk {
			hi := min(lo+chunk, len(layer))
			g.Go(func() error {
				for _, st := range layer[lo:hi] {
					res.Policy[st.ID], res.Values[st.ID] = p.best(st.ID, res.Values)
				}
				return nil
			})
		}
		_ = g.Wait()
		res.Iterations++
		p.progress(tmax - t)
	}
	return res, nil
}
