// Package transition assembles the sparse next-state distribution of every
// action and the distribution of the initial state.
package transition

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/statespace"
)

// BidSource gives the probability that demand k bids when the fleet reaches
// the given service links at time t.
type BidSource interface {
	Bid(k, t int, positions []int) (float64, error)
}

// Entry is one non-zero transition probability.
type Entry struct {
	State int
	P     float64
}

// Deviation records a row whose probabilities do not sum to one.
type Deviation struct {
	Action int
	Sum    float64
}

// Options tune Build.
type Options struct {
	Workers int
	// RowTolerance is the largest accepted |sum-1| before a row is reported.
	RowTolerance float64
	// ChunkSize is the number of actions handled by one goroutine.
	ChunkSize int
}

// Matrix holds one sparse row per action.
type Matrix struct {
	rows       [][]Entry
	deviations []Deviation
}

// Row returns the successors of action a.
func (m *Matrix) Row(a int) []Entry { return m.rows[a] }

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.rows) }

// NonZero counts the stored entries.
func (m *Matrix) NonZero() int {
	n := 0
	for _, r := range m.rows {
		n += len(r)
	}
	return n
}

// Deviations lists the rows that failed the row-sum check.
func (m *Matrix) Deviations() []Deviation { return m.deviations }

// Build derives the successor distribution of every action. Rows are
// generated from the deterministic vehicle moves and the independent bid
// outcome of each untouched demand.
func Build(ctx context.Context, states *statespace.Space, actions *actionspace.Space, svc *graph.Service, bids BidSource, opts Options) (*Matrix, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 256
	}
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = 1e-6
	}
	m := &Matrix{rows: make([][]Entry, actions.Len())}
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for lo := 0; lo < actions.Len(); lo += opts.ChunkSize {
		hi := min(lo+opts.ChunkSize, actions.Len())
		g.Go(func() error {
			gen := generator{states: states, svc: svc, bids: bids}
			for a := lo; a < hi; a++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				row, err := gen.row(actions.Action(a))
				if err != nil {
					return fmt.Errorf("action %d: %w", a, err)
				}
				m.rows[a] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for a, row := range m.rows {
		sum := 0.0
		for _, e := range row {
			sum += e.P
		}
		if math.Abs(sum-1) > opts.RowTolerance {
			m.deviations = append(m.deviations, Deviation{Action: a, Sum: sum})
		}
	}
	return m, nil
}

type outcome struct {
	status []model.Status
	p      float64
}

type generator struct {
	states *statespace.Space
	svc    *graph.Service
	bids   BidSource
}

func (g generator) row(a *model.Action) ([]Entry, error) {
	st := g.states.State(a.State)
	V, K := len(st.Vehicles), len(g.svc.Demands)
	perDemand := make([][]outcome, K)
	for k := 0; k < K; k++ {
		outs, err := g.outcomes(st, a, k)
		if err != nil {
			return nil, err
		}
		perDemand[k] = outs
	}

	next := make([]model.VehicleState, V)
	for v := range next {
		next[v] = model.VehicleState{Link: a.NextLinks[v], Status: make([]model.Status, K)}
	}
	var row []Entry
	pick := make([]int, K)
	for {
		p := 1.0
		for k, i := range pick {
			o := perDemand[k][i]
			p *= o.p
			for v := range next {
				next[v].Status[k] = o.status[v]
			}
		}
		if p > 0 {
			id, err := g.states.Lookup(st.T+1, next)
			if err != nil {
				return nil, err
			}
			row = append(row, Entry{State: id, P: p})
		}
		k := K - 1
		for ; k >= 0; k-- {
			pick[k]++
			if pick[k] < len(perDemand[k]) {
				break
			}
			pick[k] = 0
		}
		if k < 0 {
			return row, nil
		}
	}
}

// outcomes lists the possible statuses of demand k after action a.
func (g generator) outcomes(st *model.State, a *model.Action, k int) ([]outcome, error) {
	V := len(st.Vehicles)
	uniform := func(s model.Status, p float64) outcome {
		col := make([]model.Status, V)
		for v := range col {
			col[v] = s
		}
		return outcome{status: col, p: p}
	}
	switch {
	case st.Pending(k):
		o := uniform(model.NoBid, 1)
		if a.Accept[k] != model.NoVehicle {
			o.status[a.Accept[k]] = model.Reserved
		}
		return []outcome{o}, nil
	case st.Untouched(k):
		p, err := g.bids.Bid(k, st.T+1, a.NextLinks)
		if err != nil {
			return nil, err
		}
		if st.T+1 == g.svc.Demands[k].BookingTime-1 {
			return []outcome{uniform(model.BidPending, p), uniform(model.NoBid, 1-p)}, nil
		}
		return []outcome{uniform(model.NoBid, 1-p)}, nil
	}
	gr := g.svc.Graph()
	pickup, dropoff := gr.Link(g.svc.Pickup[k]), gr.Link(g.svc.Dropoff[k])
	col := make([]model.Status, V)
	for v, vs := range st.Vehicles {
		switch vs.Status[k] {
		case model.Reserved:
			col[v] = model.Reserved
			if gr.Link(a.NextLinks[v]).Origin == pickup.Destination {
				col[v] = model.Boarded
			}
		case model.Boarded:
			col[v] = model.Boarded
			if gr.Link(vs.Link).Destination == dropoff.Origin {
				col[v] = model.NoBid
			}
		}
	}
	return []outcome{{status: col, p: 1}}, nil
}

// InitialDistribution returns the probability of every state at t=0: uniform
// over vehicle positions times an independent bid outcome per demand.
func InitialDistribution(states *statespace.Space, bids BidSource) ([]Entry, error) {
	p := states.Params()
	base := 1 / math.Pow(float64(states.Links()), float64(p.Fleet))
	var out []Entry
	positions := make([]int, p.Fleet)
	for _, st := range states.At(0) {
		for v, vs := range st.Vehicles {
			positions[v] = vs.Link
		}
		pr := base
		for k := range states.Demands() {
			bid, err := bids.Bid(k, 0, positions)
			if err != nil {
				return nil, err
			}
			switch st.Vehicles[0].Status[k] {
			case model.NoBid:
				pr *= 1 - bid
			case model.BidPending:
				pr *= bid
			}
		}
		if pr > 0 {
			out = append(out, Entry{State: st.ID, P: pr})
		}
	}
	return out, nil
}
