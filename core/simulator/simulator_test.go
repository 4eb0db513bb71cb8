package simulator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/choice"
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/solver"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/core/transition"
	"github.com/kilianp07/drtmdp/infra/logger"
	"github.com/kilianp07/drtmdp/internal/fixture"
)

type solved struct {
	problem *solver.Problem
	init    []transition.Entry
	result  *solver.Result
}

func solve(t *testing.T, in fixture.Instance) solved {
	t.Helper()
	ctx := context.Background()
	g, err := graph.New(in.Service)
	require.NoError(t, err)
	svc, err := graph.NewService(g, in.Demands)
	require.NoError(t, err)
	states, err := statespace.Build(ctx, in.Params, in.Demands, g.Len(), 0)
	require.NoError(t, err)
	acts, err := actionspace.Build(ctx, states, svc, 0)
	require.NoError(t, err)
	rg, err := graph.New(in.Rider)
	require.NoError(t, err)
	cm, err := choice.New(in.Params, rg, svc, logger.NopLogger{})
	require.NoError(t, err)
	m, err := transition.Build(ctx, states, acts, svc, cm, transition.Options{})
	require.NoError(t, err)
	init, err := transition.InitialDistribution(states, cm)
	require.NoError(t, err)
	p := &solver.Problem{States: states, Actions: acts, Transitions: m, Gamma: 1}
	res, err := solver.NewBackwardInduction().Solve(ctx, p)
	require.NoError(t, err)
	return solved{problem: p, init: init, result: res}
}

func (s solved) simulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	sim, err := New(s.problem.States, s.problem.Actions, s.problem.Transitions, s.init, s.result.Policy, cfg)
	require.NoError(t, err)
	return sim
}

func TestWorkedExampleRevenue(t *testing.T) {
	s := solve(t, fixture.WorkedExample())
	trials, err := s.simulator(t, Config{Seed: 1}).Run(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, trials, 100)
	for i, tr := range trials {
		assert.Equal(t, i+1, tr.Number)
		assert.True(t, tr.Feasible)
		assert.Equal(t, -1.0, tr.Revenue)
		assert.Empty(t, tr.Trace)
	}
}

func TestMonteCarloMatchesExpectedValue(t *testing.T) {
	s := solve(t, fixture.Corridor())
	want := solver.Expected(s.init, s.result.Values)
	require.True(t, want.IsFeasible())

	trials, err := s.simulator(t, Config{Seed: 42, Workers: 4}).Run(context.Background(), 10000)
	require.NoError(t, err)
	sum := Summarize(trials)
	assert.Zero(t, sum.Infeasible)
	tol := math.Max(0.05*math.Abs(want.Float()), 4*sum.StdErr)
	assert.InDelta(t, want.Float(), sum.Mean, tol)
}

func TestReproducible(t *testing.T) {
	s := solve(t, fixture.TwoVehicles())
	a, err := s.simulator(t, Config{Seed: 7, Workers: 1}).Run(context.Background(), 600)
	require.NoError(t, err)
	b, err := s.simulator(t, Config{Seed: 7, Workers: 8}).Run(context.Background(), 600)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrace(t *testing.T) {
	in := fixture.Corridor()
	s := solve(t, in)
	trials, err := s.simulator(t, Config{Seed: 3, Trace: true}).Run(context.Background(), 20)
	require.NoError(t, err)
	for _, tr := range trials {
		require.Len(t, tr.Trace, in.Params.Horizon)
		total := 0.0
		for i, st := range tr.Trace {
			assert.Equal(t, i, st.T)
			assert.Equal(t, i, s.problem.States.State(st.State).T)
			total += st.Reward
		}
		assert.Equal(t, model.NoAction, tr.Trace[len(tr.Trace)-1].Action)
		assert.InDelta(t, tr.Revenue, total, 1e-9)
	}
}

func TestDeadEndEndsTrial(t *testing.T) {
	s := solve(t, fixture.DeadEnd())
	trials, err := s.simulator(t, Config{Seed: 5, Trace: true}).Run(context.Background(), 200)
	require.NoError(t, err)
	stuck := 0
	for _, tr := range trials {
		first := s.problem.States.State(tr.Trace[0].State)
		if first.Vehicles[0].Link != 4 {
			assert.True(t, tr.Feasible, "trial %d", tr.Number)
			assert.Len(t, tr.Trace, 4)
			continue
		}
		stuck++
		assert.False(t, tr.Feasible)
		assert.Zero(t, tr.Revenue)
		require.Len(t, tr.Trace, 1)
		assert.Equal(t, model.NoAction, tr.Trace[0].Action)
	}
	assert.Positive(t, stuck)
	assert.Equal(t, stuck, Summarize(trials).Infeasible)
}

func TestRunCancelled(t *testing.T) {
	s := solve(t, fixture.Corridor())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.simulator(t, Config{}).Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadInput(t *testing.T) {
	s := solve(t, fixture.WorkedExample())
	_, err := New(s.problem.States, s.problem.Actions, s.problem.Transitions, s.init, model.Policy{0}, Config{})
	assert.ErrorIs(t, err, model.ErrCombinatorialMismatch)
	_, err = New(s.problem.States, s.problem.Actions, s.problem.Transitions, nil, s.result.Policy, Config{})
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}

func TestSummarize(t *testing.T) {
	trials := []Trial{{Revenue: 3, Feasible: true}, {Revenue: 1, Feasible: true}, {Revenue: 4}, {Revenue: 2, Feasible: true}}
	s := Summarize(trials)
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, 1, s.Infeasible)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 1.0, s.P05)
	assert.Equal(t, 2.0, s.Median)
	assert.Equal(t, 4.0, s.P95)

	assert.Equal(t, Summary{}, Summarize(nil))
}
