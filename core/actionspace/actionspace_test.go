package actionspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/internal/fixture"
)

func setup(t *testing.T, in fixture.Instance) (*statespace.Space, *graph.Service) {
	t.Helper()
	g, err := graph.New(in.Service)
	require.NoError(t, err)
	svc, err := graph.NewService(g, in.Demands)
	require.NoError(t, err)
	states, err := statespace.Build(context.Background(), in.Params, in.Demands, g.Len(), 0)
	require.NoError(t, err)
	return states, svc
}

func TestWorkedExampleActions(t *testing.T) {
	states, svc := setup(t, fixture.WorkedExample())
	acts, err := Build(context.Background(), states, svc, 0)
	require.NoError(t, err)
	require.Equal(t, 4, acts.Len())

	want := []struct {
		state, next int
		reward      float64
	}{
		{0, 0, -1}, {0, 1, -2}, {1, 0, -1}, {1, 1, -2},
	}
	for i, w := range want {
		a := acts.Action(i)
		assert.Equal(t, w.state, a.State)
		assert.Equal(t, []int{w.next}, a.NextLinks)
		assert.Equal(t, []int{model.NoVehicle}, a.Accept)
		assert.Equal(t, model.Feasible(w.reward), a.Reward)
	}
	for id := 2; id < 6; id++ {
		assert.Empty(t, acts.ByState(id), "terminal state %d", id)
	}
}

func TestCountMatchesEnumeration(t *testing.T) {
	for name, in := range map[string]fixture.Instance{
		"worked":   fixture.WorkedExample(),
		"corridor": fixture.Corridor(),
		"fleet":    fixture.TwoVehicles(),
	} {
		t.Run(name, func(t *testing.T) {
			states, svc := setup(t, in)
			want, err := Count(states, svc)
			require.NoError(t, err)
			acts, err := Build(context.Background(), states, svc, 2)
			require.NoError(t, err)
			assert.Equal(t, want, acts.Len())
			total := 0
			for id := 0; id < states.Len(); id++ {
				for _, a := range acts.ByState(id) {
					assert.Equal(t, id, acts.Action(a).State)
				}
				total += len(acts.ByState(id))
			}
			assert.Equal(t, want, total)
		})
	}
}

func TestPendingDemandDigits(t *testing.T) {
	states, svc := setup(t, fixture.TwoVehicles())
	acts, err := Build(context.Background(), states, svc, 0)
	require.NoError(t, err)
	// vehicles on links 10 and 20, bid pending at t=0
	id, err := states.Lookup(0, []model.VehicleState{
		{Link: 0, Status: []model.Status{model.BidPending}},
		{Link: 2, Status: []model.Status{model.BidPending}},
	})
	require.NoError(t, err)
	ids := acts.ByState(id)
	// two successors per vehicle, three accept choices
	require.Len(t, ids, 12)
	seen := map[int]int{}
	for _, a := range ids {
		seen[acts.Action(a).Accept[0]]++
	}
	assert.Equal(t, map[int]int{model.NoVehicle: 4, 0: 4, 1: 4}, seen)

	first := acts.Action(ids[1])
	assert.Equal(t, []int{0, 2}, first.NextLinks)
	assert.Equal(t, 0, first.Accept[0])
	// fare 100 + 50*2 minus two idle loops
	assert.Equal(t, model.Feasible(200-2), first.Reward)
}

func TestAdmissible(t *testing.T) {
	_, svc := setup(t, fixture.Corridor())
	// links: 0=10 (1->1), 1=12 (1->2), 2=20 (2->2), 3=21 (2->1); pick-up 10, drop-off 20, te=3
	tests := []struct {
		name      string
		status    model.Status
		cur, next int
		t         int
		want      bool
	}{
		{"not adjacent", model.NoBid, 0, 2, 0, false},
		{"no bid adjacent", model.NoBid, 0, 1, 2, true},
		{"reserved leaving pick-up in time", model.Reserved, 0, 1, 1, true},
		{"reserved idling at pick-up too late", model.Reserved, 0, 0, 1, false},
		{"reserved away from pick-up", model.Reserved, 2, 3, 0, true},
		{"reserved away from pick-up late", model.Reserved, 2, 3, 1, false},
		{"boarded riding", model.Boarded, 0, 1, 1, true},
		{"boarded riding late", model.Boarded, 0, 1, 2, false},
		{"boarded alighting", model.Boarded, 1, 3, 2, true},
	}
	for _, tt := range tests {
		got, err := Admissible(svc, 0, tt.status, tt.cur, tt.next, tt.t)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestInfeasibleStateGivesInfeasibleActions(t *testing.T) {
	in := fixture.Corridor()
	in.Params.Capacity = 0
	states, svc := setup(t, in)
	acts, err := Build(context.Background(), states, svc, 0)
	require.NoError(t, err)
	for _, a := range acts.Actions() {
		if !states.State(a.State).Feasible {
			assert.False(t, a.Reward.IsFeasible())
		}
	}
	assert.Less(t, acts.Feasible(), acts.Len())
}
