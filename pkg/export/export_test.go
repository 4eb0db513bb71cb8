package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/simulator"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/internal/fixture"
)

var trials = []simulator.Trial{
	{Number: 1, Revenue: -1, Feasible: true, Trace: []simulator.Step{
		{T: 0, State: 0, Action: 0, Reward: -1},
		{T: 1, State: 4, Action: model.NoAction},
	}},
	{Number: 2, Revenue: 2.5, Feasible: false},
}

func TestWriteRevenueCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRevenueCSV(&buf, trials))
	assert.Equal(t, "number,revenue\n1,-1\n2,2.5\n", buf.String())
}

func TestWriteRevenueJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRevenueJSON(&buf, trials))
	var got []Revenue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []Revenue{{1, -1, true}, {2, 2.5, false}}, got)
}

func TestWriteTraceCSV(t *testing.T) {
	in := fixture.WorkedExample()
	g, err := graph.New(in.Service)
	require.NoError(t, err)
	states, err := statespace.Build(context.Background(), in.Params, in.Demands, g.Len(), 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTraceCSV(&buf, trials, states, g))
	want := "trial,t,action,reward,l_0,sf_0_0\n" +
		"1,0,0,-1,10,0\n" +
		"1,1,-1,0,10,1\n"
	assert.Equal(t, want, buf.String())

	bad := []simulator.Trial{{Number: 3, Trace: []simulator.Step{{State: 99}}}}
	assert.Error(t, WriteTraceCSV(&bytes.Buffer{}, bad, states, g))
}

func TestHistogram(t *testing.T) {
	var trs []simulator.Trial
	for _, r := range []float64{0, 1, 2, 3, 4, 10} {
		trs = append(trs, simulator.Trial{Revenue: r})
	}
	edges, counts := Histogram(trs, 5)
	require.Len(t, edges, 6)
	assert.Equal(t, []float64{0, 2, 4, 6, 8}, edges[:5])
	assert.Equal(t, []float64{2, 2, 1, 0, 1}, counts)

	edges, counts = Histogram([]simulator.Trial{{Revenue: -1}, {Revenue: -1}}, 10)
	assert.Equal(t, []float64{-1, 0}, edges)
	assert.Equal(t, []float64{2}, counts)

	edges, counts = Histogram(nil, 3)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestWriteRevenueChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRevenueChart(&buf, trials, 4))
	assert.Contains(t, buf.String(), "echarts")
	assert.Contains(t, buf.String(), "Revenue per trial")
	assert.Error(t, WriteRevenueChart(&bytes.Buffer{}, nil, 4))
}
