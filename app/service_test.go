package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/drtmdp/config"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/pipeline"
	"github.com/kilianp07/drtmdp/core/runlog"
	"github.com/kilianp07/drtmdp/infra/loader"
	"github.com/kilianp07/drtmdp/internal/fixture"
	"github.com/kilianp07/drtmdp/pkg/export"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := fixture.WorkedExample()
	path := filepath.Join(dir, "instance.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, loader.WriteYAML(f, &in.Instance))
	require.NoError(t, f.Close())

	cfg := config.Default()
	cfg.Model.Horizon = in.Params.Horizon
	cfg.Input = loader.Source{Instance: path}
	cfg.Simulation.Trials = 50
	cfg.Simulation.Trace = true
	cfg.Output = config.OutputConfig{
		Revenue:   filepath.Join(dir, "out", "revenue.json"),
		Trace:     filepath.Join(dir, "out", "trace.csv"),
		Chart:     filepath.Join(dir, "out", "revenue.html"),
		ChartBins: 10,
		Format:    "json",
		RunLog:    config.RunLogConfig{Path: filepath.Join(dir, "runs.jsonl")},
	}
	cfg.Logging.SetDefaults()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "-1.000000", Value(rep.InitialValue))

	data, err := os.ReadFile(cfg.Output.Revenue)
	require.NoError(t, err)
	var rev []export.Revenue
	require.NoError(t, json.Unmarshal(data, &rev))
	require.Len(t, rev, 50)
	assert.Equal(t, -1.0, rev[0].Revenue)

	trace, err := os.ReadFile(cfg.Output.Trace)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trace)), "\n")
	assert.Equal(t, "trial,t,action,reward,l_0,sf_0_0", lines[0])
	assert.Len(t, lines, 1+50*2)

	chart, err := os.ReadFile(cfg.Output.Chart)
	require.NoError(t, err)
	assert.Contains(t, string(chart), "Revenue per trial")

	recs, err := svc.History(context.Background(), runlog.Query{RunID: rep.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 6, recs[0].States)
	assert.Equal(t, model.Feasible(-1), recs[0].InitialValue)
}

func TestServiceCount(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	c, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, c.States)
	assert.Equal(t, 4, c.Actions)
}

func TestServiceMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Instance = filepath.Join(t.TempDir(), "missing.yaml")
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	_, err = svc.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}

type recordingMonitor struct {
	errs []error
	tags []map[string]string
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *recordingMonitor) Recover()            {}
func (m *recordingMonitor) Flush(time.Duration) {}

func TestServiceReportsPipelineErrors(t *testing.T) {
	cfg := testConfig(t)
	in := fixture.WorkedExample()
	in.Demands[0].ServiceOrigin = 99
	f, err := os.Create(cfg.Input.Instance)
	require.NoError(t, err)
	require.NoError(t, loader.WriteYAML(f, &in.Instance))
	require.NoError(t, f.Close())

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	mon := &recordingMonitor{}
	svc.monitor = mon

	rep, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, mon.errs, 1)
	assert.Equal(t, map[string]string{
		"algorithm":  cfg.Solver.Algorithm,
		"run_id":     rep.RunID,
		"phase":      pipeline.PhaseGraph,
		"error_kind": "malformed_input",
	}, mon.tags[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Run(ctx)
	require.Error(t, err)
	assert.Len(t, mon.errs, 1, "cancellation is not reported")
}

func TestValue(t *testing.T) {
	assert.Equal(t, "infeasible", Value(model.Infeasible))
	assert.Equal(t, "2.500000", Value(model.Feasible(2.5)))
}
