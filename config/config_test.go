package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `model:
  horizon: 5
  fleet_size: 2
  service_constant: 0
choice:
  scale: 0.5
solver:
  algorithm: policy_iteration
  gamma: 0.95
  conf:
    tie_tolerance: 0.001
simulation:
  trials: 500
  seed: 9
  trace: true
transition:
  workers: 3
input:
  service_links: service.csv
  demand_links: demand.csv
  demands: od.csv
output:
  revenue: out/revenue.json
  format: JSON
  run_log:
    path: out/runs.jsonl
    max_size_mb: 5
metrics:
  sinks:
    - type: "nop"
  listen: ":9100"
logging:
  level: debug
sentry:
  dsn: https://public@example.com/1
  environment: test
workers: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	p := cfg.Params()
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"horizon", p.Horizon, 5},
		{"fleet", p.Fleet, 2},
		{"capacity default", p.Capacity, 1},
		{"flat fare default", p.FlatFare, 100.0},
		{"explicit zero service constant", p.ServiceConstant, 0.0},
		{"scale", p.Scale, 0.5},
		{"discount default", p.Discount, 1.0},
		{"algorithm", cfg.Solver.Algorithm, "policy_iteration"},
		{"gamma", cfg.Solver.Gamma, 0.95},
		{"tolerance default", cfg.Solver.Tolerance, 1e-9},
		{"tie tolerance", cfg.Solver.Module().Conf["tie_tolerance"], 0.001},
		{"trials", cfg.Simulation.Trials, 500},
		{"seed", cfg.Simulation.Seed, uint64(9)},
		{"trace", cfg.Simulation.Trace, true},
		{"row tolerance default", cfg.Transition.RowTolerance, 1e-6},
		{"transition workers", cfg.Transition.Options().Workers, 3},
		{"input format", cfg.Input.ResolvedFormat(), "csv"},
		{"output format", cfg.Output.Format, "json"},
		{"run log rotating", cfg.Output.RunLog.Rotating(), true},
		{"metrics sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"listen", cfg.Metrics.Listen, ":9100"},
		{"level", cfg.Logging.Level, "debug"},
		{"sentry dsn", cfg.Sentry.DSN, "https://public@example.com/1"},
		{"sentry environment", cfg.Sentry.Environment, "test"},
		{"chart bins default", cfg.Output.ChartBins, 20},
		{"workers", cfg.Workers, 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONWithEnv(t *testing.T) {
	path := writeConfig(t, "config.json", `{"input": {"instance": "instance.yaml"}}`)
	t.Setenv("K_SOLVER__ALGORITHM", "value_iteration")
	t.Setenv("K_MODEL__HORIZON", "7")
	t.Setenv("K_OUTPUT__RUN_LOG__MAX_SIZE_MB", "3")
	t.Setenv("K_SENTRY__ENVIRONMENT", "ci")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Solver.Algorithm != "value_iteration" {
		t.Errorf("algorithm not overridden: %s", cfg.Solver.Algorithm)
	}
	if cfg.Model.Horizon != 7 {
		t.Errorf("horizon not overridden: %d", cfg.Model.Horizon)
	}
	if cfg.Output.RunLog.MaxSizeMB != 3 {
		t.Errorf("nested key not overridden: %d", cfg.Output.RunLog.MaxSizeMB)
	}
	if cfg.Sentry.Environment != "ci" {
		t.Errorf("sentry environment not overridden: %q", cfg.Sentry.Environment)
	}
	if cfg.Input.ResolvedFormat() != "yaml" {
		t.Errorf("format %s", cfg.Input.ResolvedFormat())
	}
	if cfg.Output.Format != "csv" || cfg.Logging.Level != "info" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Output, cfg.Logging)
	}
}

func TestLoadInvalid(t *testing.T) {
	input := "input:\n  instance: x.yaml\n"
	tests := map[string]string{
		"algorithm": input + "solver:\n  algorithm: simplex\n",
		"gamma":     input + "solver:\n  gamma: 1.5\n",
		"horizon":   input + "model:\n  horizon: 0\n",
		"scale":     input + "choice:\n  scale: 0\n",
		"trials":    input + "simulation:\n  trials: -1\n",
		"rows":      input + "transition:\n  row_tolerance: 0\n",
		"output":    input + "output:\n  format: xml\n",
		"level":     input + "logging:\n  level: loud\n",
		"sentry":    input + "sentry:\n  traces_sample_rate: 2\n",
		"chart":     input + "output:\n  chart_bins: -3\n",
		"input":     "input:\n  format: csv\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load("config.toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
