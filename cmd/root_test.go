package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/drtmdp/infra/loader"
	"github.com/kilianp07/drtmdp/internal/fixture"
)

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	in := fixture.WorkedExample()
	f, err := os.Create(filepath.Join(dir, "instance.yaml"))
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if err := loader.WriteYAML(f, &in.Instance); err != nil {
		t.Fatalf("write instance: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close instance: %v", err)
	}
	cfg := "model:\n  horizon: 2\ninput:\n  instance: " + f.Name() + "\nsimulation:\n  trials: 10\nlogging:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestCount(t *testing.T) {
	out := execute(t, "count", "--config", setupConfig(t))
	if !strings.Contains(out, "states 6\n") || !strings.Contains(out, "actions 4\n") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSolve(t *testing.T) {
	out := execute(t, "solve", "--config", setupConfig(t), "--algorithm", "value_iteration", "--trials", "20")
	for _, want := range []string{"algorithm value_iteration", "expected value -1.000000", "trials 20 (0 infeasible)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestUnknownConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"count", "--config", "missing.toml"})
	if err := Execute(); err == nil {
		t.Fatalf("expected error")
	}
}
