package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/drtmdp/app"
	"github.com/kilianp07/drtmdp/config"
	"github.com/kilianp07/drtmdp/core/factory"
	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/infra/loader"
	"github.com/kilianp07/drtmdp/internal/fixture"
)

const (
	org    = "e2e_org"
	bucket = "e2e_bucket"
	token  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container initialised with the test
// organisation, bucket and token, and returns its base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": token,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func writeInstance(t *testing.T, in fixture.Instance) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instance.yaml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	defer f.Close()
	if err := loader.WriteYAML(f, &in.Instance); err != nil {
		t.Fatalf("write instance: %v", err)
	}
	return path
}

// Test_E2E_SolveWithSinks solves the corridor instance with the influx and
// mqtt sinks enabled and reads the results back from both backends.
func Test_E2E_SolveWithSinks(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, mqttURL := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck
	t.Logf("InfluxDB started at %s", influxURL)
	t.Logf("Mosquitto started at %s", mqttURL)

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(mqttURL).SetClientID("e2e-sub"))
	if tok := sub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	summaries := make(chan []byte, 1)
	if tok := sub.Subscribe("e2e/+/summary", 1, func(_ paho.Client, m paho.Message) {
		summaries <- m.Payload()
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	in := fixture.Corridor()
	cfg := config.Default()
	cfg.Model.Horizon = in.Params.Horizon
	cfg.Input = loader.Source{Instance: writeInstance(t, in)}
	cfg.Simulation.Trials = 100
	cfg.Logging.SetDefaults()
	cfg.Output.SetDefaults()
	cfg.Metrics = coremetrics.Config{Sinks: []factory.ModuleConfig{
		{Type: "influx", Conf: map[string]any{"url": influxURL, "token": token, "org": org, "bucket": bucket}},
		{Type: "mqtt", Conf: map[string]any{"broker": mqttURL, "topic_prefix": "e2e", "qos": map[string]any{"summary": 1}}},
	}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(&cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()
	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	reader := NewInfluxReader(influxURL, org, bucket, token)
	defer reader.Close()
	checks := []struct {
		measurement, field string
		want               int
	}{
		{"solve", "iterations", 1},
		{"space", "states", 1},
		{"trial", "revenue", 100},
	}
	for _, c := range checks {
		n, err := reader.Count(ctx, c.measurement, c.field, rep.RunID)
		if err != nil {
			t.Fatalf("query %s: %v", c.measurement, err)
		}
		if n != c.want {
			t.Errorf("%s.%s: got %d rows, want %d", c.measurement, c.field, n, c.want)
		}
	}

	select {
	case b := <-summaries:
		var ev coremetrics.SummaryEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		if ev.RunID != rep.RunID || ev.Trials != 100 {
			t.Fatalf("unexpected summary %+v", ev)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for summary")
	}
}
