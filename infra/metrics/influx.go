package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/infra/logger"
)

// InfluxSink writes pipeline measurements to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(points ...*write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range points {
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPhase writes a "phase" point.
func (s *InfluxSink) RecordPhase(ev coremetrics.PhaseEvent) error {
	return s.write(write.NewPointWithMeasurement("phase").
		AddTag("run_id", ev.RunID).
		AddTag("phase", ev.Phase).
		AddField("seconds", round3(ev.Duration.Seconds())).
		SetTime(ev.Time))
}

// RecordRowDeviation writes a "row_deviation" point.
func (s *InfluxSink) RecordRowDeviation(ev coremetrics.RowDeviationEvent) error {
	return s.write(write.NewPointWithMeasurement("row_deviation").
		AddTag("run_id", ev.RunID).
		AddField("action", ev.Action).
		AddField("sum", ev.Sum).
		SetTime(ev.Time))
}

// RecordSpace writes a "space" point.
func (s *InfluxSink) RecordSpace(ev coremetrics.SpaceEvent) error {
	return s.write(write.NewPointWithMeasurement("space").
		AddTag("run_id", ev.RunID).
		AddField("states", ev.States).
		AddField("infeasible", ev.Infeasible).
		AddField("actions", ev.Actions).
		AddField("transitions", ev.Transitions).
		SetTime(ev.Time))
}

// RecordSolve writes a "solve" point. The initial value is omitted when the
// solved policy is infeasible.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	p := write.NewPointWithMeasurement("solve").
		AddTag("run_id", ev.RunID).
		AddTag("algorithm", ev.Algorithm).
		AddField("iterations", ev.Iterations).
		AddField("feasible", ev.Feasible).
		AddField("seconds", round3(ev.Duration.Seconds()))
	if ev.Feasible {
		p = p.AddField("initial_value", round3(ev.InitialValue))
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordTrials writes one "trial" point per trial. Trials of a run share a
// timestamp, so the trial number is added to it in nanoseconds to keep the
// points distinct.
func (s *InfluxSink) RecordTrials(evs []coremetrics.TrialEvent) error {
	points := make([]*write.Point, len(evs))
	for i, ev := range evs {
		points[i] = write.NewPointWithMeasurement("trial").
			AddTag("run_id", ev.RunID).
			AddField("number", ev.Number).
			AddField("revenue", round3(ev.Revenue)).
			AddField("feasible", ev.Feasible).
			SetTime(ev.Time.Add(time.Duration(ev.Number)))
	}
	return s.write(points...)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
