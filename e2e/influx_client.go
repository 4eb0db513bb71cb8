// Package e2e runs the solver end to end against real metrics backends.
package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxReader queries the points written by the influx metrics sink.
type InfluxReader struct {
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxReader creates a reader for an already running server.
func NewInfluxReader(url, org, bucket, token string) *InfluxReader {
	c := influxdb2.NewClient(url, token)
	return &InfluxReader{bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// Count returns the number of rows of one field of a measurement written by
// the given run within the last hour.
func (r *InfluxReader) Count(ctx context.Context, measurement, field, runID string) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.run_id == %q)`,
		r.bucket, measurement, field, runID)
	res, err := r.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Close() }()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Close releases the underlying client resources.
func (r *InfluxReader) Close() { r.client.Close() }
