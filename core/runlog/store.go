// Package runlog keeps an append-only history of optimisation runs.
package runlog

import (
	"context"
	"time"

	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/simulator"
)

// Record summarises one pipeline run.
type Record struct {
	RunID       string       `json:"run_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Algorithm   string       `json:"algorithm"`
	Params      model.Params `json:"params"`
	States      int          `json:"states"`
	Infeasible  int          `json:"infeasible_states"`
	Actions     int          `json:"actions"`
	Transitions int          `json:"transitions"`
	Iterations  int          `json:"iterations"`
	// InitialValue is null when no feasible policy exists.
	InitialValue model.Value        `json:"initial_value"`
	Revenue      simulator.Summary  `json:"revenue"`
	Phases       map[string]float64 `json:"phase_seconds,omitempty"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	RunID     string
	Algorithm string
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	switch {
	case !q.Start.IsZero() && r.Timestamp.Before(q.Start):
		return false
	case !q.End.IsZero() && r.Timestamp.After(q.End):
		return false
	case q.RunID != "" && r.RunID != q.RunID:
		return false
	case q.Algorithm != "" && r.Algorithm != q.Algorithm:
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
