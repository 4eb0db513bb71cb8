package metrics

import "time"

// PhaseEvent is the wall-clock time spent in one pipeline phase.
type PhaseEvent struct {
	RunID    string
	Phase    string
	Duration time.Duration
	Time     time.Time
}

// RowDeviationEvent reports a transition row whose probabilities do not sum
// to one.
type RowDeviationEvent struct {
	RunID  string
	Action int
	Sum    float64
	Time   time.Time
}

// Sink records pipeline measurements.
type Sink interface {
	RecordPhase(ev PhaseEvent) error
	RecordRowDeviation(ev RowDeviationEvent) error
}

// SpaceEvent describes the size of the enumerated problem.
type SpaceEvent struct {
	RunID       string
	States      int
	Infeasible  int
	Actions     int
	Transitions int
	Time        time.Time
}

// SpaceRecorder records problem sizes.
type SpaceRecorder interface {
	RecordSpace(ev SpaceEvent) error
}

// SolveEvent is the outcome of a policy solve.
type SolveEvent struct {
	RunID        string
	Algorithm    string
	Iterations   int
	InitialValue float64
	Feasible     bool
	Duration     time.Duration
	Time         time.Time
}

// SolveRecorder records solver outcomes.
type SolveRecorder interface {
	RecordSolve(ev SolveEvent) error
}

// TrialEvent is the revenue of one simulated trial.
type TrialEvent struct {
	RunID    string
	Number   int
	Revenue  float64
	Feasible bool
	Time     time.Time
}

// TrialRecorder records simulated trials.
type TrialRecorder interface {
	RecordTrials(evs []TrialEvent) error
}

// SummaryEvent closes a run.
type SummaryEvent struct {
	RunID        string    `json:"run_id"`
	Algorithm    string    `json:"algorithm"`
	States       int       `json:"states"`
	Actions      int       `json:"actions"`
	InitialValue *float64  `json:"initial_value"`
	Trials       int       `json:"trials"`
	MeanRevenue  float64   `json:"mean_revenue"`
	StdDev       float64   `json:"std_dev"`
	Time         time.Time `json:"time"`
}

// SummaryRecorder records run summaries.
type SummaryRecorder interface {
	RecordSummary(ev SummaryEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPhase(PhaseEvent) error               { return nil }
func (NopSink) RecordRowDeviation(RowDeviationEvent) error { return nil }
func (NopSink) RecordSpace(SpaceEvent) error               { return nil }
func (NopSink) RecordSolve(SolveEvent) error               { return nil }
func (NopSink) RecordTrials([]TrialEvent) error            { return nil }
func (NopSink) RecordSummary(SummaryEvent) error           { return nil }
