package mqtt

import (
	"time"

	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
)

// Sink publishes pipeline records as JSON messages:
//
//	<prefix>/<run>/phase      one message per pipeline phase
//	<prefix>/<run>/solve      the solver outcome
//	<prefix>/<run>/summary    the closing run summary
//
// Row deviations are only logged by the pipeline and are not published.
type Sink struct {
	pub *Publisher
}

// NewSink wraps a connected publisher.
func NewSink(pub *Publisher) *Sink { return &Sink{pub: pub} }

type phaseMessage struct {
	Phase   string    `json:"phase"`
	Seconds float64   `json:"seconds"`
	Time    time.Time `json:"time"`
}

func (s *Sink) RecordPhase(ev coremetrics.PhaseEvent) error {
	return s.pub.Publish("phase", s.pub.Topic(ev.RunID, "phase"), phaseMessage{
		Phase: ev.Phase, Seconds: ev.Duration.Seconds(), Time: ev.Time,
	})
}

func (s *Sink) RecordRowDeviation(coremetrics.RowDeviationEvent) error { return nil }

type solveMessage struct {
	Algorithm    string    `json:"algorithm"`
	Iterations   int       `json:"iterations"`
	InitialValue *float64  `json:"initial_value"`
	Seconds      float64   `json:"seconds"`
	Time         time.Time `json:"time"`
}

func (s *Sink) RecordSolve(ev coremetrics.SolveEvent) error {
	msg := solveMessage{Algorithm: ev.Algorithm, Iterations: ev.Iterations, Seconds: ev.Duration.Seconds(), Time: ev.Time}
	if ev.Feasible {
		v := ev.InitialValue
		msg.InitialValue = &v
	}
	return s.pub.Publish("solve", s.pub.Topic(ev.RunID, "solve"), msg)
}

func (s *Sink) RecordSummary(ev coremetrics.SummaryEvent) error {
	return s.pub.Publish("summary", s.pub.Topic(ev.RunID, "summary"), ev)
}

// Close disconnects the publisher.
func (s *Sink) Close() { s.pub.Close() }
