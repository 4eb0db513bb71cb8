package metrics

import "testing"

// recordSink implements Sink and SolveRecorder only.
type recordSink struct {
	count int
}

func (r *recordSink) RecordPhase(PhaseEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordRowDeviation(RowDeviationEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordSolve(SolveEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordPhase(PhaseEvent{Phase: "states"}); err != nil {
		t.Fatalf("record phase: %v", err)
	}
	if err := m.RecordRowDeviation(RowDeviationEvent{}); err != nil {
		t.Fatalf("record deviation: %v", err)
	}
	if err := m.RecordSolve(SolveEvent{}); err != nil {
		t.Fatalf("record solve: %v", err)
	}
	// not implemented by recordSink
	if err := m.RecordTrials(nil); err != nil {
		t.Fatalf("record trials: %v", err)
	}
	if s1.count != 3 || s2.count != 3 {
		t.Fatalf("events not forwarded: %d %d", s1.count, s2.count)
	}
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(NopSink{}, c)
	m.Close()
	if !c.closed {
		t.Fatalf("sink not closed")
	}
}
