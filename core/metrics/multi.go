package metrics

// MultiSink fans every record out to several sinks. Optional recorders are
// only forwarded to the sinks that implement them.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPhase forwards to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPhase(ev PhaseEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPhase(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRowDeviation forwards to all sinks.
func (m *MultiSink) RecordRowDeviation(ev RowDeviationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRowDeviation(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordSpace(ev SpaceEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(SpaceRecorder); ok {
			if err := r.RecordSpace(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(SolveRecorder); ok {
			if err := r.RecordSolve(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordTrials(evs []TrialEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(TrialRecorder); ok {
			if err := r.RecordTrials(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordSummary(ev SummaryEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(SummaryRecorder); ok {
			if err := r.RecordSummary(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		Close(s)
	}
}

// Close releases s when it holds resources.
func Close(s Sink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
