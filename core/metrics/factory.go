package metrics

import (
	"fmt"

	"github.com/kilianp07/drtmdp/core/factory"
)

// sinks holds the backends a solver run can report to. infra/metrics
// registers nop, prometheus, influx and mqtt.
var sinks = factory.NewRegistry[Sink]()

// RegisterSink makes a run sink available under name in metrics.sinks.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink names, sorted.
func SinkTypes() []string { return sinks.Names() }

// NewSink builds the sinks of one run. No entry yields NopSink, one entry the
// sink itself and several a MultiSink. When an entry fails the sinks built
// before it are closed.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	built := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			for _, b := range built {
				Close(b)
			}
			return nil, fmt.Errorf("sink %d (%s): %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}
