package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
)

// PromSink exposes pipeline measurements as Prometheus metrics.
type PromSink struct {
	phase      *prometheus.HistogramVec
	deviations prometheus.Counter
	states     prometheus.Gauge
	actions    prometheus.Gauge
	initial    *prometheus.GaugeVec
	iterations *prometheus.GaugeVec
	revenue    prometheus.Histogram
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.phase, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drt_phase_duration_seconds",
		Help:    "Wall-clock time spent in each pipeline phase",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"phase"})); err != nil {
		return nil, err
	}
	if s.deviations, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drt_transition_row_deviation_total",
		Help: "Transition rows whose probabilities do not sum to one",
	})); err != nil {
		return nil, err
	}
	if s.states, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drt_states_total",
		Help: "Number of enumerated states",
	})); err != nil {
		return nil, err
	}
	if s.actions, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drt_actions_total",
		Help: "Number of enumerated actions",
	})); err != nil {
		return nil, err
	}
	if s.initial, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drt_initial_value",
		Help: "Expected value of the initial state distribution under the solved policy",
	}, []string{"algorithm"})); err != nil {
		return nil, err
	}
	if s.iterations, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drt_solver_iterations",
		Help: "Sweeps or timesteps processed by the solver",
	}, []string{"algorithm"})); err != nil {
		return nil, err
	}
	if s.revenue, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drt_trial_revenue",
		Help:    "Revenue of simulated trials",
		Buckets: prometheus.LinearBuckets(-500, 100, 16),
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPhase observes the phase duration.
func (s *PromSink) RecordPhase(ev coremetrics.PhaseEvent) error {
	s.phase.WithLabelValues(ev.Phase).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRowDeviation counts a deviating row.
func (s *PromSink) RecordRowDeviation(coremetrics.RowDeviationEvent) error {
	s.deviations.Inc()
	return nil
}

// RecordSpace sets the size gauges.
func (s *PromSink) RecordSpace(ev coremetrics.SpaceEvent) error {
	s.states.Set(float64(ev.States))
	s.actions.Set(float64(ev.Actions))
	return nil
}

// RecordSolve sets the solver gauges. Infeasible values are not exported.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.iterations.WithLabelValues(ev.Algorithm).Set(float64(ev.Iterations))
	if ev.Feasible {
		s.initial.WithLabelValues(ev.Algorithm).Set(ev.InitialValue)
	}
	return nil
}

// RecordTrials observes every trial revenue.
func (s *PromSink) RecordTrials(evs []coremetrics.TrialEvent) error {
	for _, ev := range evs {
		s.revenue.Observe(ev.Revenue)
	}
	return nil
}
