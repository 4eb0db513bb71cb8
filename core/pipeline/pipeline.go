// Package pipeline runs one optimisation end to end: it enumerates the
// problem, builds the transition matrix, solves for a policy and simulates
// it. Every phase is timed, reported to the metrics sink and announced on
// the progress bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/drtmdp/core/actionspace"
	"github.com/kilianp07/drtmdp/core/choice"
	"github.com/kilianp07/drtmdp/core/factory"
	"github.com/kilianp07/drtmdp/core/graph"
	"github.com/kilianp07/drtmdp/core/logger"
	"github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/core/model"
	"github.com/kilianp07/drtmdp/core/runlog"
	"github.com/kilianp07/drtmdp/core/simulator"
	"github.com/kilianp07/drtmdp/core/solver"
	"github.com/kilianp07/drtmdp/core/statespace"
	"github.com/kilianp07/drtmdp/core/transition"
	"github.com/kilianp07/drtmdp/internal/eventbus"
)

// Phase names, in execution order.
const (
	PhaseGraph       = "graph"
	PhaseStates      = "states"
	PhaseActions     = "actions"
	PhaseTransitions = "transitions"
	PhaseInitial     = "initial"
	PhaseSolve       = "solve"
	PhaseSimulate    = "simulate"
)

var phases = []string{PhaseGraph, PhaseStates, PhaseActions, PhaseTransitions, PhaseInitial, PhaseSolve, PhaseSimulate}

// Progress is published when a phase starts and when it finishes, and after
// every timestep or sweep of the solver. Step and Total count those solver
// steps and are zero for the other events.
type Progress struct {
	RunID string
	Phase string
	Step  int
	Total int
	Done  bool
	Time  time.Time
}

// PhaseError is a failure inside one phase of a run.
type PhaseError struct {
	RunID string
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return e.Phase + ": " + e.Err.Error() }

func (e *PhaseError) Unwrap() error { return e.Err }

// Options configures one run.
type Options struct {
	Params model.Params
	// Solver selects and configures the algorithm through the solver
	// registry. An empty type means backward induction.
	Solver        factory.ModuleConfig
	Gamma         float64
	Tolerance     float64
	MaxIterations int
	InitialValue  float64
	Transition    transition.Options
	Simulation    simulator.Config
	// Trials is the number of Monte Carlo rollouts. Zero skips simulation.
	Trials  int
	Workers int
}

// Report is everything a run produced.
type Report struct {
	RunID        string
	Algorithm    string
	Service      *graph.Graph
	States       *statespace.Space
	Actions      *actionspace.Space
	Transitions  *transition.Matrix
	Initial      []transition.Entry
	Result       *solver.Result
	InitialValue model.Value
	Trials       []simulator.Trial
	Summary      simulator.Summary
	Phases       map[string]time.Duration
}

// Record converts the report into a run log entry.
func (r *Report) Record(p model.Params, now time.Time) runlog.Record {
	rec := runlog.Record{
		RunID:        r.RunID,
		Timestamp:    now,
		Algorithm:    r.Algorithm,
		Params:       p,
		InitialValue: r.InitialValue,
		Revenue:      r.Summary,
		Phases:       make(map[string]float64, len(r.Phases)),
	}
	if r.States != nil {
		rec.States, rec.Infeasible = r.States.Len(), r.States.Infeasible()
	}
	if r.Actions != nil {
		rec.Actions = r.Actions.Len()
	}
	if r.Transitions != nil {
		rec.Transitions = r.Transitions.NonZero()
	}
	if r.Result != nil {
		rec.Iterations = r.Result.Iterations
	}
	for name, d := range r.Phases {
		rec.Phases[name] = d.Seconds()
	}
	return rec
}

// Pipeline runs optimisations. It is safe to run several concurrently.
type Pipeline struct {
	log  logger.Logger
	sink metrics.Sink
	bus  *eventbus.TypedBus[Progress]
	now  func() time.Time
}

// New creates a pipeline. A nil sink or bus disables that output.
func New(log logger.Logger, sink metrics.Sink, bus *eventbus.TypedBus[Progress]) *Pipeline {
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Pipeline{log: log, sink: sink, bus: bus, now: time.Now}
}

type run struct {
	*Pipeline
	id     string
	report *Report
}

// Run executes every phase on the instance. The context is checked between
// phases and inside every parallel stage.
func (p *Pipeline) Run(ctx context.Context, in *model.Instance, opts Options) (*Report, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedInput, err)
	}
	if opts.Solver.Type == "" {
		opts.Solver.Type = solver.BackwardInduction
	}
	alg, err := solver.New(opts.Solver)
	if err != nil {
		return nil, err
	}
	r := &run{
		Pipeline: p,
		id:       uuid.NewString(),
		report:   &Report{Algorithm: opts.Solver.Type, Phases: make(map[string]time.Duration, len(phases))},
	}
	r.report.RunID = r.id
	p.log.Infof("run %s: %d demands, fleet %d, horizon %d, %s", r.id, len(in.Demands), opts.Params.Fleet, opts.Params.Horizon, opts.Solver.Type)

	var (
		svc   *graph.Service
		rider *graph.Graph
	)
	err = r.phase(ctx, PhaseGraph, func() error {
		sg, err := graph.New(in.Service)
		if err != nil {
			return fmt.Errorf("service network: %w", err)
		}
		if rider, err = graph.New(in.Rider); err != nil {
			return fmt.Errorf("demand network: %w", err)
		}
		r.report.Service = sg
		svc, err = graph.NewService(sg, in.Demands)
		return err
	})
	if err != nil {
		return r.report, err
	}

	err = r.phase(ctx, PhaseStates, func() (err error) {
		r.report.States, err = statespace.Build(ctx, opts.Params, in.Demands, svc.Graph().Len(), opts.Workers)
		return err
	})
	if err != nil {
		return r.report, err
	}
	states := r.report.States
	p.log.Infof("run %s: %d states, %d infeasible", r.id, states.Len(), states.Infeasible())

	err = r.phase(ctx, PhaseActions, func() (err error) {
		r.report.Actions, err = actionspace.Build(ctx, states, svc, opts.Workers)
		return err
	})
	if err != nil {
		return r.report, err
	}
	actions := r.report.Actions
	p.log.Infof("run %s: %d actions, %d feasible", r.id, actions.Len(), actions.Feasible())

	var bids *choice.Model
	err = r.phase(ctx, PhaseTransitions, func() error {
		var err error
		if bids, err = choice.New(opts.Params, rider, svc, p.log); err != nil {
			return err
		}
		topts := opts.Transition
		if topts.Workers == 0 {
			topts.Workers = opts.Workers
		}
		r.report.Transitions, err = transition.Build(ctx, states, actions, svc, bids, topts)
		return err
	})
	if err != nil {
		return r.report, err
	}
	r.deviations()
	r.space()

	err = r.phase(ctx, PhaseInitial, func() (err error) {
		r.report.Initial, err = transition.InitialDistribution(states, bids)
		return err
	})
	if err != nil {
		return r.report, err
	}

	if err := r.solve(ctx, alg, opts); err != nil {
		return r.report, err
	}

	if opts.Trials > 0 {
		if err := r.simulate(ctx, opts); err != nil {
			return r.report, err
		}
	}
	r.summary()
	return r.report, nil
}

func (r *run) solve(ctx context.Context, alg solver.Solver, opts Options) error {
	problem := &solver.Problem{
		States:        r.report.States,
		Actions:       r.report.Actions,
		Transitions:   r.report.Transitions,
		Gamma:         opts.Gamma,
		Tolerance:     opts.Tolerance,
		MaxIterations: opts.MaxIterations,
		InitialValue:  opts.InitialValue,
		Workers:       opts.Workers,
	}
	total := opts.MaxIterations
	if opts.Solver.Type == solver.BackwardInduction {
		total = opts.Params.Tmax()
	}
	problem.Progress = func(step int) { r.publish(Progress{Phase: PhaseSolve, Step: step, Total: total}) }

	start := r.now()
	err := r.phase(ctx, PhaseSolve, func() (err error) {
		r.report.Result, err = alg.Solve(ctx, problem)
		return err
	})
	if err != nil {
		return err
	}
	res := r.report.Result
	v := solver.Expected(r.report.Initial, res.Values)
	r.report.InitialValue = v
	if v.IsFeasible() {
		r.log.Infof("run %s: %s converged after %d iterations, expected value %.3f", r.id, r.report.Algorithm, res.Iterations, v.Float())
	} else {
		r.log.Warnf("run %s: no feasible policy from the initial distribution", r.id)
	}
	if rec, ok := r.sink.(metrics.SolveRecorder); ok {
		ev := metrics.SolveEvent{
			RunID:      r.id,
			Algorithm:  r.report.Algorithm,
			Iterations: res.Iterations,
			Feasible:   v.IsFeasible(),
			Duration:   r.now().Sub(start),
			Time:       r.now(),
		}
		if v.IsFeasible() {
			ev.InitialValue = v.Float()
		}
		if err := rec.RecordSolve(ev); err != nil {
			r.log.Warnf("record solve: %v", err)
		}
	}
	return nil
}

func (r *run) simulate(ctx context.Context, opts Options) error {
	cfg := opts.Simulation
	if cfg.Workers == 0 {
		cfg.Workers = opts.Workers
	}
	return r.phase(ctx, PhaseSimulate, func() error {
		sim, err := simulator.New(r.report.States, r.report.Actions, r.report.Transitions, r.report.Initial, r.report.Result.Policy, cfg)
		if err != nil {
			return err
		}
		if r.report.Trials, err = sim.Run(ctx, opts.Trials); err != nil {
			return err
		}
		r.report.Summary = simulator.Summarize(r.report.Trials)
		s := r.report.Summary
		r.log.Infof("run %s: %d trials, mean revenue %.3f (sd %.3f), %d infeasible", r.id, s.Trials, s.Mean, s.StdDev, s.Infeasible)
		rec, ok := r.sink.(metrics.TrialRecorder)
		if !ok {
			return nil
		}
		now := r.now()
		evs := make([]metrics.TrialEvent, len(r.report.Trials))
		for i, tr := range r.report.Trials {
			evs[i] = metrics.TrialEvent{RunID: r.id, Number: tr.Number, Revenue: tr.Revenue, Feasible: tr.Feasible, Time: now}
		}
		if err := rec.RecordTrials(evs); err != nil {
			r.log.Warnf("record trials: %v", err)
		}
		return nil
	})
}

// phase times fn and reports it. Cancellation is checked before fn starts.
func (r *run) phase(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.publish(Progress{Phase: name})
	start := r.now()
	err := fn()
	d := r.now().Sub(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.log.Warnf("run %s: %s cancelled after %s", r.id, name, d)
		} else {
			r.log.Errorf("run %s: %s failed: %v", r.id, name, err)
		}
		return &PhaseError{RunID: r.id, Phase: name, Err: err}
	}
	r.report.Phases[name] = d
	r.log.Debugw("phase done", map[string]any{"run_id": r.id, "phase": name, "seconds": d.Seconds()})
	if err := r.sink.RecordPhase(metrics.PhaseEvent{RunID: r.id, Phase: name, Duration: d, Time: r.now()}); err != nil {
		r.log.Warnf("record phase %s: %v", name, err)
	}
	r.publish(Progress{Phase: name, Done: true})
	return nil
}

func (r *run) publish(ev Progress) {
	if r.bus == nil {
		return
	}
	ev.RunID, ev.Time = r.id, r.now()
	r.bus.Publish(ev)
}

func (r *run) deviations() {
	for _, d := range r.report.Transitions.Deviations() {
		r.log.Warnf("run %s: transition row of action %d sums to %.9f", r.id, d.Action, d.Sum)
		ev := metrics.RowDeviationEvent{RunID: r.id, Action: d.Action, Sum: d.Sum, Time: r.now()}
		if err := r.sink.RecordRowDeviation(ev); err != nil {
			r.log.Warnf("record row deviation: %v", err)
		}
	}
}

func (r *run) space() {
	rec, ok := r.sink.(metrics.SpaceRecorder)
	if !ok {
		return
	}
	ev := metrics.SpaceEvent{
		RunID:       r.id,
		States:      r.report.States.Len(),
		Infeasible:  r.report.States.Infeasible(),
		Actions:     r.report.Actions.Len(),
		Transitions: r.report.Transitions.NonZero(),
		Time:        r.now(),
	}
	if err := rec.RecordSpace(ev); err != nil {
		r.log.Warnf("record space: %v", err)
	}
}

func (r *run) summary() {
	rec, ok := r.sink.(metrics.SummaryRecorder)
	if !ok {
		return
	}
	ev := metrics.SummaryEvent{
		RunID:       r.id,
		Algorithm:   r.report.Algorithm,
		States:      r.report.States.Len(),
		Actions:     r.report.Actions.Len(),
		Trials:      r.report.Summary.Trials,
		MeanRevenue: r.report.Summary.Mean,
		StdDev:      r.report.Summary.StdDev,
		Time:        r.now(),
	}
	if v := r.report.InitialValue; v.IsFeasible() {
		f := v.Float()
		ev.InitialValue = &f
	}
	if err := rec.RecordSummary(ev); err != nil {
		r.log.Warnf("record summary: %v", err)
	}
}
