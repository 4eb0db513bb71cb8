// Package app wires the configuration to the optimisation pipeline and its
// outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kilianp07/drtmdp/config"
	coremetrics "github.com/kilianp07/drtmdp/core/metrics"
	"github.com/kilianp07/drtmdp/core/model"
	coremon "github.com/kilianp07/drtmdp/core/monitoring"
	"github.com/kilianp07/drtmdp/core/pipeline"
	"github.com/kilianp07/drtmdp/core/runlog"
	"github.com/kilianp07/drtmdp/infra/loader"
	"github.com/kilianp07/drtmdp/infra/logger"
	"github.com/kilianp07/drtmdp/infra/metrics"
	"github.com/kilianp07/drtmdp/infra/monitoring"
	"github.com/kilianp07/drtmdp/internal/eventbus"
	"github.com/kilianp07/drtmdp/pkg/export"
)

// Service runs solves described by a configuration.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	sink     coremetrics.Sink
	store    runlog.Store
	bus      *eventbus.TypedBus[pipeline.Progress]
	monitor  coremon.Monitor
	pipeline *pipeline.Pipeline
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := openRunLog(cfg.Output.RunLog)
	if err != nil {
		coremetrics.Close(sink)
		return nil, fmt.Errorf("run log: %w", err)
	}
	bus := eventbus.NewTyped[pipeline.Progress]()
	return &Service{
		cfg:      cfg,
		log:      logg,
		sink:     sink,
		store:    store,
		bus:      bus,
		monitor:  mon,
		pipeline: pipeline.New(logger.New("pipeline"), sink, bus),
	}, nil
}

func openRunLog(c config.RunLogConfig) (runlog.Store, error) {
	switch {
	case c.Path == "":
		return runlog.NopStore{}, nil
	case c.Rotating():
		return runlog.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	default:
		return runlog.NewJSONLStore(c.Path)
	}
}

// Options assembles the pipeline options from the configuration.
func Options(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Params:        cfg.Params(),
		Solver:        cfg.Solver.Module(),
		Gamma:         cfg.Solver.Gamma,
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: cfg.Solver.MaxIterations,
		InitialValue:  cfg.Solver.InitialValue,
		Transition:    cfg.Transition.Options(),
		Simulation:    cfg.Simulation.Simulator(),
		Trials:        cfg.Simulation.Trials,
		Workers:       cfg.Workers,
	}
}

// Run loads the instance, solves it, writes the outputs and appends the run
// to the run log. The /metrics endpoint, when configured, is served for the
// duration of the run.
func (s *Service) Run(ctx context.Context) (*pipeline.Report, error) {
	in, err := loader.Load(s.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	if addr := s.cfg.Metrics.Listen; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	sub := s.bus.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.watch(ctx, sub)
	}()
	defer func() {
		s.bus.Unsubscribe(sub)
		cancel()
		wg.Wait()
	}()

	rep, err := s.pipeline.Run(ctx, in, Options(s.cfg))
	if err != nil {
		s.report(rep, err)
		return rep, err
	}
	if err := s.write(rep); err != nil {
		return rep, err
	}
	if err := s.store.Append(ctx, rep.Record(s.cfg.Params(), time.Now())); err != nil {
		return rep, fmt.Errorf("append run log: %w", err)
	}
	return rep, nil
}

func (s *Service) report(rep *pipeline.Report, err error) {
	tags := map[string]string{"algorithm": s.cfg.Solver.Algorithm}
	if rep != nil {
		tags["run_id"] = rep.RunID
	}
	var pe *pipeline.PhaseError
	if errors.As(err, &pe) {
		tags["phase"] = pe.Phase
	}
	if coremon.Report(s.monitor, err, tags) {
		s.log.Debugf("error reported as %s", coremon.Kind(err))
	}
}

// Monitor returns the error tracker. Deferring its Recover method reports
// panics before they propagate.
func (s *Service) Monitor() coremon.Monitor { return s.monitor }

// Count sizes the configured instance.
func (s *Service) Count(ctx context.Context) (pipeline.Counts, error) {
	in, err := loader.Load(s.cfg.Input)
	if err != nil {
		return pipeline.Counts{}, fmt.Errorf("load input: %w", err)
	}
	return pipeline.Count(ctx, in, s.cfg.Params(), s.cfg.Workers)
}

func (s *Service) watch(ctx context.Context, sub <-chan pipeline.Progress) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch {
			case ev.Done:
				s.log.Debugf("%s done", ev.Phase)
			case ev.Total > 0:
				s.log.Debugf("%s %d/%d", ev.Phase, ev.Step, ev.Total)
			default:
				s.log.Infof("%s started", ev.Phase)
			}
		}
	}
}

func (s *Service) write(rep *pipeline.Report) error {
	out := s.cfg.Output
	if out.Revenue != "" {
		err := writeFile(out.Revenue, func(f *os.File) error {
			if out.Format == "json" {
				return export.WriteRevenueJSON(f, rep.Trials)
			}
			return export.WriteRevenueCSV(f, rep.Trials)
		})
		if err != nil {
			return fmt.Errorf("write revenue: %w", err)
		}
		s.log.Infof("revenue of %d trials written to %s", len(rep.Trials), out.Revenue)
	}
	if out.Trace != "" && !s.cfg.Simulation.Trace {
		s.log.Warnf("output.trace is set but simulation.trace is off, trace not written")
	} else if out.Trace != "" {
		err := writeFile(out.Trace, func(f *os.File) error {
			return export.WriteTraceCSV(f, rep.Trials, rep.States, rep.Service)
		})
		if err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}
	if out.Chart != "" && len(rep.Trials) > 0 {
		err := writeFile(out.Chart, func(f *os.File) error {
			return export.WriteRevenueChart(f, rep.Trials, out.ChartBins)
		})
		if err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// History returns the logged runs matching q.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	return s.store.Query(ctx, q)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	coremetrics.Close(s.sink)
	s.monitor.Flush(2 * time.Second)
	return s.store.Close()
}

// Value formats a solver value for display.
func Value(v model.Value) string {
	if !v.IsFeasible() {
		return "infeasible"
	}
	return fmt.Sprintf("%.6f", v.Float())
}
