// Package sim runs one simulation: parse the date window, scan it for
// eclipses and precompute the trajectories the live surfaces draw.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/observability"
	"github.com/thurmanmarka/umbra/internal/render"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

var (
	// ErrInvalidDate marks a malformed start or end field.
	ErrInvalidDate = errors.New("invalid date")

	// ErrWindowTooLong marks a request window longer than the simulator's
	// limit.
	ErrWindowTooLong = errors.New("simulation window too long")
)

// Request holds the two date fields of a run, "YYYY-MM-DD".
type Request struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Run is the result of one simulation.
type Run struct {
	Provider   string            `json:"provider"`
	Criterion  string            `json:"criterion"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Step       time.Duration     `json:"step"`
	Eclipses   eclipse.Result    `json:"eclipses"`
	Trajectory render.Trajectory `json:"trajectory"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// Simulator owns the provider and scan settings shared by every run.
type Simulator struct {
	provider ephem.Provider
	cfg      eclipse.Config
	log      logging.Logger
	metrics  *observability.Collector

	maxWindow time.Duration
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithMaxWindow bounds the window Simulate accepts. Zero means no bound.
func WithMaxWindow(d time.Duration) Option {
	return func(s *Simulator) { s.maxWindow = d }
}

// New returns a simulator. The logger and collector may be nil.
func New(p ephem.Provider, cfg eclipse.Config, log logging.Logger, m *observability.Collector, opts ...Option) *Simulator {
	if log == nil {
		log = logging.Noop()
	}
	s := &Simulator{provider: p, cfg: cfg, log: log, metrics: m}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the ephemeris provider runs read from.
func (s *Simulator) Provider() ephem.Provider { return s.provider }

// Simulate parses req and runs it. Malformed dates and windows longer than
// the configured limit fail before any ephemeris lookup.
func (s *Simulator) Simulate(ctx context.Context, req Request) (*Run, error) {
	start, err := timeutil.ParseDate(req.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %w", ErrInvalidDate, err)
	}
	end, err := timeutil.ParseDate(req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %w", ErrInvalidDate, err)
	}
	// Sub saturates, so windows past time.Duration's range still compare.
	if s.maxWindow > 0 && end.Sub(start) > s.maxWindow {
		return nil, fmt.Errorf("%w: %s .. %s exceeds %v", ErrWindowTooLong, req.Start, req.End, s.maxWindow)
	}
	return s.SimulateWindow(ctx, start, end)
}

// SimulateWindow scans [start, end) and precomputes its trajectory.
func (s *Simulator) SimulateWindow(ctx context.Context, start, end time.Time) (*Run, error) {
	ctx, span := observability.Tracer().Start(ctx, "sim.Simulate", trace.WithAttributes(
		attribute.String("start", start.Format(time.RFC3339)),
		attribute.String("end", end.Format(time.RFC3339)),
	))
	defer span.End()

	if !end.After(start) {
		s.log.Warn(ctx, "empty simulation window",
			logging.Time("start", start), logging.Time("end", end))
	}

	began := time.Now()
	scanner := eclipse.NewScanner(s.provider, s.cfg,
		eclipse.WithLogger(s.log), eclipse.WithMetrics(s.metrics))
	res, err := scanner.Scan(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("eclipse scan: %w", err)
	}

	traj, err := render.Precompute(ctx, s.provider, start, end, s.cfg.Step)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("precompute trajectory: %w", err)
	}

	run := &Run{
		Provider:   s.provider.Name(),
		Criterion:  s.cfg.Criterion.String(),
		Start:      start,
		End:        end,
		Step:       s.cfg.Step,
		Eclipses:   res,
		Trajectory: traj,
		Elapsed:    time.Since(began),
	}
	s.log.Info(ctx, "simulation finished",
		logging.String("start", timeutil.Calendar(start)),
		logging.String("end", timeutil.Calendar(end)),
		logging.Int("samples", len(traj)),
		logging.Duration("elapsed", run.Elapsed),
	)
	return run, nil
}

// Live returns the redraw task for run.
func (s *Simulator) Live(run *Run, opts ...render.TaskOption) *render.Task {
	base := []render.TaskOption{render.WithTaskLogger(s.log), render.WithTaskMetrics(s.metrics)}
	return render.NewTask(s.provider, run.Eclipses, append(base, opts...)...)
}
