// Package eclipse scans a time window for approximate solar and lunar
// eclipses with a fixed-step geometric test on Sun and Moon vectors seen
// from Earth's centre.
package eclipse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/observability"
	"github.com/thurmanmarka/umbra/internal/solver"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// DefaultStep is the spacing of the time samples.
const DefaultStep = time.Hour

// ErrInvalidStep is returned for a non-positive step.
var ErrInvalidStep = errors.New("scan step must be positive")

// Policy decides what happens when a slot that already holds a candidate
// is hit again.
type Policy int

const (
	// First keeps the earliest hit of each kind.
	First Policy = iota
	// Last overwrites the slot on every hit, so the last hit before the scan
	// stops is kept.
	Last
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "first" or "last".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "":
		return First, nil
	case "last":
		return Last, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}

// Kind is the eclipse type.
type Kind int

const (
	Solar Kind = iota
	Lunar
)

func (k Kind) String() string {
	if k == Lunar {
		return "lunar"
	}
	return "solar"
}

// Event is one eclipse candidate.
type Event struct {
	Kind       Kind      `json:"-"`
	Time       time.Time `json:"time"`
	ET         float64   `json:"et"`
	Calendar   string    `json:"calendar"`
	Separation float64   `json:"separation_deg"` // Sun-Moon separation at Time
	Threshold  float64   `json:"threshold_deg"`  // angle the tested value fell below
	Refined    bool      `json:"refined"`        // Time was moved back to the threshold crossing
}

// Result is the outcome of one scan. A nil event means none was found.
type Result struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Solar *Event    `json:"solar"`
	Lunar *Event    `json:"lunar"`
	Steps int       `json:"steps"`
}

// Config controls a Scanner.
type Config struct {
	Step      time.Duration
	Criterion Criterion
	Policy    Policy
	Refine    time.Duration // bisection tolerance; 0 disables refinement
}

// DefaultConfig is a one-hour umbral scan keeping the first hit.
func DefaultConfig() Config {
	return Config{Step: DefaultStep, Criterion: Umbral, Policy: First}
}

// Scanner runs eclipse scans against one provider.
type Scanner struct {
	provider ephem.Provider
	cfg      Config
	log      logging.Logger
	metrics  *observability.Collector
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Collector) Option {
	return func(s *Scanner) { s.metrics = m }
}

// NewScanner returns a scanner reading from p.
func NewScanner(p ephem.Provider, cfg Config, opts ...Option) *Scanner {
	s := &Scanner{provider: p, cfg: cfg, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Scan steps through [start, end) and returns the eclipse candidates. It
// stops early once both kinds have a candidate. An end not after start
// performs no steps.
func (s *Scanner) Scan(ctx context.Context, start, end time.Time) (res Result, err error) {
	res = Result{Start: start, End: end}
	if s.cfg.Step <= 0 {
		return res, ErrInvalidStep
	}

	ctx, span := observability.Tracer().Start(ctx, "eclipse.Scan", trace.WithAttributes(
		attribute.String("provider", s.provider.Name()),
		attribute.String("criterion", s.cfg.Criterion.String()),
		attribute.String("start", start.Format(time.RFC3339)),
		attribute.String("end", end.Format(time.RFC3339)),
	))
	began := time.Now()
	defer func() {
		span.SetAttributes(attribute.Int("steps", res.Steps))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveScan(s.cfg.Criterion.String(), res.Steps, res.Solar != nil, res.Lunar != nil, time.Since(began), err)
	}()

	startET, endET := timeutil.ET(start), timeutil.ET(end)
	step := s.cfg.Step.Seconds()
	n := stepCount(startET, endET, step)

	for i := 0; i < n; i++ {
		et := startET + float64(i)*step
		if err := ctx.Err(); err != nil {
			return res, err
		}

		g, err := s.measure(et)
		if err != nil {
			return res, fmt.Errorf("scan step at ET %.3f: %w", et, err)
		}
		res.Steps++

		if margin, threshold := g.SolarMargin(s.cfg.Criterion); margin < 0 && s.record(res.Solar) {
			ev, err := s.event(ctx, Solar, et, math.Max(et-step, startET), res.Solar == nil, g.Separation, threshold, start, end)
			if err != nil {
				return res, err
			}
			res.Solar = ev
		}
		if margin, threshold := g.LunarMargin(s.cfg.Criterion); margin < 0 && s.record(res.Lunar) {
			ev, err := s.event(ctx, Lunar, et, math.Max(et-step, startET), res.Lunar == nil, g.Separation, threshold, start, end)
			if err != nil {
				return res, err
			}
			res.Lunar = ev
		}

		if res.Solar != nil && res.Lunar != nil {
			break
		}
	}

	s.log.Info(ctx, "eclipse scan finished",
		logging.String("provider", s.provider.Name()),
		logging.String("criterion", s.cfg.Criterion.String()),
		logging.Int("steps", res.Steps),
		logging.String("solar", calendarOf(res.Solar)),
		logging.String("lunar", calendarOf(res.Lunar)),
	)
	return res, nil
}

// record reports whether a hit should be written to a slot.
func (s *Scanner) record(slot *Event) bool {
	return slot == nil || s.cfg.Policy == Last
}

func (s *Scanner) event(ctx context.Context, kind Kind, et, prevET float64, firstHit bool, sep, threshold float64, start, end time.Time) (*Event, error) {
	ev := &Event{Kind: kind, ET: et, Separation: sep, Threshold: threshold}

	if firstHit && s.cfg.Refine > 0 && prevET < et {
		margin := func(t float64) (float64, error) {
			g, err := s.measure(t)
			if err != nil {
				return 0, err
			}
			if kind == Solar {
				m, _ := g.SolarMargin(s.cfg.Criterion)
				return m, nil
			}
			m, _ := g.LunarMargin(s.cfg.Criterion)
			return m, nil
		}
		r, err := solver.FindCrossing(margin, prevET, et, solver.CrossingDown, s.cfg.Refine.Seconds())
		switch {
		case err == nil:
			g, err := s.measure(r.ET)
			if err != nil {
				return nil, err
			}
			ev.ET, ev.Separation, ev.Refined = r.ET, g.Separation, true
			if kind == Solar {
				_, ev.Threshold = g.SolarMargin(s.cfg.Criterion)
			} else {
				_, ev.Threshold = g.LunarMargin(s.cfg.Criterion)
			}
		case errors.Is(err, solver.ErrNoBracket):
			// the preceding sample already satisfied the test: keep et
		default:
			return nil, fmt.Errorf("refine %v eclipse: %w", kind, err)
		}
	}

	ev.Time = clamp(timeutil.TimeFromET(ev.ET), start, end)
	ev.Calendar = timeutil.Calendar(ev.Time)

	s.log.Debug(ctx, "eclipse candidate",
		logging.String("kind", kind.String()),
		logging.String("at", ev.Calendar),
		logging.Float("separation_deg", ev.Separation),
		logging.Float("threshold_deg", ev.Threshold),
	)
	return ev, nil
}

// measure fetches the Sun and Moon relative to Earth and derives the angles.
func (s *Scanner) measure(et float64) (Geometry, error) {
	sunState, err := s.provider.State(ephem.Sun, ephem.Earth, et)
	if err != nil {
		return Geometry{}, err
	}
	moonState, err := s.provider.State(ephem.Moon, ephem.Earth, et)
	if err != nil {
		return Geometry{}, err
	}
	return Measure(sunState.Position, moonState.Position), nil
}

// stepCount is the number of samples start, start+step, ... strictly before
// end. The ET difference carries float noise, so near-integral ratios are
// snapped before rounding up.
func stepCount(startET, endET, step float64) int {
	if !(endET > startET) {
		return 0
	}
	return int(math.Ceil((endET-startET)/step - 1e-9))
}

// clamp keeps millisecond rounding from pushing an instant out of
// [start, end).
func clamp(t, start, end time.Time) time.Time {
	if t.Before(start) {
		return start
	}
	if !t.Before(end) {
		return end.Add(-time.Millisecond)
	}
	return t
}

func calendarOf(ev *Event) string {
	if ev == nil {
		return "none"
	}
	return ev.Calendar
}
