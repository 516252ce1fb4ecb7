package render

import (
	"context"
	"sync"
	"time"

	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/logging"
	"github.com/thurmanmarka/umbra/internal/observability"
)

// DefaultInterval is the redraw period of the live task.
const DefaultInterval = time.Second

// Clock supplies the instant each frame is sampled at.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock samples the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Task is the live redraw loop. Every tick it samples the provider at the
// clock's current instant, stores the result as the current State and hands
// it to every registered surface.
type Task struct {
	Interval time.Duration
	Frames   int // stop after this many frames; 0 runs until cancelled

	provider ephem.Provider
	clock    Clock
	log      logging.Logger
	metrics  *observability.Collector

	mu       sync.RWMutex
	eclipses eclipse.Result
	surfaces []Surface
	state    State
	frame    int
}

// TaskOption customises a Task.
type TaskOption func(*Task)

// WithClock replaces the wall clock.
func WithClock(c Clock) TaskOption {
	return func(t *Task) { t.clock = c }
}

// WithTaskLogger sets the task logger.
func WithTaskLogger(l logging.Logger) TaskOption {
	return func(t *Task) {
		if l != nil {
			t.log = l
		}
	}
}

// WithTaskMetrics sets the metrics collector.
func WithTaskMetrics(m *observability.Collector) TaskOption {
	return func(t *Task) { t.metrics = m }
}

// NewTask constructs a task drawing the candidates of res.
func NewTask(p ephem.Provider, res eclipse.Result, opts ...TaskOption) *Task {
	t := &Task{
		Interval: DefaultInterval,
		provider: p,
		clock:    SystemClock,
		log:      logging.Noop(),
		eclipses: res,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddSurface registers a surface drawn on every frame.
func (t *Task) AddSurface(s Surface) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.surfaces = append(t.surfaces, s)
}

// SetEclipses replaces the candidates shown from the next frame on.
func (t *Task) SetEclipses(res eclipse.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eclipses = res
}

// State returns the latest frame. ok is false before the first frame.
func (t *Task) State() (s State, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.frame > 0
}

// Step renders one frame.
func (t *Task) Step(ctx context.Context) (State, error) {
	t.mu.RLock()
	res := t.eclipses
	t.mu.RUnlock()

	s, err := Snapshot(t.provider, t.clock.Now(), res)
	if err != nil {
		return State{}, err
	}

	t.mu.Lock()
	t.frame++
	s.Frame = t.frame
	t.state = s
	surfaces := append([]Surface(nil), t.surfaces...)
	t.mu.Unlock()

	t.metrics.ObserveFrame()
	for _, surf := range surfaces {
		if err := surf.Draw(ctx, s); err != nil {
			t.log.Warn(ctx, "surface draw failed", logging.Int("frame", s.Frame), logging.Err(err))
		}
	}
	return s, nil
}

// Run draws a frame immediately and then once per Interval until ctx is
// done or Frames frames have been drawn. A provider failure stops the task
// and is returned; surface failures are logged and skipped.
func (t *Task) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	drawn := 0
	for {
		if _, err := t.Step(ctx); err != nil {
			t.log.Error(ctx, "live frame failed", logging.Err(err))
			return err
		}
		drawn++
		if t.Frames > 0 && drawn >= t.Frames {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Start runs the task on its own goroutine. The returned channel receives
// Run's result and is then closed.
func (t *Task) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- t.Run(ctx)
	}()
	return done
}
