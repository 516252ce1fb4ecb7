package eclipse

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/observability"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

var (
	// Total lunar eclipse, greatest eclipse near 06:59 UTC.
	lunarGreatest = time.Date(2025, time.March, 14, 6, 59, 0, 0, time.UTC)
	// Total solar eclipse, greatest eclipse near 18:17 UTC.
	solarGreatest = time.Date(2024, time.April, 8, 18, 17, 0, 0, time.UTC)
)

func scan(t *testing.T, p ephem.Provider, cfg Config, start, end time.Time) Result {
	t.Helper()
	res, err := NewScanner(p, cfg).Scan(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Scan(%v, %v): %v", start, end, err)
	}
	return res
}

func within(t *testing.T, what string, got, want time.Time, tol time.Duration) {
	t.Helper()
	if d := got.Sub(want); d < -tol || d > tol {
		t.Errorf("%s at %v, want within %v of %v", what, got, tol, want)
	}
}

func TestScanFindsLunarEclipse(t *testing.T) {
	for _, p := range []ephem.Provider{ephem.NewMeeus(), ephem.NewApprox()} {
		t.Run(p.Name(), func(t *testing.T) {
			start, end := date(2025, time.March, 13, 0), date(2025, time.March, 16, 0)
			res := scan(t, p, DefaultConfig(), start, end)

			if res.Lunar == nil {
				t.Fatalf("no lunar eclipse found in %v..%v", start, end)
			}
			within(t, "lunar eclipse", res.Lunar.Time, lunarGreatest, 3*time.Hour)
			if got := 180 - res.Lunar.Separation; got >= res.Lunar.Threshold {
				t.Errorf("180-separation %.4f not below threshold %.4f", got, res.Lunar.Threshold)
			}
			if res.Lunar.Kind != Lunar {
				t.Errorf("Kind = %v", res.Lunar.Kind)
			}
			if res.Lunar.Calendar == "" {
				t.Error("empty calendar string")
			}
		})
	}
}

func TestScanFindsSolarEclipseWithContact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Criterion = Contact
	start, end := date(2024, time.April, 7, 0), date(2024, time.April, 10, 0)

	res := scan(t, ephem.NewMeeus(), cfg, start, end)
	if res.Solar == nil {
		t.Fatalf("no solar eclipse found in %v..%v", start, end)
	}
	within(t, "solar eclipse", res.Solar.Time, solarGreatest, 4*time.Hour)
	if res.Solar.Separation >= res.Solar.Threshold {
		t.Errorf("separation %.4f not below threshold %.4f", res.Solar.Separation, res.Solar.Threshold)
	}
	if res.Lunar != nil {
		t.Errorf("unexpected lunar eclipse at %v", res.Lunar.Time)
	}
}

func TestScanNoEclipse(t *testing.T) {
	start, end := date(2024, time.May, 1, 0), date(2024, time.May, 5, 0)
	for _, c := range []Criterion{Umbral, Contact} {
		cfg := DefaultConfig()
		cfg.Criterion = c
		res := scan(t, ephem.NewMeeus(), cfg, start, end)
		if res.Solar != nil || res.Lunar != nil {
			t.Errorf("%v: unexpected eclipses: solar=%v lunar=%v", c, res.Solar, res.Lunar)
		}
		if res.Steps != 96 {
			t.Errorf("%v: Steps = %d, want 96", c, res.Steps)
		}
	}
}

func TestScanEmptyWindow(t *testing.T) {
	start := date(2024, time.April, 8, 0)
	for _, end := range []time.Time{start, start.Add(-time.Hour)} {
		res := scan(t, ephem.NewMeeus(), DefaultConfig(), start, end)
		if res.Steps != 0 || res.Solar != nil || res.Lunar != nil {
			t.Errorf("end %v: got %+v, want an empty result", end, res)
		}
	}
}

func TestScanInvalidStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Step = 0
	_, err := NewScanner(ephem.NewMeeus(), cfg).Scan(context.Background(), date(2024, 1, 1, 0), date(2024, 1, 2, 0))
	if !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("err = %v, want ErrInvalidStep", err)
	}
}

func TestScanInstantsInsideWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Criterion = Contact
	cfg.Refine = time.Second

	// The window opens mid-eclipse: the first sample already hits and the
	// reported onset is the window start.
	start, end := date(2025, time.March, 14, 7), date(2025, time.March, 14, 9)
	res := scan(t, ephem.NewMeeus(), cfg, start, end)
	if res.Lunar == nil {
		t.Fatal("no lunar eclipse found")
	}
	for _, ev := range []*Event{res.Solar, res.Lunar} {
		if ev == nil {
			continue
		}
		if ev.Time.Before(start) || !ev.Time.Before(end) {
			t.Errorf("%v event at %v outside [%v, %v)", ev.Kind, ev.Time, start, end)
		}
	}
	if !res.Lunar.Time.Equal(start) {
		t.Errorf("lunar event at %v, want the window start", res.Lunar.Time)
	}
}

func TestScanPolicy(t *testing.T) {
	start, end := date(2025, time.March, 13, 0), date(2025, time.March, 16, 0)

	first := scan(t, ephem.NewMeeus(), DefaultConfig(), start, end)
	cfg := DefaultConfig()
	cfg.Policy = Last
	last := scan(t, ephem.NewMeeus(), cfg, start, end)

	if first.Lunar == nil || last.Lunar == nil {
		t.Fatal("lunar eclipse missing")
	}
	if !last.Lunar.Time.After(first.Lunar.Time) {
		t.Errorf("last hit %v not after first hit %v", last.Lunar.Time, first.Lunar.Time)
	}
	// No solar candidate, so both scans run to the end of the window.
	if first.Steps != 72 || last.Steps != 72 {
		t.Errorf("Steps = %d / %d, want 72", first.Steps, last.Steps)
	}
}

func TestScanRefine(t *testing.T) {
	start, end := date(2025, time.March, 13, 0), date(2025, time.March, 16, 0)
	coarse := scan(t, ephem.NewMeeus(), DefaultConfig(), start, end)

	cfg := DefaultConfig()
	cfg.Refine = time.Second
	fine := scan(t, ephem.NewMeeus(), cfg, start, end)

	if coarse.Lunar == nil || fine.Lunar == nil {
		t.Fatal("lunar eclipse missing")
	}
	if !fine.Lunar.Refined {
		t.Error("Refined = false")
	}
	lead := coarse.Lunar.Time.Sub(fine.Lunar.Time)
	if lead <= 0 || lead >= time.Hour {
		t.Errorf("refined onset %v, coarse hit %v", fine.Lunar.Time, coarse.Lunar.Time)
	}
	margin := (180 - fine.Lunar.Separation) - fine.Lunar.Threshold
	if margin >= 0 || margin < -0.01 {
		t.Errorf("margin at refined onset = %.5f°, want just below zero", margin)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewScanner(ephem.NewMeeus(), DefaultConfig()).Scan(ctx, date(2024, 1, 1, 0), date(2024, 2, 1, 0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Steps != 0 {
		t.Errorf("Steps = %d after cancellation", res.Steps)
	}
}

var errBoom = errors.New("boom")

type failing struct {
	ephem.Provider
	after int
	calls int
}

func (f *failing) State(target, observer ephem.Body, et float64) (ephem.StateVector, error) {
	f.calls++
	if f.calls > f.after {
		return ephem.StateVector{}, errBoom
	}
	return f.Provider.State(target, observer, et)
}

func TestScanProviderError(t *testing.T) {
	p := &failing{Provider: ephem.NewMeeus(), after: 10}
	res, err := NewScanner(p, DefaultConfig()).Scan(context.Background(), date(2024, 1, 1, 0), date(2024, 2, 1, 0))
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped errBoom", err)
	}
	if res.Steps != 5 {
		t.Errorf("Steps = %d, want 5 completed steps", res.Steps)
	}
}

func TestScanMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	s := NewScanner(ephem.NewMeeus(), DefaultConfig(), WithMetrics(m))
	if _, err := s.Scan(context.Background(), date(2025, time.March, 13, 0), date(2025, time.March, 16, 0)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := testutil.ToFloat64(m.ScanSteps); got != 72 {
		t.Errorf("scan steps = %v, want 72", got)
	}
	if got := testutil.ToFloat64(m.Eclipses.WithLabelValues("lunar")); got != 1 {
		t.Errorf("lunar eclipses = %v, want 1", got)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": First, "first": First, "LAST": Last} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("middle"); err == nil {
		t.Error("ParsePolicy(middle) succeeded")
	}
}

func TestStepCount(t *testing.T) {
	tests := []struct {
		start, end, step float64
		want             int
	}{
		{0, 3600, 3600, 1},
		{0, 3601, 3600, 2},
		{100.184, 100.184 + 96*3600, 3600, 96},
		{10, 10, 1, 0},
		{10, 5, 1, 0},
	}
	for _, tt := range tests {
		if got := stepCount(tt.start, tt.end, tt.step); got != tt.want {
			t.Errorf("stepCount(%v, %v, %v) = %d, want %d", tt.start, tt.end, tt.step, got, tt.want)
		}
	}
	if got := stepCount(0, math.NaN(), 1); got != 0 {
		t.Errorf("stepCount with NaN end = %d", got)
	}
}
