// Package umbra computes Earth and Moon motion around the Sun from an
// ephemeris provider and scans date windows for approximate solar and lunar
// eclipses.
//
// The public API is a thin layer over the internal packages so callers do
// not have to wire providers, scanners and trajectories themselves:
//
//   - OpenProvider selects the approx, meeus or jpl ephemeris
//   - NextEclipses / NextEclipsesWith scan [start, end) for candidates
//   - Trajectories precomputes Earth and Moon positions relative to the Sun
//   - MoonPhaseAt derives the Moon phase from the same vectors
package umbra

import (
	"context"
	"math"
	"time"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/eclipse"
	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/render"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

type (
	// Provider is an ephemeris source.
	Provider = ephem.Provider
	// Body identifies the Sun, Earth or Moon.
	Body = ephem.Body
	// StateVector is a position/velocity pair of one body relative to another.
	StateVector = ephem.StateVector

	// ScanConfig controls an eclipse scan.
	ScanConfig = eclipse.Config
	// Eclipses is the outcome of a scan.
	Eclipses = eclipse.Result
	// Event is one eclipse candidate.
	Event = eclipse.Event

	// Trajectory is the precomputed sample sequence of a window.
	Trajectory = render.Trajectory
)

const (
	Sun   = ephem.Sun
	Earth = ephem.Earth
	Moon  = ephem.Moon
)

// Criteria and policies for ScanConfig.
const (
	Umbral  = eclipse.Umbral
	Contact = eclipse.Contact
	First   = eclipse.First
	Last    = eclipse.Last
)

// OpenProvider opens the provider named mode ("approx", "meeus" or "jpl").
// kernel is the DE file used by jpl and ignored otherwise.
func OpenProvider(mode, kernel string) (Provider, error) {
	m, err := ephem.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return ephem.Open(ephem.Options{Mode: m, Kernel: kernel})
}

// DefaultScanConfig is an hourly umbral scan keeping the first hit.
func DefaultScanConfig() ScanConfig {
	return eclipse.DefaultConfig()
}

// NextEclipses scans [start, end) hourly with the umbral tests.
func NextEclipses(ctx context.Context, p Provider, start, end time.Time) (Eclipses, error) {
	return NextEclipsesWith(ctx, p, start, end, DefaultScanConfig())
}

// NextEclipsesWith scans [start, end) with cfg.
func NextEclipsesWith(ctx context.Context, p Provider, start, end time.Time, cfg ScanConfig) (Eclipses, error) {
	return eclipse.NewScanner(p, cfg).Scan(ctx, start, end)
}

// Trajectories returns hourly Earth and Moon positions relative to the Sun
// over [start, end).
func Trajectories(ctx context.Context, p Provider, start, end time.Time) (Trajectory, error) {
	return render.Precompute(ctx, p, start, end, time.Hour)
}

// SeparationDeg returns the angle between two vectors in degrees.
func SeparationDeg(a, b md3.Vec) float64 {
	return geom.SeparationDeg(a, b)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return timeutil.ParseDate(s)
}

// Calendar formats t like "2024 APR 08 18:00:00.000".
func Calendar(t time.Time) string {
	return timeutil.Calendar(t)
}

// MoonPhase describes the illuminated fraction and qualitative phase
// of the Moon at a given instant.
type MoonPhase struct {
	Time       time.Time // the instant this phase is evaluated at
	Fraction   float64   // illuminated fraction [0..1], 0=new, 1=full
	Elongation float64   // Sun-Moon angular separation in degrees [0..180]
	Waxing     bool      // true if waxing (illumination increasing), false if waning
	Name       string    // e.g. "New Moon", "Waxing Crescent", "First Quarter", ...
}

// MoonPhaseAt returns the Moon phase at t from the geocentric Sun and Moon
// vectors of p. New and full moons are where solar and lunar eclipses can
// happen.
func MoonPhaseAt(p Provider, t time.Time) (MoonPhase, error) {
	et := timeutil.ET(t)
	sunState, err := p.State(Sun, Earth, et)
	if err != nil {
		return MoonPhase{}, err
	}
	moonState, err := p.State(Moon, Earth, et)
	if err != nil {
		return MoonPhase{}, err
	}

	elong := geom.SeparationDeg(sunState.Position, moonState.Position)

	// k = (1 - cos ψ) / 2
	fraction := 0.5 * (1 - math.Cos(timeutil.Deg2Rad(elong)))
	fraction = math.Max(0, math.Min(1, fraction))

	// Waxing while the Moon's right ascension leads the Sun's by less than
	// 180 degrees.
	raSun := timeutil.Rad2Deg(math.Atan2(sunState.Position.Y, sunState.Position.X))
	raMoon := timeutil.Rad2Deg(math.Atan2(moonState.Position.Y, moonState.Position.X))
	waxing := timeutil.Normalize360(raMoon-raSun) < 180.0

	return MoonPhase{
		Time:       t,
		Fraction:   fraction,
		Elongation: elong,
		Waxing:     waxing,
		Name:       classifyMoonPhaseName(fraction, waxing),
	}, nil
}

func classifyMoonPhaseName(f float64, waxing bool) string {
	const (
		eps        = 0.01 // near 0 or 1
		quarterTol = 0.05 // fraction window around 0.5
	)

	switch {
	case f < eps:
		return "New Moon"
	case f > 1-eps:
		return "Full Moon"
	case math.Abs(f-0.5) < quarterTol:
		if waxing {
			return "First Quarter"
		}
		return "Last Quarter"
	case f < 0.5:
		if waxing {
			return "Waxing Crescent"
		}
		return "Waning Crescent"
	default:
		if waxing {
			return "Waxing Gibbous"
		}
		return "Waning Gibbous"
	}
}
