// Package ephem supplies body-relative position and velocity vectors for the
// Sun, Earth and Moon.
//
// A Provider is opened once, queried with an ephemeris time (TDB seconds past
// J2000, see timeutil.ET) and closed once. Three providers exist:
//
//   - approx: low-precision analytic series, no data files
//   - meeus:  Meeus series via github.com/soniakeys/meeus, no data files
//   - jpl:    JPL DE binary files via github.com/mshafiee/jpleph
package ephem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/observability"
)

// Body identifies a solar-system body known to the providers.
type Body int

const (
	Sun Body = iota
	Earth
	Moon
)

// String returns the lowercase body name.
func (b Body) String() string {
	switch b {
	case Sun:
		return "sun"
	case Earth:
		return "earth"
	case Moon:
		return "moon"
	default:
		return fmt.Sprintf("body(%d)", int(b))
	}
}

// NAIF returns the NAIF integer id of the body.
func (b Body) NAIF() int {
	switch b {
	case Sun:
		return 10
	case Earth:
		return 399
	case Moon:
		return 301
	default:
		return 0
	}
}

// FrameJ2000 is the Earth mean equator and equinox of J2000, the frame of
// every StateVector.
const FrameJ2000 = "J2000"

// StateVector is the position (km) and velocity (km/s) of Target relative
// to Observer at ephemeris time ET.
type StateVector struct {
	Target   Body
	Observer Body
	ET       float64
	Frame    string
	Position md3.Vec // km
	Velocity md3.Vec // km/s
}

// Distance returns the norm of the position in km.
func (s StateVector) Distance() float64 {
	return md3.Norm(s.Position)
}

// Provider is an ephemeris source.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// State returns the state of target relative to observer at et.
	State(target, observer Body, et float64) (StateVector, error)

	// Close releases any data loaded by the provider.
	Close() error
}

var (
	// ErrUnknownBody is returned for a body the provider cannot serve.
	ErrUnknownBody = errors.New("unknown body")

	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("unknown ephemeris provider")

	// ErrNoKernel is returned when the jpl provider is opened without a file.
	ErrNoKernel = errors.New("jpl provider requires an ephemeris file")
)

// Mode selects a provider implementation.
type Mode int

const (
	ModeMeeus Mode = iota
	ModeApprox
	ModeJPL
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMeeus:
		return "meeus"
	case ModeApprox:
		return "approx"
	case ModeJPL:
		return "jpl"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meeus", "":
		return ModeMeeus, nil
	case "approx":
		return ModeApprox, nil
	case "jpl", "de":
		return ModeJPL, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownMode, s)
	}
}

// Options configure Open.
type Options struct {
	Mode    Mode
	Kernel  string                   // DE file for ModeJPL
	Metrics *observability.Collector // optional lookup counters
}

// Open opens the provider selected by opts.
func Open(opts Options) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch opts.Mode {
	case ModeMeeus:
		p = NewMeeus()
	case ModeApprox:
		p = NewApprox()
	case ModeJPL:
		p, err = OpenJPL(opts.Kernel)
	default:
		err = fmt.Errorf("%w: mode %d", ErrUnknownMode, int(opts.Mode))
	}
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		p = Instrument(p, opts.Metrics)
	}
	return p, nil
}
