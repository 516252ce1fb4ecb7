package ephem

import (
	"fmt"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/moon"
	"github.com/thurmanmarka/umbra/internal/sun"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// velocityStep is the half-width in seconds of the central difference used
// for analytic velocities.
const velocityStep = 60.0

// geocentricFunc returns the position of the Sun or the Moon relative to
// Earth in km at ephemeris time et, J2000 equatorial frame.
type geocentricFunc func(body Body, et float64) md3.Vec

// analytic turns a geocentric Sun/Moon model into a Provider. Any pair of
// bodies is served as geo(target) - geo(observer) with geo(Earth) = 0.
type analytic struct {
	name string
	geo  geocentricFunc
}

// NewApprox returns the low-precision analytic provider.
func NewApprox() Provider {
	return &analytic{name: ModeApprox.String(), geo: approxGeocentric}
}

// NewMeeus returns the provider backed by the Meeus series.
func NewMeeus() Provider {
	return &analytic{name: ModeMeeus.String(), geo: meeusGeocentric}
}

func (a *analytic) Name() string { return a.name }

func (a *analytic) Close() error { return nil }

func (a *analytic) State(target, observer Body, et float64) (StateVector, error) {
	if err := checkBody(target); err != nil {
		return StateVector{}, err
	}
	if err := checkBody(observer); err != nil {
		return StateVector{}, err
	}

	pos := a.relative(target, observer, et)
	ahead := a.relative(target, observer, et+velocityStep)
	behind := a.relative(target, observer, et-velocityStep)

	return StateVector{
		Target:   target,
		Observer: observer,
		ET:       et,
		Frame:    FrameJ2000,
		Position: pos,
		Velocity: md3.Scale(1/(2*velocityStep), md3.Sub(ahead, behind)),
	}, nil
}

func (a *analytic) relative(target, observer Body, et float64) md3.Vec {
	return md3.Sub(a.at(target, et), a.at(observer, et))
}

func (a *analytic) at(b Body, et float64) md3.Vec {
	if b == Earth {
		return md3.Vec{}
	}
	return a.geo(b, et)
}

func checkBody(b Body) error {
	switch b {
	case Sun, Earth, Moon:
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnknownBody, b)
	}
}

func approxGeocentric(body Body, et float64) md3.Vec {
	jde := timeutil.JDE(et)
	switch body {
	case Sun:
		e := sun.EclipticApprox(et)
		return toJ2000(unit.AngleFromDeg(e.Lon), 0, e.Distance, jde)
	case Moon:
		e := moon.EclipticApprox(et)
		return toJ2000(unit.AngleFromDeg(e.Lon), unit.AngleFromDeg(e.Lat), e.Distance, jde)
	default:
		return md3.Vec{}
	}
}

func meeusGeocentric(body Body, et float64) md3.Vec {
	jde := timeutil.JDE(et)
	switch body {
	case Sun:
		T := base.J2000Century(jde)
		lon, _ := solar.True(T)
		return toJ2000(lon, 0, solar.Radius(T)*geom.AUKm, jde)
	case Moon:
		lon, lat, dist := moonposition.Position(jde)
		return toJ2000(lon, lat, dist, jde)
	default:
		return md3.Vec{}
	}
}
