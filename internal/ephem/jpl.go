package ephem

import (
	"fmt"
	"sync"

	"github.com/mshafiee/jpleph"
	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// jplProvider reads a JPL DE binary file. The underlying reader keeps a
// record cache, so lookups are serialised.
type jplProvider struct {
	mu   sync.Mutex
	eph  *jpleph.Ephemeris
	path string
	auKm float64
}

// OpenJPL loads the DE file at path.
func OpenJPL(path string) (Provider, error) {
	if path == "" {
		return nil, ErrNoKernel
	}
	eph, err := jpleph.NewEphemeris(path, false)
	if err != nil {
		return nil, fmt.Errorf("open ephemeris %s: %w", path, err)
	}

	auKm := eph.GetEphemerisDouble(jpleph.AUinKM)
	if auKm <= 0 {
		auKm = geom.AUKm
	}
	return &jplProvider{eph: eph, path: path, auKm: auKm}, nil
}

func (j *jplProvider) Name() string { return ModeJPL.String() }

// Close releases the DE file. It is safe to call more than once.
func (j *jplProvider) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.eph == nil {
		return nil
	}
	err := j.eph.Close()
	j.eph = nil
	return err
}

// Range returns the Julian ephemeris dates covered by the file.
func (j *jplProvider) Range() (startJD, endJD float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.eph.GetEphemerisDouble(jpleph.EphemerisStartJD), j.eph.GetEphemerisDouble(jpleph.EphemerisEndJD)
}

func (j *jplProvider) State(target, observer Body, et float64) (StateVector, error) {
	t, err := jplTarget(target)
	if err != nil {
		return StateVector{}, err
	}
	c, err := jplCenter(observer)
	if err != nil {
		return StateVector{}, err
	}

	j.mu.Lock()
	if j.eph == nil {
		j.mu.Unlock()
		return StateVector{}, fmt.Errorf("ephemeris %s is closed", j.path)
	}
	pos, vel, err := j.eph.CalculatePV(timeutil.JDE(et), t, c, true)
	j.mu.Unlock()
	if err != nil {
		return StateVector{}, fmt.Errorf("%v from %v at ET %.3f: %w", target, observer, et, err)
	}

	kmPerSec := j.auKm / timeutil.SecondsPerDay
	return StateVector{
		Target:   target,
		Observer: observer,
		ET:       et,
		Frame:    FrameJ2000,
		Position: md3.Scale(j.auKm, md3.Vec{X: pos.X, Y: pos.Y, Z: pos.Z}),
		Velocity: md3.Scale(kmPerSec, md3.Vec{X: vel.DX, Y: vel.DY, Z: vel.DZ}),
	}, nil
}

func jplTarget(b Body) (jpleph.Planet, error) {
	switch b {
	case Sun:
		return jpleph.Sun, nil
	case Earth:
		return jpleph.Earth, nil
	case Moon:
		return jpleph.Moon, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownBody, b)
	}
}

func jplCenter(b Body) (jpleph.CenterBody, error) {
	switch b {
	case Sun:
		return jpleph.CenterSun, nil
	case Earth:
		return jpleph.CenterEarth, nil
	case Moon:
		return jpleph.CenterMoon, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownBody, b)
	}
}
