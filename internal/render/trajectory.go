// Package render turns provider states into the trajectory sequences, the
// live render state and the text panels shown by the display surfaces.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/soypat/geometry/md3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thurmanmarka/umbra/internal/ephem"
	"github.com/thurmanmarka/umbra/internal/observability"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// Sample is one point of the precomputed trajectories. Moon is the Moon
// relative to the Sun, i.e. Earth + MoonFromEarth.
type Sample struct {
	At            time.Time `json:"at"`
	ET            float64   `json:"et"`
	Earth         md3.Vec   `json:"earth"`           // Earth from Sun, km
	MoonFromEarth md3.Vec   `json:"moon_from_earth"` // km
	Moon          md3.Vec   `json:"moon"`            // Moon from Sun, km
}

// Trajectory is the ordered sample sequence of one simulation run.
type Trajectory []Sample

// Earth returns the Earth path.
func (t Trajectory) Earth() []md3.Vec {
	out := make([]md3.Vec, len(t))
	for i, s := range t {
		out[i] = s.Earth
	}
	return out
}

// Moon returns the Moon path.
func (t Trajectory) Moon() []md3.Vec {
	out := make([]md3.Vec, len(t))
	for i, s := range t {
		out[i] = s.Moon
	}
	return out
}

// Precompute fetches Earth relative to the Sun and the Moon relative to
// Earth at start, start+step, ... strictly before end. An end not after
// start gives an empty trajectory.
func Precompute(ctx context.Context, p ephem.Provider, start, end time.Time, step time.Duration) (Trajectory, error) {
	ctx, span := observability.Tracer().Start(ctx, "render.Precompute", trace.WithAttributes(
		attribute.String("provider", p.Name()),
		attribute.String("step", step.String()),
	))
	defer span.End()

	instants := timeutil.Samples(start, end, step)
	out := make(Trajectory, 0, len(instants))
	for _, at := range instants {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s, err := sampleAt(p, at)
		if err != nil {
			span.RecordError(err)
			return out, err
		}
		out = append(out, s)
	}
	span.SetAttributes(attribute.Int("samples", len(out)))
	return out, nil
}

func sampleAt(p ephem.Provider, at time.Time) (Sample, error) {
	et := timeutil.ET(at)
	earth, err := p.State(ephem.Earth, ephem.Sun, et)
	if err != nil {
		return Sample{}, fmt.Errorf("earth at %s: %w", timeutil.Calendar(at), err)
	}
	moon, err := p.State(ephem.Moon, ephem.Earth, et)
	if err != nil {
		return Sample{}, fmt.Errorf("moon at %s: %w", timeutil.Calendar(at), err)
	}
	return Sample{
		At:            at,
		ET:            et,
		Earth:         earth.Position,
		MoonFromEarth: moon.Position,
		Moon:          md3.Add(earth.Position, moon.Position),
	}, nil
}
