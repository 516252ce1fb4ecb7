package eclipse

import (
	"fmt"
	"strings"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/geom"
)

// Criterion selects the threshold tests applied at each step.
type Criterion int

const (
	// Umbral compares the Sun-Moon separation against Earth's half-angle at
	// the Sun's distance (solar) and 180° minus the separation against
	// Earth's half-angle at the Moon's distance (lunar).
	Umbral Criterion = iota

	// Contact reports a solar eclipse when the lunar and solar discs can
	// touch for some observer on Earth, and a lunar eclipse when the Moon's
	// disc reaches Earth's penumbra.
	Contact
)

// String returns the criterion name.
func (c Criterion) String() string {
	switch c {
	case Umbral:
		return "umbral"
	case Contact:
		return "contact"
	default:
		return fmt.Sprintf("criterion(%d)", int(c))
	}
}

// ParseCriterion parses "umbral" or "contact".
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "umbral", "":
		return Umbral, nil
	case "contact":
		return Contact, nil
	default:
		return 0, fmt.Errorf("unknown criterion %q", s)
	}
}

// shadowEnlargement is the customary 2% widening of Earth's shadow by the
// atmosphere.
const shadowEnlargement = 1.02

// Geometry is the angular configuration at one instant, all angles in
// degrees.
type Geometry struct {
	Separation float64 // Sun-Moon angle seen from Earth's centre

	SunDistance  float64 // km
	MoonDistance float64 // km

	EarthUmbra  float64 // Earth's half-angle at the Sun's distance
	MoonShadow  float64 // Moon's half-angle at the Moon's distance
	EarthShadow float64 // Earth's half-angle at the Moon's distance
	SunRadius   float64 // Sun's half-angle at the Sun's distance
}

// Measure computes the geometry from the Sun and Moon positions relative to
// Earth.
func Measure(sunFromEarth, moonFromEarth md3.Vec) Geometry {
	sunDist := md3.Norm(sunFromEarth)
	moonDist := md3.Norm(moonFromEarth)
	return Geometry{
		Separation:   geom.SeparationDeg(sunFromEarth, moonFromEarth),
		SunDistance:  sunDist,
		MoonDistance: moonDist,
		EarthUmbra:   geom.HalfAngleDeg(geom.EarthRadiusKm, sunDist),
		MoonShadow:   geom.HalfAngleDeg(geom.MoonRadiusKm, moonDist),
		EarthShadow:  geom.HalfAngleDeg(geom.EarthRadiusKm, moonDist),
		SunRadius:    geom.HalfAngleDeg(geom.SunRadiusKm, sunDist),
	}
}

// SolarMargin returns the amount by which the solar test misses: negative
// while the test holds. The value and the threshold are in degrees.
func (g Geometry) SolarMargin(c Criterion) (margin, threshold float64) {
	switch c {
	case Contact:
		threshold = g.SunRadius + g.MoonShadow + g.EarthShadow - g.EarthUmbra
	default:
		threshold = g.EarthUmbra
	}
	return g.Separation - threshold, threshold
}

// LunarMargin returns the amount by which the lunar test misses: negative
// while the test holds. The value compared is 180° minus the separation.
func (g Geometry) LunarMargin(c Criterion) (margin, threshold float64) {
	switch c {
	case Contact:
		threshold = shadowEnlargement*(g.EarthShadow+g.EarthUmbra+g.SunRadius) + g.MoonShadow
	default:
		threshold = g.EarthShadow
	}
	return (180 - g.Separation) - threshold, threshold
}
