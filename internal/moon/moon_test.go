package moon

import (
	"testing"
	"time"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/sun"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

func TestDistanceStaysInOrbitBounds(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, at := range timeutil.Samples(start, start.AddDate(0, 2, 0), 6*time.Hour) {
		d := EclipticApprox(timeutil.ET(at)).Distance
		if d < 355000 || d > 407500 {
			t.Fatalf("Moon distance at %v = %.0f km, outside perigee/apogee bounds", at, d)
		}
	}
}

// On 2024-04-08 (total solar eclipse, greatest eclipse ≈ 18:17 UTC) the
// Moon and Sun are within a degree of each other as seen from Earth's centre.
func TestNearConjunctionAtSolarEclipse(t *testing.T) {
	et := timeutil.ET(time.Date(2024, time.April, 8, 18, 17, 0, 0, time.UTC))
	sep := geom.SeparationDeg(sunVec(et), moonVec(et))
	if sep > 1.0 {
		t.Fatalf("Sun-Moon separation = %.3f°, want < 1°", sep)
	}
	t.Logf("separation at greatest eclipse: %.3f°", sep)
}

// On 2025-03-14 (total lunar eclipse, greatest ≈ 06:59 UTC) the Moon is
// within a degree of the anti-Sun direction.
func TestNearOppositionAtLunarEclipse(t *testing.T) {
	et := timeutil.ET(time.Date(2025, time.March, 14, 6, 59, 0, 0, time.UTC))
	sep := geom.SeparationDeg(sunVec(et), moonVec(et))
	if 180-sep > 1.0 {
		t.Fatalf("180° - separation = %.3f°, want < 1°", 180-sep)
	}
}

func sunVec(et float64) md3.Vec {
	e := sun.EclipticApprox(et)
	return geom.FromSpherical(timeutil.Deg2Rad(e.Lon), 0, e.Distance)
}

func moonVec(et float64) md3.Vec {
	e := EclipticApprox(et)
	return geom.FromSpherical(timeutil.Deg2Rad(e.Lon), timeutil.Deg2Rad(e.Lat), e.Distance)
}
