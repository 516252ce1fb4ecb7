package sun

import (
	"math"

	"github.com/thurmanmarka/umbra/internal/geom"
	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// Ecliptic holds the Sun's geocentric ecliptic longitude (degrees, 0–360)
// and its distance from Earth in km. The latitude is taken as zero.
type Ecliptic struct {
	Lon      float64 // ecliptic longitude, degrees
	Distance float64 // km
}

// EclipticApprox returns the Sun's approximate geocentric ecliptic position
// at ephemeris time et.
//
// This is a standard low-precision solar model, good to about 0.01° in
// longitude:
//
//	g  = mean anomaly of the Sun
//	q  = mean longitude of the Sun
//	L  = ecliptic longitude of the Sun
//	R  = distance in AU
func EclipticApprox(et float64) Ecliptic {
	d := timeutil.DaysSinceJ2000(et)

	g := timeutil.Deg2Rad(357.529 + 0.98560028*d)
	q := 280.459 + 0.98564736*d

	// Ecliptic longitude with equation of center
	L := q + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)

	R := 1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)

	return Ecliptic{
		Lon:      timeutil.Normalize360(L),
		Distance: R * geom.AUKm,
	}
}
