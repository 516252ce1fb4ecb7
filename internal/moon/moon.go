package moon

import (
	"math"

	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// Ecliptic holds the Moon's geocentric ecliptic coordinates in degrees and
// its distance from Earth's centre in km.
type Ecliptic struct {
	Lon      float64 // degrees, 0–360
	Lat      float64 // degrees
	Distance float64 // km
}

// EclipticApprox returns the Moon's approximate geocentric ecliptic position
// at ephemeris time et.
//
// This is a medium-precision model using a small set of dominant periodic
// terms. Roughly based on truncated Meeus-style series:
//
//	L'  = mean longitude of the Moon
//	M   = mean anomaly of the Sun
//	Mm  = mean anomaly of the Moon
//	D   = mean elongation of the Moon from the Sun
//	F   = argument of latitude of the Moon
func EclipticApprox(et float64) Ecliptic {
	d := timeutil.DaysSinceJ2000(et)

	// All linear coefficients here are in deg/day.
	Lprime := timeutil.Normalize360(218.3164477 + 13.17639648*d)
	M := timeutil.Normalize360(357.5291092 + 0.98560028*d)
	Mm := timeutil.Normalize360(134.9633964 + 13.06499295*d)
	D := timeutil.Normalize360(297.8501921 + 12.19074912*d)
	F := timeutil.Normalize360(93.2720950 + 13.22935024*d)

	Mr := timeutil.Deg2Rad(M)
	Mmr := timeutil.Deg2Rad(Mm)
	Dr := timeutil.Deg2Rad(D)
	Fr := timeutil.Deg2Rad(F)

	// λ ≈ L' + 6.289 sin(Mm) + 1.274 sin(2D − Mm)
	//      + 0.658 sin(2D) + 0.214 sin(2Mm) − 0.186 sin(M)
	//      − 0.114 sin(2F)
	lon := Lprime +
		6.289*math.Sin(Mmr) +
		1.274*math.Sin(2*Dr-Mmr) +
		0.658*math.Sin(2*Dr) +
		0.214*math.Sin(2*Mmr) -
		0.186*math.Sin(Mr) -
		0.114*math.Sin(2*Fr)

	// β ≈ 5.128 sin(F) + 0.280 sin(Mm + F)
	//      + 0.277 sin(Mm − F) + 0.173 sin(2D − F)
	lat := 5.128*math.Sin(Fr) +
		0.280*math.Sin(Mmr+Fr) +
		0.277*math.Sin(Mmr-Fr) +
		0.173*math.Sin(2*Dr-Fr)

	// Δ with the five largest distance terms.
	delta := 385000.56 -
		20905.0*math.Cos(Mmr) -
		3699.0*math.Cos(2*Dr-Mmr) -
		2956.0*math.Cos(2*Dr) -
		570.0*math.Cos(2*Mmr) -
		246.0*math.Cos(2*Dr+Mmr)

	return Ecliptic{
		Lon:      timeutil.Normalize360(lon),
		Lat:      lat,
		Distance: delta,
	}
}
