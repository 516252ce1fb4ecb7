// Package geom holds the small amount of vector geometry shared by the
// ephemeris providers and the eclipse scanner.
package geom

import (
	"math"

	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/timeutil"
)

// Mean body radii in km.
const (
	EarthRadiusKm = 6378.1
	MoonRadiusKm  = 1737.4
	SunRadiusKm   = 695700.0
)

// AUKm is the astronomical unit in km (IAU 2012).
const AUKm = 149597870.7

// Separation returns the angle in radians between a and b. It uses the
// atan2 form so that nearly parallel and nearly opposite vectors keep full
// precision. A zero vector has zero separation from anything.
func Separation(a, b md3.Vec) float64 {
	if md3.Norm2(a) == 0 || md3.Norm2(b) == 0 {
		return 0
	}
	return math.Atan2(md3.Norm(md3.Cross(a, b)), md3.Dot(a, b))
}

// SeparationDeg is Separation in degrees.
func SeparationDeg(a, b md3.Vec) float64 {
	return timeutil.Rad2Deg(Separation(a, b))
}

// HalfAngleDeg returns the half-angle in degrees subtended by a sphere of
// radius r seen from distance d. Inside the sphere it is 90°.
func HalfAngleDeg(r, d float64) float64 {
	if d <= r {
		return 90
	}
	return timeutil.Rad2Deg(math.Asin(r / d))
}

// FromSpherical builds a rectangular vector from longitude and latitude in
// radians and a distance.
func FromSpherical(lon, lat, dist float64) md3.Vec {
	cosLat := math.Cos(lat)
	return md3.Vec{
		X: dist * cosLat * math.Cos(lon),
		Y: dist * cosLat * math.Sin(lon),
		Z: dist * math.Sin(lat),
	}
}

// EclipticToEquatorial rotates an ecliptic vector about X by the obliquity
// eps (radians).
func EclipticToEquatorial(v md3.Vec, eps float64) md3.Vec {
	sinE, cosE := math.Sincos(eps)
	return md3.Vec{
		X: v.X,
		Y: v.Y*cosE - v.Z*sinE,
		Z: v.Y*sinE + v.Z*cosE,
	}
}
