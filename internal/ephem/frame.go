package ephem

import (
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"
	"github.com/soypat/geometry/md3"

	"github.com/thurmanmarka/umbra/internal/geom"
)

// j2000Obliquity is the mean obliquity of the ecliptic at J2000 in radians.
var j2000Obliquity = nutation.MeanObliquity(base.J2000).Rad()

// toJ2000 precesses a geocentric ecliptic position referred to the mean
// equinox of jde onto the J2000 ecliptic and returns it on the J2000 equator.
func toJ2000(lon, lat unit.Angle, dist, jde float64) md3.Vec {
	p := precess.NewEclipticPrecessor(base.JDEToJulianYear(jde), 2000)
	ecl := p.Precess(&coord.Ecliptic{Lon: lon, Lat: lat}, &coord.Ecliptic{})
	return geom.EclipticToEquatorial(geom.FromSpherical(ecl.Lon.Rad(), ecl.Lat.Rad(), dist), j2000Obliquity)
}
