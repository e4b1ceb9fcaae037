package nimbus

import (
	"math"

	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/unit"
)

// GeoPoint is a point on the Earth's surface.
type GeoPoint struct {
	Latitude, Longitude float64 // degrees
}

func (e *Environment) site() globe.Coord {
	// globe measures longitude positive westward.
	return globe.Coord{Lat: unit.AngleFromDeg(e.Latitude), Lon: unit.AngleFromDeg(-e.Longitude)}
}

// LatLon returns the geodetic position of a point offset by x metres east and y metres north of the launch site.
func (e *Environment) LatLon(x, y float64) GeoPoint {
	lat := e.Latitude + Rad2deg(y/meanEarthR)
	lon := e.Longitude + Rad2deg(x/(meanEarthR*math.Cos(Deg2rad(e.Latitude))))
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return GeoPoint{lat, lon}
}

// RangeFromPad returns the ellipsoidal surface distance in metres between the launch site and the provided point.
func (e *Environment) RangeFromPad(p GeoPoint) float64 {
	if p.Latitude == e.Latitude && p.Longitude == e.Longitude {
		return 0
	}
	pt := globe.Coord{Lat: unit.AngleFromDeg(p.Latitude), Lon: unit.AngleFromDeg(-p.Longitude)}
	return globe.Earth76.Distance(e.site(), pt) * 1e3
}
