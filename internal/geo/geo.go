// Package geo converts latitude/longitude boxes into physical distances and sample grids.
package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tidwall/geodesic"
)

// EarthRadiusKm is the equatorial radius used by the haversine distance.
const EarthRadiusKm = 6378.137

// DistanceModel selects how a box is turned into a physical extent.
type DistanceModel string

const (
	// Haversine treats the Earth as a sphere of radius EarthRadiusKm.
	Haversine DistanceModel = "haversine"
	// WGS84 solves the inverse geodesic problem on the WGS84 ellipsoid.
	WGS84 DistanceModel = "wgs84"
)

// ParseDistanceModel validates a model name. Empty means Haversine.
func ParseDistanceModel(name string) (DistanceModel, error) {
	switch DistanceModel(name) {
	case "", Haversine:
		return Haversine, nil
	case WGS84:
		return WGS84, nil
	}
	return "", fmt.Errorf("unknown distance model %q", name)
}

// Point is a geographic position in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// NewPoint creates a point from degrees.
func NewPoint(lat, lon float64) Point {
	return Point{Latitude: lat, Longitude: lon}
}

// LatLng returns the point as an s2.LatLng.
func (p Point) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// Extent is the physical size of a sampled area in kilometres.
type Extent struct {
	Width  float32
	Height float32
}

// DistanceKm returns the haversine great-circle distance between two points given in degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ComputeExtent measures width along the start latitude and height along the start longitude.
func ComputeExtent(startLat, startLon, endLat, endLon float64) Extent {
	return Extent{
		Width:  float32(DistanceKm(startLat, startLon, startLat, endLon)),
		Height: float32(DistanceKm(startLat, startLon, endLat, startLon)),
	}
}

// ComputeExtentEllipsoid is ComputeExtent on the WGS84 ellipsoid.
func ComputeExtentEllipsoid(startLat, startLon, endLat, endLon float64) Extent {
	var width, height float64
	geodesic.WGS84.Inverse(startLat, startLon, startLat, endLon, &width, nil, nil)
	geodesic.WGS84.Inverse(startLat, startLon, endLat, startLon, &height, nil, nil)
	return Extent{
		Width:  float32(width / 1000),
		Height: float32(height / 1000),
	}
}

func radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}
