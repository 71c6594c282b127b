package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umahmood/haversine"
)

func TestDistanceKmIdentity(t *testing.T) {
	points := []Point{
		{0, 0},
		{45.5, -122.6},
		{-33.9, 151.2},
		{89.9, 179.9},
		{-90, -180},
	}
	for _, p := range points {
		if got := DistanceKm(p.Latitude, p.Longitude, p.Latitude, p.Longitude); got != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", p, p, got)
		}
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {0, 1}},
		{{46.5, 7.9}, {46.6, 8.1}},
		{{-12.04, -77.03}, {40.71, -74.0}},
		{{37.7336, -119.5866}, {37.7337, -119.5865}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		ab := DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
		ba := DistanceKm(b.Latitude, b.Longitude, a.Latitude, a.Longitude)
		if ab != ba {
			t.Errorf("DistanceKm not symmetric for %v/%v: %v vs %v", a, b, ab, ba)
		}
	}
}

func TestDistanceKmEquatorDegree(t *testing.T) {
	got := DistanceKm(0, 0, 0, 1)
	assert.InDelta(t, 111.19, got, 0.2)
	// Exact arc length of one degree on the equatorial radius.
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, got, 1e-9)
}

func TestDistanceKmNaN(t *testing.T) {
	if got := DistanceKm(math.NaN(), 0, 0, 1); !math.IsNaN(got) {
		t.Errorf("expected NaN, got %v", got)
	}
}

func TestDistanceKmShortSpan(t *testing.T) {
	// One millionth of a degree along the equator is ~11 cm; must not collapse to zero.
	got := DistanceKm(0, 0, 0, 1e-6)
	want := EarthRadiusKm * 1e-6 * math.Pi / 180
	assert.InEpsilon(t, want, got, 1e-9)
}

func TestDistanceKmMatchesReferenceImplementations(t *testing.T) {
	cases := [][4]float64{
		{37.685097, -119.674018, 37.816173, -119.443466},
		{28.413539, 86.467738, 27.543224, 87.400420},
		{66.750108, -25.731168, 62.881496, -12.699955},
	}
	for _, c := range cases {
		got := DistanceKm(c[0], c[1], c[2], c[3])

		// umahmood/haversine uses a 6371 km mean radius.
		_, km := haversine.Distance(haversine.Coord{Lat: c[0], Lon: c[1]}, haversine.Coord{Lat: c[2], Lon: c[3]})
		assert.InEpsilon(t, km*EarthRadiusKm/6371, got, 1e-9)

		angle := NewPoint(c[0], c[1]).LatLng().Distance(NewPoint(c[2], c[3]).LatLng())
		assert.InEpsilon(t, angle.Radians()*EarthRadiusKm, got, 1e-9)
	}
}

func TestComputeExtent(t *testing.T) {
	e := ComputeExtent(0, 0, 1, 2)
	assert.InDelta(t, 2*111.3195, float64(e.Width), 0.01)
	assert.InDelta(t, 111.3195, float64(e.Height), 0.01)

	// Width is measured along the start latitude, so it shrinks away from the equator.
	north := ComputeExtent(60, 0, 61, 1)
	assert.InDelta(t, float64(north.Height), 111.3195, 0.01)
	assert.InDelta(t, 111.3195*math.Cos(60*math.Pi/180), float64(north.Width), 0.01)
}

func TestComputeExtentEllipsoid(t *testing.T) {
	sphere := ComputeExtent(46.5, 7.9, 46.7, 8.2)
	ellipsoid := ComputeExtentEllipsoid(46.5, 7.9, 46.7, 8.2)

	// Both models agree to within half a percent at mid latitudes.
	assert.InEpsilon(t, sphere.Width, ellipsoid.Width, 0.005)
	assert.InEpsilon(t, sphere.Height, ellipsoid.Height, 0.005)
}

func TestParseDistanceModel(t *testing.T) {
	tests := []struct {
		in      string
		want    DistanceModel
		wantErr bool
	}{
		{"", Haversine, false},
		{"haversine", Haversine, false},
		{"wgs84", WGS84, false},
		{"flat", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDistanceModel(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
