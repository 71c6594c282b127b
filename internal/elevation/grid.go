// Package elevation acquires square grids of elevation samples from a lookup service or an image.
package elevation

import (
	"context"

	"github.com/Faultbox/geomesh/internal/geo"
)

// Sample is one elevation in metres at a location.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Grid is a row-major Resolution×Resolution arrangement of elevations,
// together with the physical size and vertical scale meshes should use.
type Grid struct {
	Resolution  int
	Elevations  []float64  // index i*Resolution+j
	Samples     []Sample   // remote lookups only, same order as Elevations
	Extent      geo.Extent // kilometres for remote grids, pixels for images
	HeightScale float32
}

// Len returns the number of elevations held, which a well-formed grid has Resolution² of.
func (g *Grid) Len() int {
	return len(g.Elevations)
}

// Sample returns the elevation at row i, column j.
func (g *Grid) Sample(i, j int) float64 {
	return g.Elevations[i*g.Resolution+j]
}

// Source produces an elevation grid. Acquire blocks until the whole grid is available.
type Source interface {
	Acquire(ctx context.Context) (*Grid, error)
}
