package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/geomesh/internal/geo"
)

// ErrDimensionMismatch is returned when a grid does not hold resolution² samples.
var ErrDimensionMismatch = errors.New("grid sample count does not match resolution")

// Build creates a heightfield mesh from an R×R elevation grid.
//
// Vertex (i, j) sits at x = i/(R-1)·width, z = j/(R-1)·height, y = sample·heightScale
// and has index i·R+j. Each cell emits (topLeft, topRight, bottomLeft) and
// (topRight, bottomRight, bottomLeft), which faces +Y for a flat grid.
// Resolutions below 2 yield a mesh without triangles.
func Build(grid HeightSampler, resolution int, extent geo.Extent, heightScale float32) (*Mesh, error) {
	if resolution < 0 {
		resolution = 0
	}
	if grid.Len() != resolution*resolution {
		return nil, fmt.Errorf("%w: have %d samples, want %d (resolution %d)",
			ErrDimensionMismatch, grid.Len(), resolution*resolution, resolution)
	}

	vertices := make([]Vertex, resolution*resolution)

	// Guard R=1 against a zero divisor; its single vertex lands at the origin.
	denom := float32(1)
	if resolution > 1 {
		denom = float32(resolution - 1)
	}

	for i := range resolution {
		u := float32(i) / denom
		for j := range resolution {
			v := float32(j) / denom
			vertices[i*resolution+j] = Vertex{
				Position: [3]float32{
					u * extent.Width,
					float32(grid.Sample(i, j)) * heightScale,
					v * extent.Height,
				},
				TexCoord: [2]float32{u, v},
			}
		}
	}

	cells := max(resolution-1, 0)
	indices := make([]uint32, 0, cells*cells*6)
	r := uint32(resolution)
	for i := range cells {
		for j := range cells {
			topLeft := uint32(i)*r + uint32(j)
			topRight := topLeft + 1
			bottomLeft := topLeft + r
			bottomRight := bottomLeft + 1

			indices = append(indices,
				topLeft, topRight, bottomLeft,
				topRight, bottomRight, bottomLeft,
			)
		}
	}

	mesh := &Mesh{
		Name:     "Map Mesh",
		Vertices: vertices,
		Indices:  indices,
	}
	Finalize(mesh)
	return mesh, nil
}

// VertexIndex returns the buffer index of grid vertex (i, j).
func VertexIndex(i, j, resolution int) int {
	return i*resolution + j
}
