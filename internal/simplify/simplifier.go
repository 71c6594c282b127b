// Package simplify reduces terrain meshes to a fraction of their triangles.
//
// A Simplifier holds its own copy of a base mesh and always simplifies from
// that copy, so asking for 0.5 and then 0.8 gives the same result as asking
// for 0.8 directly.
package simplify

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/logger"
	"github.com/Faultbox/geomesh/internal/terrain"
)

// ErrNotInitialized is returned by Simplify and Extract before Initialize.
var ErrNotInitialized = errors.New("simplifier not initialized")

// DefaultBoundaryWeight scales the planes that pin the mesh outline.
const DefaultBoundaryWeight = 1000.0

// Simplifier performs quadric-error edge collapse on an initialized mesh.
type Simplifier struct {
	boundaryWeight float64
	base           *terrain.Mesh
	result         *terrain.Mesh
	quality        float64
}

// New creates a simplifier with the default boundary weight.
func New() *Simplifier {
	return NewWithBoundaryWeight(DefaultBoundaryWeight)
}

// NewWithBoundaryWeight creates a simplifier; larger weights keep the outline more rigid.
func NewWithBoundaryWeight(weight float64) *Simplifier {
	if weight < 0 {
		weight = 0
	}
	return &Simplifier{boundaryWeight: weight}
}

// Initialize binds a private copy of mesh. Later changes to mesh do not affect the simplifier.
func (s *Simplifier) Initialize(mesh *terrain.Mesh) {
	s.base = mesh.Clone()
	s.result = s.base
	s.quality = 1
}

// Quality returns the quality of the current result.
func (s *Simplifier) Quality() float64 {
	return s.quality
}

// Simplify reduces the base mesh to roughly quality·triangles, at least one triangle.
// quality is clamped to [0, 1]; 1 keeps every triangle.
func (s *Simplifier) Simplify(quality float64) error {
	if s.base == nil {
		return ErrNotInitialized
	}
	if math.IsNaN(quality) {
		return fmt.Errorf("invalid quality %v", quality)
	}
	quality = min(max(quality, 0), 1)

	total := s.base.TriangleCount()
	target := max(1, int(math.Round(quality*float64(total))))

	s.quality = quality
	if target >= total {
		s.result = s.base
		return nil
	}

	c := newCollapser(s.base, s.boundaryWeight)
	c.run(target)
	s.result = c.mesh(s.base)

	logger.Named("simplify").Debug("simplified mesh",
		zap.Float64("quality", quality),
		zap.Int("target", target),
		zap.Int("triangles", s.result.TriangleCount()),
		zap.Int("base_triangles", total))
	return nil
}

// Extract returns the current result as a mesh the caller owns.
func (s *Simplifier) Extract() (*terrain.Mesh, error) {
	if s.result == nil {
		return nil, ErrNotInitialized
	}
	return s.result.Clone(), nil
}
