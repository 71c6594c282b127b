package simplify

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// quadric is the 4×4 error matrix of a set of planes. vᵀQv is the summed
// squared distance of homogeneous point v to those planes.
type quadric struct {
	m *mat.SymDense
}

func newQuadric() quadric {
	return quadric{m: mat.NewSymDense(4, nil)}
}

// addPlane accumulates weight·ppᵀ for the plane n·x + d = 0, n unit length.
func (q quadric) addPlane(n r3.Vec, d, weight float64) {
	p := mat.NewVecDense(4, []float64{n.X, n.Y, n.Z, d})
	q.m.SymRankOne(q.m, weight, p)
}

func (q quadric) add(other quadric) {
	q.m.AddSym(q.m, other.m)
}

// errorAt evaluates (a+b) at point v without modifying either quadric.
func errorAt(a, b quadric, v r3.Vec) float64 {
	sum := mat.NewSymDense(4, nil)
	sum.AddSym(a.m, b.m)
	x := mat.NewVecDense(4, []float64{v.X, v.Y, v.Z, 1})
	return mat.Inner(x, sum, x)
}
