package terrain

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var up = r3.Vec{Y: 1}

// Finalize recomputes normals, bounds and tangents from positions, UVs and indices.
func Finalize(m *Mesh) {
	RecalculateNormals(m)
	RecalculateBounds(m)
	RecalculateTangents(m)
}

// RecalculateNormals sets each vertex normal to the area-weighted average of its face normals.
// Vertices without faces point straight up.
func RecalculateNormals(m *Mesh) {
	sums := make([]r3.Vec, len(m.Vertices))

	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		p0 := position(m, a)
		// Unnormalized cross product: its length is twice the face area.
		n := r3.Cross(r3.Sub(position(m, b), p0), r3.Sub(position(m, c), p0))
		sums[a] = r3.Add(sums[a], n)
		sums[b] = r3.Add(sums[b], n)
		sums[c] = r3.Add(sums[c], n)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = toArray3(unitOr(sums[i], up))
	}
}

// RecalculateBounds sets the axis-aligned box around all vertex positions.
func RecalculateBounds(m *Mesh) {
	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}

	b := Bounds{
		Min: [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := range m.Vertices {
		updateBounds(&b, m.Vertices[i].Position)
	}
	m.Bounds = b
}

// RecalculateTangents derives per-vertex tangents from the UV parameterization.
// Normals must be current. The tangent is orthogonalized against the normal and
// w records whether the bitangent follows cross(normal, tangent).
func RecalculateTangents(m *Mesh) {
	tan := make([]r3.Vec, len(m.Vertices))
	bitan := make([]r3.Vec, len(m.Vertices))

	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		p0, p1, p2 := position(m, a), position(m, b), position(m, c)
		w0, w1, w2 := m.Vertices[a].TexCoord, m.Vertices[b].TexCoord, m.Vertices[c].TexCoord

		e1 := r3.Sub(p1, p0)
		e2 := r3.Sub(p2, p0)
		du1, dv1 := float64(w1[0]-w0[0]), float64(w1[1]-w0[1])
		du2, dv2 := float64(w2[0]-w0[0]), float64(w2[1]-w0[1])

		det := du1*dv2 - du2*dv1
		if math.Abs(det) < 1e-12 {
			continue
		}
		r := 1 / det
		sdir := r3.Scale(r, r3.Sub(r3.Scale(dv2, e1), r3.Scale(dv1, e2)))
		tdir := r3.Scale(r, r3.Sub(r3.Scale(du1, e2), r3.Scale(du2, e1)))

		for _, idx := range [3]uint32{a, b, c} {
			tan[idx] = r3.Add(tan[idx], sdir)
			bitan[idx] = r3.Add(bitan[idx], tdir)
		}
	}

	for i := range m.Vertices {
		n := fromArray3(m.Vertices[i].Normal)
		t := tan[i]
		if r3.Norm(t) < 1e-12 {
			t = fallbackTangent(n)
		}

		// Gram-Schmidt against the normal.
		t = r3.Sub(t, r3.Scale(r3.Dot(n, t), n))
		t = unitOr(t, fallbackTangent(n))

		w := float32(1)
		if r3.Dot(r3.Cross(n, t), bitan[i]) < 0 {
			w = -1
		}
		m.Vertices[i].Tangent = [4]float32{float32(t.X), float32(t.Y), float32(t.Z), w}
	}
}

// fallbackTangent picks a direction perpendicular to n when UVs give none.
func fallbackTangent(n r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		axis = r3.Vec{Z: 1}
	}
	return unitOr(r3.Cross(axis, n), r3.Vec{X: 1})
}

// Helper functions

func position(m *Mesh, idx uint32) r3.Vec {
	return fromArray3(m.Vertices[idx].Position)
}

func fromArray3(a [3]float32) r3.Vec {
	return r3.Vec{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

func toArray3(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func unitOr(v, fallback r3.Vec) r3.Vec {
	if r3.Norm(v) < 1e-12 {
		return fallback
	}
	return r3.Unit(v)
}

func updateBounds(b *Bounds, p [3]float32) {
	for axis := range 3 {
		if p[axis] < b.Min[axis] {
			b.Min[axis] = p[axis]
		}
		if p[axis] > b.Max[axis] {
			b.Max[axis] = p[axis]
		}
	}
}
