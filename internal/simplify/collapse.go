package simplify

import (
	"container/heap"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/geomesh/internal/terrain"
)

// candidate proposes moving vertex from onto vertex to.
type candidate struct {
	cost     float64
	from, to int
	vFrom    uint32 // versions at push time; stale entries are skipped
	vTo      uint32
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.from != b.from {
		return a.from < b.from
	}
	return a.to < b.to
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// collapser performs quadric-error half-edge collapses on a private copy of a mesh.
// Vertices never move, they only merge, so surviving vertices keep their
// original positions and UVs.
type collapser struct {
	pos       []r3.Vec
	faces     [][3]int
	alive     []bool
	removed   []bool
	boundary  []bool
	vertFaces [][]int
	quadrics  []quadric
	version   []uint32
	queue     candidateHeap
	live      int
}

func newCollapser(m *terrain.Mesh, boundaryWeight float64) *collapser {
	nv := len(m.Vertices)
	nf := m.TriangleCount()

	c := &collapser{
		pos:       make([]r3.Vec, nv),
		faces:     make([][3]int, nf),
		alive:     make([]bool, nf),
		removed:   make([]bool, nv),
		boundary:  make([]bool, nv),
		vertFaces: make([][]int, nv),
		quadrics:  make([]quadric, nv),
		version:   make([]uint32, nv),
		live:      nf,
	}

	for i, v := range m.Vertices {
		c.pos[i] = r3.Vec{X: float64(v.Position[0]), Y: float64(v.Position[1]), Z: float64(v.Position[2])}
		c.quadrics[i] = newQuadric()
	}

	edgeUse := make(map[[2]int]int, nf*3/2)
	for f := range nf {
		tri := [3]int{int(m.Indices[3*f]), int(m.Indices[3*f+1]), int(m.Indices[3*f+2])}
		c.faces[f] = tri
		c.alive[f] = true
		for k := range 3 {
			c.vertFaces[tri[k]] = append(c.vertFaces[tri[k]], f)
			edgeUse[edgeKey(tri[k], tri[(k+1)%3])]++
		}

		n, area := c.faceNormal(tri)
		if area == 0 {
			continue
		}
		d := -r3.Dot(n, c.pos[tri[0]])
		for _, v := range tri {
			c.quadrics[v].addPlane(n, d, area)
		}
	}

	// Boundary edges get a perpendicular constraint plane so the outline holds.
	for f := range nf {
		tri := c.faces[f]
		n, area := c.faceNormal(tri)
		if area == 0 {
			continue
		}
		for k := range 3 {
			a, b := tri[k], tri[(k+1)%3]
			if edgeUse[edgeKey(a, b)] != 1 {
				continue
			}
			c.boundary[a] = true
			c.boundary[b] = true

			dir := r3.Sub(c.pos[b], c.pos[a])
			if r3.Norm(dir) == 0 {
				continue
			}
			side := r3.Cross(dir, n)
			if r3.Norm(side) == 0 {
				continue
			}
			side = r3.Unit(side)
			d := -r3.Dot(side, c.pos[a])
			c.quadrics[a].addPlane(side, d, boundaryWeight)
			c.quadrics[b].addPlane(side, d, boundaryWeight)
		}
	}

	for f := range nf {
		tri := c.faces[f]
		for k := range 3 {
			a, b := tri[k], tri[(k+1)%3]
			c.push(a, b)
			c.push(b, a)
		}
	}
	return c
}

// run collapses edges until at most target faces remain or nothing valid is left.
func (c *collapser) run(target int) {
	for c.live > target && c.queue.Len() > 0 {
		cand := heap.Pop(&c.queue).(candidate)
		if c.removed[cand.from] || c.removed[cand.to] {
			continue
		}
		if c.version[cand.from] != cand.vFrom || c.version[cand.to] != cand.vTo {
			continue
		}
		if !c.canCollapse(cand.from, cand.to) {
			continue
		}
		c.collapse(cand.from, cand.to)
	}
}

func (c *collapser) push(from, to int) {
	heap.Push(&c.queue, candidate{
		cost:  errorAt(c.quadrics[from], c.quadrics[to], c.pos[to]),
		from:  from,
		to:    to,
		vFrom: c.version[from],
		vTo:   c.version[to],
	})
}

func (c *collapser) canCollapse(from, to int) bool {
	shared := 0
	for _, f := range c.vertFaces[from] {
		if c.alive[f] && c.faceHas(f, to) {
			shared++
		}
	}
	if shared == 0 {
		return false
	}
	if c.live-shared < 1 {
		return false
	}

	// Boundary vertices may only slide along the boundary.
	if c.boundary[from] {
		if !c.boundary[to] || shared != 1 {
			return false
		}
	}

	// Link condition keeps the surface manifold.
	common := 0
	toNeighbors := c.neighbors(to)
	for _, n := range c.neighbors(from) {
		if _, found := slices.BinarySearch(toNeighbors, n); found {
			common++
		}
	}
	if common != shared {
		return false
	}

	// Reject folds and slivers among the faces that survive.
	for _, f := range c.vertFaces[from] {
		if !c.alive[f] || c.faceHas(f, to) {
			continue
		}
		before, _ := c.faceNormal(c.faces[f])
		moved := c.faces[f]
		for k := range 3 {
			if moved[k] == from {
				moved[k] = to
			}
		}
		after, area := c.faceNormal(moved)
		if area < 1e-12 || r3.Dot(before, after) <= 0 {
			return false
		}
	}
	return true
}

func (c *collapser) collapse(from, to int) {
	for _, f := range c.vertFaces[from] {
		if !c.alive[f] {
			continue
		}
		if c.faceHas(f, to) {
			c.alive[f] = false
			c.live--
			continue
		}
		for k := range 3 {
			if c.faces[f][k] == from {
				c.faces[f][k] = to
			}
		}
		c.vertFaces[to] = append(c.vertFaces[to], f)
	}
	c.vertFaces[from] = nil
	c.removed[from] = true

	c.quadrics[to].add(c.quadrics[from])
	c.version[to]++

	for _, n := range c.neighbors(to) {
		c.push(to, n)
		c.push(n, to)
	}
}

// neighbors returns the sorted vertices sharing a live face with v.
func (c *collapser) neighbors(v int) []int {
	var out []int
	for _, f := range c.vertFaces[v] {
		if !c.alive[f] {
			continue
		}
		for _, w := range c.faces[f] {
			if w != v {
				out = append(out, w)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *collapser) faceHas(f, v int) bool {
	t := c.faces[f]
	return t[0] == v || t[1] == v || t[2] == v
}

// faceNormal returns the unit normal and area of a triangle, or zero for degenerate ones.
func (c *collapser) faceNormal(tri [3]int) (r3.Vec, float64) {
	p0 := c.pos[tri[0]]
	n := r3.Cross(r3.Sub(c.pos[tri[1]], p0), r3.Sub(c.pos[tri[2]], p0))
	l := r3.Norm(n)
	if l == 0 || math.IsNaN(l) {
		return r3.Vec{}, 0
	}
	return r3.Scale(1/l, n), l / 2
}

// mesh compacts the surviving faces into a new mesh built from src's vertices.
func (c *collapser) mesh(src *terrain.Mesh) *terrain.Mesh {
	remap := make([]int, len(c.pos))
	for i := range remap {
		remap[i] = -1
	}
	for f, tri := range c.faces {
		if !c.alive[f] {
			continue
		}
		for _, v := range tri {
			remap[v] = 0
		}
	}

	var vertices []terrain.Vertex
	for v := range remap {
		if remap[v] < 0 {
			continue
		}
		remap[v] = len(vertices)
		vertices = append(vertices, terrain.Vertex{
			Position: src.Vertices[v].Position,
			TexCoord: src.Vertices[v].TexCoord,
		})
	}

	indices := make([]uint32, 0, c.live*3)
	for f, tri := range c.faces {
		if !c.alive[f] {
			continue
		}
		indices = append(indices, uint32(remap[tri[0]]), uint32(remap[tri[1]]), uint32(remap[tri[2]]))
	}

	out := &terrain.Mesh{
		Name:     src.Name,
		Vertices: vertices,
		Indices:  indices,
	}
	terrain.Finalize(out)
	return out
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
