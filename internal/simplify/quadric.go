package simplify

import (
	"container/heap"
	"sort"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// QuadricReducer is the default Reducer: iterative edge collapse ordered by
// quadric error, with deterministic tie-breaking so identical inputs give
// identical outputs. Collapses that would flip a neighbouring triangle are
// rejected.
type QuadricReducer struct{}

var _ Reducer = (*QuadricReducer)(nil)

// NewQuadricReducer returns a ready-to-use quadric error reducer.
func NewQuadricReducer() *QuadricReducer {
	return &QuadricReducer{}
}

// Reduce collapses edges until the triangle count reaches targetTris or no
// further collapse is admissible under the lock mask and flip guard.
func (q *QuadricReducer) Reduce(m *mesh.Mesh, locked []bool, targetTris int) (*mesh.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	st := newCollapseState(m, locked)
	st.seed()
	for st.liveTris > targetTris {
		if !st.collapseNext() {
			break
		}
	}
	return st.build(), nil
}

// quadric is a symmetric 4x4 error matrix stored as its upper triangle:
// a11 a12 a13 a14 a22 a23 a24 a33 a34 a44.
type quadric [10]float64

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// addPlane accumulates the squared-distance quadric of the plane with unit
// normal n and offset d, weighted by w.
func (q *quadric) addPlane(n vec3.T, d, w float64) {
	q[0] += w * n[0] * n[0]
	q[1] += w * n[0] * n[1]
	q[2] += w * n[0] * n[2]
	q[3] += w * n[0] * d
	q[4] += w * n[1] * n[1]
	q[5] += w * n[1] * n[2]
	q[6] += w * n[1] * d
	q[7] += w * n[2] * n[2]
	q[8] += w * n[2] * d
	q[9] += w * d * d
}

// eval returns the quadric error at p.
func (q *quadric) eval(p vec3.T) float64 {
	x, y, z := p[0], p[1], p[2]
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z + q[9]
}

// candidate is one prospective edge collapse. Version stamps detect stale
// heap entries after neighbouring collapses.
type candidate struct {
	cost   float64
	a, b   int
	va, vb int
	pos    vec3.T
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type collapseState struct {
	src      *mesh.Mesh
	pos      []vec3.T
	locked   []bool
	alive    []bool
	version  []int
	quadrics []quadric

	tris     [][3]int
	triAlive []bool
	vertTris [][]int
	liveTris int

	heap candidateHeap
}

func newCollapseState(m *mesh.Mesh, locked []bool) *collapseState {
	n := m.VertexCount()
	st := &collapseState{
		src:      m,
		pos:      make([]vec3.T, n),
		locked:   make([]bool, n),
		alive:    make([]bool, n),
		version:  make([]int, n),
		quadrics: make([]quadric, n),
		tris:     make([][3]int, len(m.Triangles)),
		triAlive: make([]bool, len(m.Triangles)),
		vertTris: make([][]int, n),
		liveTris: len(m.Triangles),
	}
	copy(st.pos, m.Positions)
	copy(st.locked, locked)
	copy(st.tris, m.Triangles)
	for i := range st.alive {
		st.alive[i] = true
	}
	for t, tri := range st.tris {
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			st.liveTris--
			continue
		}
		st.triAlive[t] = true
		for _, v := range tri {
			st.vertTris[v] = append(st.vertTris[v], t)
		}
	}
	return st
}

// seed accumulates per-vertex quadrics and pushes every admissible edge.
func (st *collapseState) seed() {
	for t, tri := range st.tris {
		if !st.triAlive[t] {
			continue
		}
		a := st.pos[tri[0]]
		b := st.pos[tri[1]]
		c := st.pos[tri[2]]
		ab := vec3.Sub(&b, &a)
		ac := vec3.Sub(&c, &a)
		n := vec3.Cross(&ab, &ac)
		area2 := n.Length()
		if area2 == 0 {
			continue
		}
		n = n.Scaled(1 / area2)
		d := -vec3.Dot(&n, &a)
		for _, v := range tri {
			st.quadrics[v].addPlane(n, d, area2/2)
		}
	}

	seen := make(map[mesh.Edge]bool)
	var edges []mesh.Edge
	for t, tri := range st.tris {
		if !st.triAlive[t] {
			continue
		}
		for k := 0; k < 3; k++ {
			e := mesh.MakeEdge(tri[k], tri[(k+1)%3])
			if !seen[e] {
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	for _, e := range edges {
		st.pushCandidate(e.A, e.B)
	}
	heap.Init(&st.heap)
}

// pushCandidate evaluates the collapse of edge (a,b) and queues it. Edges
// between two locked vertices are never candidates. With one locked
// endpoint the collapse position is that endpoint; otherwise the cheaper of
// midpoint and both endpoints wins.
func (st *collapseState) pushCandidate(a, b int) {
	if st.locked[a] && st.locked[b] {
		return
	}
	var sum quadric
	sum = st.quadrics[a]
	sum.add(&st.quadrics[b])

	var pos vec3.T
	switch {
	case st.locked[a]:
		pos = st.pos[a]
	case st.locked[b]:
		pos = st.pos[b]
	default:
		pa := st.pos[a]
		pb := st.pos[b]
		mid := vec3.Interpolate(&pa, &pb, 0.5)
		pos = mid
		best := sum.eval(mid)
		if c := sum.eval(pa); c < best {
			best, pos = c, pa
		}
		if c := sum.eval(pb); c < best {
			pos = pb
		}
	}
	heap.Push(&st.heap, candidate{
		cost: sum.eval(pos),
		a:    a, b: b,
		va: st.version[a], vb: st.version[b],
		pos: pos,
	})
}

// collapseNext pops candidates until one is valid and safe, collapses it
// and returns true. False means no admissible collapse remains.
func (st *collapseState) collapseNext() bool {
	for st.heap.Len() > 0 {
		c := heap.Pop(&st.heap).(candidate)
		if !st.alive[c.a] || !st.alive[c.b] {
			continue
		}
		if c.va != st.version[c.a] || c.vb != st.version[c.b] {
			continue
		}
		keep, drop := c.a, c.b
		if st.locked[drop] {
			keep, drop = drop, keep
		}
		if st.wouldFlip(keep, drop, c.pos) || st.wouldFlip(drop, keep, c.pos) {
			continue
		}
		st.collapse(keep, drop, c.pos)
		return true
	}
	return false
}

// wouldFlip reports whether moving vertex v to pos inverts any of its
// surviving triangles. Triangles shared with other vanish and are ignored.
func (st *collapseState) wouldFlip(v, other int, pos vec3.T) bool {
	for _, t := range st.vertTris[v] {
		if !st.triAlive[t] {
			continue
		}
		tri := st.tris[t]
		if tri[0] == other || tri[1] == other || tri[2] == other {
			continue
		}
		var before, after [3]vec3.T
		for k, vi := range tri {
			before[k] = st.pos[vi]
			if vi == v {
				after[k] = pos
			} else {
				after[k] = st.pos[vi]
			}
		}
		nb := triNormal(before)
		na := triNormal(after)
		if vec3.Dot(&nb, &na) < 0 {
			return true
		}
	}
	return false
}

func triNormal(p [3]vec3.T) vec3.T {
	ab := vec3.Sub(&p[1], &p[0])
	ac := vec3.Sub(&p[2], &p[0])
	return vec3.Cross(&ab, &ac)
}

// collapse merges drop into keep, placing keep at pos.
func (st *collapseState) collapse(keep, drop int, pos vec3.T) {
	st.pos[keep] = pos
	st.quadrics[keep].add(&st.quadrics[drop])
	st.alive[drop] = false
	st.version[keep]++
	st.version[drop]++

	for _, t := range st.vertTris[drop] {
		if !st.triAlive[t] {
			continue
		}
		tri := &st.tris[t]
		for k := range tri {
			if tri[k] == drop {
				tri[k] = keep
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			st.triAlive[t] = false
			st.liveTris--
			continue
		}
		st.vertTris[keep] = append(st.vertTris[keep], t)
	}
	st.vertTris[drop] = nil

	// Requeue the surviving edges around the merged vertex.
	seen := make(map[int]bool)
	for _, t := range st.vertTris[keep] {
		if !st.triAlive[t] {
			continue
		}
		for _, v := range st.tris[t] {
			if v != keep && st.alive[v] && !seen[v] {
				seen[v] = true
				st.pushCandidate(keep, v)
			}
		}
	}
}

// build assembles the output mesh: live triangles, locked vertices kept
// even when isolated, everything else compacted away. Attributes follow
// their surviving vertex.
func (st *collapseState) build() *mesh.Mesh {
	out := &mesh.Mesh{
		Positions: st.pos,
		Triangles: make([][3]int, 0, st.liveTris),
	}
	if st.src.HasNormals() {
		out.Normals = st.src.Normals
	}
	if st.src.HasColors() {
		out.Colors = st.src.Colors
	}
	if st.src.HasUVs() {
		out.UVs = st.src.UVs
	}
	for t, tri := range st.tris {
		if st.triAlive[t] {
			out.Triangles = append(out.Triangles, tri)
		}
	}
	keep := make([]bool, len(st.pos))
	for i := range keep {
		keep[i] = st.locked[i] && st.alive[i]
	}
	return out.Compacted(keep)
}
