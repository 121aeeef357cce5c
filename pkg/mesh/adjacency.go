package mesh

import "sort"

// Edge is an undirected vertex pair with A < B.
type Edge struct {
	A, B int
}

// MakeEdge builds the canonical undirected edge for two vertex indices.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// EdgeFaces counts, for every undirected edge, the number of triangles that
// contain it. Interior edges of a manifold mesh count 2, border edges 1.
func (m *Mesh) EdgeFaces() map[Edge]int {
	faces := make(map[Edge]int, len(m.Triangles)*3/2)
	for _, tri := range m.Triangles {
		faces[MakeEdge(tri[0], tri[1])]++
		faces[MakeEdge(tri[1], tri[2])]++
		faces[MakeEdge(tri[2], tri[0])]++
	}
	return faces
}

// BorderEdges returns every edge that belongs to exactly one triangle.
func (m *Mesh) BorderEdges() []Edge {
	var out []Edge
	for e, n := range m.EdgeFaces() {
		if n == 1 {
			out = append(out, e)
		}
	}
	return out
}

// BorderLoops walks the border edges into closed vertex loops, each ordered
// along the triangle winding of the surface it bounds. Open chains and
// junction vertices that touch more than two border edges terminate a walk,
// so every returned slice is a loop that can be filled directly.
func (m *Mesh) BorderLoops() [][]int {
	faces := m.EdgeFaces()

	// Directed border edges, oriented as they appear in their single
	// triangle. Following head to tail walks each hole once.
	next := make(map[int]int)
	degree := make(map[int]int)
	for _, tri := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			if faces[MakeEdge(a, b)] == 1 {
				next[a] = b
				degree[a]++
				degree[b]++
			}
		}
	}

	// Walk starts in ascending order so every loop begins at its lowest
	// vertex and the result is identical across runs.
	starts := make([]int, 0, len(next))
	for v := range next {
		starts = append(starts, v)
	}
	sort.Ints(starts)

	var loops [][]int
	visited := make(map[int]bool)
	for _, start := range starts {
		if visited[start] {
			continue
		}
		loop := []int{start}
		visited[start] = true
		closed := false
		for cur := next[start]; ; cur = next[cur] {
			if cur == start {
				closed = true
				break
			}
			// A junction vertex belongs to several holes at once.
			// Walking through it would braid loops together.
			if visited[cur] || degree[cur] > 2 {
				break
			}
			loop = append(loop, cur)
			visited[cur] = true
			if _, ok := next[cur]; !ok {
				break
			}
		}
		if closed && len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}

// ConnectedComponents groups triangle indices by surface connectivity.
// Two triangles are connected when they share a vertex. Components are
// returned in ascending order of their lowest triangle index.
func (m *Mesh) ConnectedComponents() [][]int {
	parent := make([]int, len(m.Positions))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, tri := range m.Triangles {
		union(tri[0], tri[1])
		union(tri[1], tri[2])
	}

	groups := make(map[int][]int)
	order := make([]int, 0)
	for i, tri := range m.Triangles {
		root := find(tri[0])
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	out := make([][]int, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}

// componentVertexCount returns the number of distinct vertices referenced by
// the given triangles.
func (m *Mesh) componentVertexCount(tris []int) int {
	seen := make(map[int]bool)
	for _, t := range tris {
		tri := m.Triangles[t]
		seen[tri[0]] = true
		seen[tri[1]] = true
		seen[tri[2]] = true
	}
	return len(seen)
}
