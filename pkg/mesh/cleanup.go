package mesh

import (
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// CleanOptions controls the cleanup passes run before slicing.
type CleanOptions struct {
	// WeldEpsilon merges vertices closer than this distance. Zero welds
	// only bit-identical positions, negative disables welding.
	WeldEpsilon float64
	// AreaEpsilon drops triangles with an area at or below this value.
	AreaEpsilon float64
	// MinComponentVerts drops connected components with fewer vertices.
	MinComponentVerts int
	// MaxHoleSides fills border loops with at most this many edges.
	// Values below 3 disable hole filling.
	MaxHoleSides int
}

// CleanStats reports what the cleanup passes changed.
type CleanStats struct {
	VerticesWelded    int
	TrianglesDropped  int
	ComponentsDropped int
	HolesFilled       int
}

// Clean runs the full cleanup sequence: weld, degenerate removal, loose
// component removal, hole filling and normal recomputation.
func Clean(m *Mesh, opts CleanOptions) (*Mesh, CleanStats) {
	var stats CleanStats

	out := m
	if opts.WeldEpsilon >= 0 {
		before := out.VertexCount()
		out = Weld(out, opts.WeldEpsilon)
		stats.VerticesWelded = before - out.VertexCount()
	}

	before := out.TriangleCount()
	out = RemoveDegenerate(out, opts.AreaEpsilon)
	stats.TrianglesDropped = before - out.TriangleCount()

	if opts.MinComponentVerts > 0 {
		var dropped int
		out, dropped = DropSmallComponents(out, opts.MinComponentVerts)
		stats.ComponentsDropped = dropped
	}

	if opts.MaxHoleSides >= 3 {
		var filled int
		out, filled = FillHoles(out, opts.MaxHoleSides)
		stats.HolesFilled = filled
	}

	out = RecomputeNormals(out)
	return out, stats
}

// Weld merges vertices whose positions are within eps of each other and
// remaps triangles onto the surviving vertex. The representative is always
// the lowest-indexed vertex of a cluster, which keeps the result
// deterministic. Triangles collapsed by the merge are dropped.
func Weld(m *Mesh, eps float64) *Mesh {
	remap := make([]int, len(m.Positions))

	if eps <= 0 {
		seen := make(map[vec3.T]int, len(m.Positions))
		for i, p := range m.Positions {
			if j, ok := seen[p]; ok {
				remap[i] = j
			} else {
				seen[p] = i
				remap[i] = i
			}
		}
	} else {
		// Hash grid with eps-sized cells. A matching vertex is at most
		// one cell away in each direction.
		type cell struct{ x, y, z int64 }
		cellOf := func(p vec3.T) cell {
			return cell{
				x: int64(math.Floor(p[0] / eps)),
				y: int64(math.Floor(p[1] / eps)),
				z: int64(math.Floor(p[2] / eps)),
			}
		}
		grid := make(map[cell][]int, len(m.Positions))
		epsSq := eps * eps
		for i, p := range m.Positions {
			c := cellOf(p)
			found := -1
			for dx := int64(-1); dx <= 1 && found < 0; dx++ {
				for dy := int64(-1); dy <= 1 && found < 0; dy++ {
					for dz := int64(-1); dz <= 1 && found < 0; dz++ {
						for _, j := range grid[cell{c.x + dx, c.y + dy, c.z + dz}] {
							q := m.Positions[j]
							d := vec3.Sub(&p, &q)
							if d.LengthSqr() <= epsSq {
								found = j
								break
							}
						}
					}
				}
			}
			if found >= 0 {
				remap[i] = found
			} else {
				remap[i] = i
				grid[c] = append(grid[c], i)
			}
		}
	}

	out := &Mesh{
		Positions: m.Positions,
		Normals:   m.Normals,
		Colors:    m.Colors,
		UVs:       m.UVs,
	}
	for _, tri := range m.Triangles {
		a, b, c := remap[tri[0]], remap[tri[1]], remap[tri[2]]
		if a == b || b == c || c == a {
			continue
		}
		out.Triangles = append(out.Triangles, [3]int{a, b, c})
	}
	return out.Compacted(nil)
}

// RemoveDegenerate drops triangles with repeated vertices or an area at or
// below areaEps, then removes vertices left unreferenced.
func RemoveDegenerate(m *Mesh, areaEps float64) *Mesh {
	out := &Mesh{
		Positions: m.Positions,
		Normals:   m.Normals,
		Colors:    m.Colors,
		UVs:       m.UVs,
	}
	for i, tri := range m.Triangles {
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			continue
		}
		if m.TriangleArea(i) <= areaEps {
			continue
		}
		out.Triangles = append(out.Triangles, tri)
	}
	return out.Compacted(nil)
}

// DropSmallComponents removes every connected component with fewer than
// minVerts vertices, along with vertices referenced by no triangle. It
// returns the cleaned mesh and the number of components removed.
func DropSmallComponents(m *Mesh, minVerts int) (*Mesh, int) {
	keep := make([]bool, len(m.Triangles))
	dropped := 0
	for _, comp := range m.ConnectedComponents() {
		if m.componentVertexCount(comp) < minVerts {
			dropped++
			continue
		}
		for _, t := range comp {
			keep[t] = true
		}
	}

	out := &Mesh{
		Positions: m.Positions,
		Normals:   m.Normals,
		Colors:    m.Colors,
		UVs:       m.UVs,
	}
	for i, tri := range m.Triangles {
		if keep[i] {
			out.Triangles = append(out.Triangles, tri)
		}
	}
	return out.Compacted(nil), dropped
}

// FillHoles fan-fills every closed border loop with at most maxSides edges.
// The fill triangles are wound opposite to the loop so they face the same
// way as the surrounding surface. Returns the new mesh and the number of
// holes filled.
func FillHoles(m *Mesh, maxSides int) (*Mesh, int) {
	if maxSides < 3 {
		return m.Clone(), 0
	}
	out := m.Clone()
	filled := 0
	for _, loop := range m.BorderLoops() {
		if len(loop) > maxSides {
			continue
		}
		for i := 1; i < len(loop)-1; i++ {
			out.Triangles = append(out.Triangles, [3]int{loop[0], loop[i+1], loop[i]})
		}
		filled++
	}
	return out, filled
}

// RecomputeNormals rebuilds smooth per-vertex normals. Face normals are
// accumulated area-weighted, then vertices sharing an exact position are
// averaged together so duplicated seam vertices shade identically. Vertices
// with no face contribution get an up normal.
func RecomputeNormals(m *Mesh) *Mesh {
	acc := make([]vec3.T, len(m.Positions))
	for _, tri := range m.Triangles {
		a := m.Positions[tri[0]]
		b := m.Positions[tri[1]]
		c := m.Positions[tri[2]]
		ab := vec3.Sub(&b, &a)
		ac := vec3.Sub(&c, &a)
		// Unnormalized cross product weights the contribution by area.
		n := vec3.Cross(&ab, &ac)
		for _, v := range tri {
			acc[v] = vec3.Add(&acc[v], &n)
		}
	}

	byPos := make(map[vec3.T][]int, len(m.Positions))
	for i, p := range m.Positions {
		byPos[p] = append(byPos[p], i)
	}

	out := m.Clone()
	out.Normals = make([]vec3.T, len(m.Positions))
	for _, group := range byPos {
		var sum vec3.T
		for _, i := range group {
			sum = vec3.Add(&sum, &acc[i])
		}
		if sum.LengthSqr() == 0 {
			sum = vec3.T{0, 0, 1}
		} else {
			sum = sum.Normalized()
		}
		for _, i := range group {
			out.Normals[i] = sum
		}
	}
	return out
}
