// Package mesh provides the indexed triangle mesh the pipeline operates on,
// together with the cleanup passes applied before slicing: welding, degenerate
// removal, loose-component filtering, hole filling and normal recomputation.
//
// All operations are pure: they never mutate their input and are
// deterministic for identical inputs and epsilons.
package mesh

import (
	"errors"
	"fmt"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"
)

// ErrInvalidGeometry reports a malformed input mesh: no vertices, an
// out-of-range triangle index, or attribute arrays that disagree with the
// vertex count.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Mesh is an indexed triangle mesh. Positions and Triangles are mandatory;
// Normals, Colors and UVs are optional and, when present, must have one
// entry per vertex. Colors are linear RGB in [0,1].
type Mesh struct {
	Positions []vec3.T
	Triangles [][3]int
	Normals   []vec3.T
	Colors    []vec3.T
	UVs       []vec2.T
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// HasNormals reports whether per-vertex normals are present.
func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// HasColors reports whether per-vertex colors are present.
func (m *Mesh) HasColors() bool { return len(m.Colors) > 0 }

// HasUVs reports whether per-vertex texture coordinates are present.
func (m *Mesh) HasUVs() bool { return len(m.UVs) > 0 }

// Validate checks the mesh invariants. It returns an error wrapping
// ErrInvalidGeometry when the mesh is nil or empty, when a triangle
// references a vertex that does not exist, or when an optional attribute
// array does not match the vertex count.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mesh", ErrInvalidGeometry)
	}
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: mesh has no vertices", ErrInvalidGeometry)
	}
	n := len(m.Positions)
	for i, tri := range m.Triangles {
		for _, v := range tri {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidGeometry, i, v, n)
			}
		}
	}
	if len(m.Normals) > 0 && len(m.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidGeometry, len(m.Normals), n)
	}
	if len(m.Colors) > 0 && len(m.Colors) != n {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrInvalidGeometry, len(m.Colors), n)
	}
	if len(m.UVs) > 0 && len(m.UVs) != n {
		return fmt.Errorf("%w: %d uvs for %d vertices", ErrInvalidGeometry, len(m.UVs), n)
	}
	return nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Positions: make([]vec3.T, len(m.Positions)),
		Triangles: make([][3]int, len(m.Triangles)),
	}
	copy(c.Positions, m.Positions)
	copy(c.Triangles, m.Triangles)
	if m.HasNormals() {
		c.Normals = make([]vec3.T, len(m.Normals))
		copy(c.Normals, m.Normals)
	}
	if m.HasColors() {
		c.Colors = make([]vec3.T, len(m.Colors))
		copy(c.Colors, m.Colors)
	}
	if m.HasUVs() {
		c.UVs = make([]vec2.T, len(m.UVs))
		copy(c.UVs, m.UVs)
	}
	return c
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() vec3.Box {
	b := vec3.MinBox
	for i := range m.Positions {
		b.Extend(&m.Positions[i])
	}
	return b
}

// TriangleArea returns the area of triangle i.
func (m *Mesh) TriangleArea(i int) float64 {
	tri := m.Triangles[i]
	a := m.Positions[tri[0]]
	b := m.Positions[tri[1]]
	c := m.Positions[tri[2]]
	ab := vec3.Sub(&b, &a)
	ac := vec3.Sub(&c, &a)
	cr := vec3.Cross(&ab, &ac)
	return 0.5 * cr.Length()
}

// SurfaceArea returns the summed area of all triangles.
func (m *Mesh) SurfaceArea() float64 {
	var sum float64
	for i := range m.Triangles {
		sum += m.TriangleArea(i)
	}
	return sum
}

// Compacted returns a copy of the mesh with every vertex that is neither
// referenced by a triangle nor flagged in keep removed, and triangle
// indices remapped. keep may be nil.
func (m *Mesh) Compacted(keep []bool) *Mesh {
	used := make([]bool, len(m.Positions))
	for _, tri := range m.Triangles {
		used[tri[0]] = true
		used[tri[1]] = true
		used[tri[2]] = true
	}
	for i := range keep {
		if keep[i] {
			used[i] = true
		}
	}

	remap := make([]int, len(m.Positions))
	out := &Mesh{}
	for i, u := range used {
		if !u {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Positions)
		out.Positions = append(out.Positions, m.Positions[i])
		if m.HasNormals() {
			out.Normals = append(out.Normals, m.Normals[i])
		}
		if m.HasColors() {
			out.Colors = append(out.Colors, m.Colors[i])
		}
		if m.HasUVs() {
			out.UVs = append(out.UVs, m.UVs[i])
		}
	}
	out.Triangles = make([][3]int, len(m.Triangles))
	for i, tri := range m.Triangles {
		out.Triangles[i] = [3]int{remap[tri[0]], remap[tri[1]], remap[tri[2]]}
	}
	return out
}
