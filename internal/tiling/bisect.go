package tiling

import (
	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/geom"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// bisect splits a mesh along a cut plane into the negative-side and
// positive-side halves. Crossing triangles are clipped into convex
// fragments; the intersection vertex of each crossed edge is computed once
// and written to both halves, so the two seams carry bit-identical
// coordinates. Triangles lying entirely in the plane go to the negative
// half. Plane evaluation is exact, the cut coordinate of every new vertex
// is set to the plane offset itself rather than left to interpolation.
func bisect(m *mesh.Mesh, pl geom.Plane) (neg, pos *mesh.Mesh) {
	cuts := newCutTable(m, pl)
	nb := newSideBuilder(m, cuts)
	pb := newSideBuilder(m, cuts)

	var npoly, ppoly []polyRef
	for _, tri := range m.Triangles {
		s := [3]float64{
			pl.Eval(m.Positions[tri[0]]),
			pl.Eval(m.Positions[tri[1]]),
			pl.Eval(m.Positions[tri[2]]),
		}
		if s[0] <= 0 && s[1] <= 0 && s[2] <= 0 {
			nb.addTriangle(tri)
			continue
		}
		if s[0] >= 0 && s[1] >= 0 && s[2] >= 0 {
			pb.addTriangle(tri)
			continue
		}

		npoly = npoly[:0]
		ppoly = ppoly[:0]
		for k := 0; k < 3; k++ {
			i, j := tri[k], tri[(k+1)%3]
			si, sj := s[k], s[(k+1)%3]
			if si <= 0 {
				npoly = append(npoly, srcRef(i))
			}
			if si >= 0 {
				ppoly = append(ppoly, srcRef(i))
			}
			if (si < 0 && sj > 0) || (si > 0 && sj < 0) {
				c := cuts.lookup(i, j)
				npoly = append(npoly, cutRef(c))
				ppoly = append(ppoly, cutRef(c))
			}
		}
		nb.addPolygon(npoly)
		pb.addPolygon(ppoly)
	}
	return nb.out, pb.out
}

// polyRef names one polygon corner: either a source mesh vertex or a cut
// point produced by this bisect.
type polyRef struct {
	cut bool
	idx int
}

func srcRef(i int) polyRef { return polyRef{idx: i} }
func cutRef(i int) polyRef { return polyRef{cut: true, idx: i} }

// cutPoint is an edge-plane intersection with interpolated attributes.
type cutPoint struct {
	pos    vec3.T
	normal vec3.T
	color  vec3.T
	uv     vec2.T
}

// cutTable computes and caches the intersection of mesh edges with the cut
// plane. Each undirected edge is evaluated once; the endpoints are ordered
// by position before interpolating, so the result does not depend on which
// triangle, or which half, asked first.
type cutTable struct {
	src    *mesh.Mesh
	pl     geom.Plane
	byEdge map[mesh.Edge]int
	points []cutPoint
}

func newCutTable(m *mesh.Mesh, pl geom.Plane) *cutTable {
	return &cutTable{src: m, pl: pl, byEdge: make(map[mesh.Edge]int)}
}

func (c *cutTable) lookup(i, j int) int {
	e := mesh.MakeEdge(i, j)
	if id, ok := c.byEdge[e]; ok {
		return id
	}

	a, b := i, j
	if !posLess(c.src.Positions[a], c.src.Positions[b]) {
		a, b = b, a
	}
	pa := c.src.Positions[a]
	pb := c.src.Positions[b]
	ax := c.pl.Axis
	t := (c.pl.Offset - pa[ax]) / (pb[ax] - pa[ax])

	p := cutPoint{pos: vec3.Interpolate(&pa, &pb, t)}
	p.pos[ax] = c.pl.Offset
	if c.src.HasNormals() {
		p.normal = vec3.Interpolate(&c.src.Normals[a], &c.src.Normals[b], t)
	}
	if c.src.HasColors() {
		p.color = vec3.Interpolate(&c.src.Colors[a], &c.src.Colors[b], t)
	}
	if c.src.HasUVs() {
		p.uv = vec2.Interpolate(&c.src.UVs[a], &c.src.UVs[b], t)
	}

	id := len(c.points)
	c.points = append(c.points, p)
	c.byEdge[e] = id
	return id
}

// posLess orders positions lexicographically by x, y, z.
func posLess(a, b vec3.T) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

// sideBuilder accumulates one half of a bisect, materializing source and
// cut vertices on first use.
type sideBuilder struct {
	src     *mesh.Mesh
	cuts    *cutTable
	out     *mesh.Mesh
	fromSrc map[int]int
	fromCut map[int]int
}

func newSideBuilder(m *mesh.Mesh, cuts *cutTable) *sideBuilder {
	return &sideBuilder{
		src:     m,
		cuts:    cuts,
		out:     &mesh.Mesh{},
		fromSrc: make(map[int]int),
		fromCut: make(map[int]int),
	}
}

func (b *sideBuilder) resolve(r polyRef) int {
	if r.cut {
		if idx, ok := b.fromCut[r.idx]; ok {
			return idx
		}
		p := b.cuts.points[r.idx]
		idx := len(b.out.Positions)
		b.out.Positions = append(b.out.Positions, p.pos)
		if b.src.HasNormals() {
			b.out.Normals = append(b.out.Normals, p.normal)
		}
		if b.src.HasColors() {
			b.out.Colors = append(b.out.Colors, p.color)
		}
		if b.src.HasUVs() {
			b.out.UVs = append(b.out.UVs, p.uv)
		}
		b.fromCut[r.idx] = idx
		return idx
	}

	if idx, ok := b.fromSrc[r.idx]; ok {
		return idx
	}
	idx := len(b.out.Positions)
	b.out.Positions = append(b.out.Positions, b.src.Positions[r.idx])
	if b.src.HasNormals() {
		b.out.Normals = append(b.out.Normals, b.src.Normals[r.idx])
	}
	if b.src.HasColors() {
		b.out.Colors = append(b.out.Colors, b.src.Colors[r.idx])
	}
	if b.src.HasUVs() {
		b.out.UVs = append(b.out.UVs, b.src.UVs[r.idx])
	}
	b.fromSrc[r.idx] = idx
	return idx
}

func (b *sideBuilder) position(r polyRef) vec3.T {
	if r.cut {
		return b.cuts.points[r.idx].pos
	}
	return b.src.Positions[r.idx]
}

func (b *sideBuilder) addTriangle(tri [3]int) {
	b.out.Triangles = append(b.out.Triangles, [3]int{
		b.resolve(srcRef(tri[0])),
		b.resolve(srcRef(tri[1])),
		b.resolve(srcRef(tri[2])),
	})
}

// addPolygon fan-triangulates a convex clip fragment. Corners that landed
// on the same position, such as a cut through an existing vertex, are
// collapsed first.
func (b *sideBuilder) addPolygon(poly []polyRef) {
	distinct := make([]polyRef, 0, len(poly))
	for _, r := range poly {
		p := b.position(r)
		if len(distinct) > 0 && p == b.position(distinct[len(distinct)-1]) {
			continue
		}
		distinct = append(distinct, r)
	}
	for len(distinct) >= 2 && b.position(distinct[0]) == b.position(distinct[len(distinct)-1]) {
		distinct = distinct[:len(distinct)-1]
	}
	if len(distinct) < 3 {
		return
	}
	for i := 1; i < len(distinct)-1; i++ {
		b.out.Triangles = append(b.out.Triangles, [3]int{
			b.resolve(distinct[0]),
			b.resolve(distinct[i]),
			b.resolve(distinct[i+1]),
		})
	}
}
