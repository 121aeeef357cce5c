package bake

import (
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// Surface samples the source surface directly below or above the query
// point. Triangles are binned into a footprint grid; a vertical line
// through p is intersected with the candidates and the nearest hit's
// color is interpolated barycentrically. Decimated vertices keep their
// exact position, so the hit is usually the very triangle fan the vertex
// came from. Points whose vertical line misses the surface entirely
// (gaps, vertical walls) fall back to nearest vertex sampling.
type Surface struct {
	src      *mesh.Mesh
	cellSize float64
	cells    map[[2]int64][]int
	near     *NearestVertex
}

var _ Sampler = (*Surface)(nil)

// NewSurface indexes the source mesh for vertical surface sampling.
func NewSurface(src *mesh.Mesh) (*Surface, error) {
	near, err := NewNearestVertex(src)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	ex := b.Max[0] - b.Min[0]
	ey := b.Max[1] - b.Min[1]
	size := math.Sqrt(ex * ey / float64(src.TriangleCount()))
	if !(size > 0) {
		size = 1
	}

	s := &Surface{
		src:      src,
		cellSize: size,
		cells:    make(map[[2]int64][]int),
		near:     near,
	}
	for t, tri := range src.Triangles {
		a := src.Positions[tri[0]]
		bb := src.Positions[tri[1]]
		c := src.Positions[tri[2]]
		x0 := int64(math.Floor(min3(a[0], bb[0], c[0]) / size))
		x1 := int64(math.Floor(max3(a[0], bb[0], c[0]) / size))
		y0 := int64(math.Floor(min3(a[1], bb[1], c[1]) / size))
		y1 := int64(math.Floor(max3(a[1], bb[1], c[1]) / size))
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				key := [2]int64{x, y}
				s.cells[key] = append(s.cells[key], t)
			}
		}
	}
	return s, nil
}

// Sample interpolates the color of the surface point straight below or
// above p, preferring the hit closest in height.
func (s *Surface) Sample(p vec3.T) vec3.T {
	key := [2]int64{
		int64(math.Floor(p[0] / s.cellSize)),
		int64(math.Floor(p[1] / s.cellSize)),
	}

	best := math.Inf(1)
	var color vec3.T
	hit := false
	for _, t := range s.cells[key] {
		u, v, w, ok := s.footprintBarycentric(t, p)
		if !ok {
			continue
		}
		tri := s.src.Triangles[t]
		z := u*s.src.Positions[tri[0]][2] + v*s.src.Positions[tri[1]][2] + w*s.src.Positions[tri[2]][2]
		d := math.Abs(z - p[2])
		if d < best {
			best = d
			ca := s.src.Colors[tri[0]]
			cb := s.src.Colors[tri[1]]
			cc := s.src.Colors[tri[2]]
			color = vec3.T{
				u*ca[0] + v*cb[0] + w*cc[0],
				u*ca[1] + v*cb[1] + w*cc[1],
				u*ca[2] + v*cb[2] + w*cc[2],
			}
			hit = true
		}
	}
	if !hit {
		return s.near.Sample(p)
	}
	return color
}

// footprintBarycentric computes barycentric coordinates of p's footprint
// inside triangle t's footprint. ok is false when p lies outside or the
// triangle projects to a sliver.
func (s *Surface) footprintBarycentric(t int, p vec3.T) (u, v, w float64, ok bool) {
	tri := s.src.Triangles[t]
	a := s.src.Positions[tri[0]]
	b := s.src.Positions[tri[1]]
	c := s.src.Positions[tri[2]]

	d := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if math.Abs(d) < 1e-12 {
		return 0, 0, 0, false
	}
	u = ((b[1]-c[1])*(p[0]-c[0]) + (c[0]-b[0])*(p[1]-c[1])) / d
	v = ((c[1]-a[1])*(p[0]-c[0]) + (a[0]-c[0])*(p[1]-c[1])) / d
	w = 1 - u - v

	// Tolerate float drift for points exactly on a triangle edge.
	const edgeEps = 1e-9
	if u < -edgeEps || v < -edgeEps || w < -edgeEps {
		return 0, 0, 0, false
	}
	return u, v, w, true
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
