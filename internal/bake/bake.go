// Package bake transfers vertex colors from the full resolution source
// mesh onto decimated tile meshes. Decimation rewires topology, so colors
// are re-sampled spatially from the original surface rather than carried
// through the collapse.
package bake

import (
	"errors"
	"math"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// ErrNoColors reports a sampling source without vertex colors.
var ErrNoColors = errors.New("source mesh has no vertex colors")

// Sampler looks up the surface color at a point.
type Sampler interface {
	Sample(p vec3.T) vec3.T
}

// NearestVertex samples the color of the closest source vertex through a
// uniform hash grid. Lookup walks outward shell by shell and stops once no
// nearer vertex can exist; equidistant candidates resolve to the lowest
// vertex index so sampling is deterministic.
type NearestVertex struct {
	src      *mesh.Mesh
	cellSize float64
	cells    map[[3]int64][]int
}

var _ Sampler = (*NearestVertex)(nil)

// NewNearestVertex indexes the source mesh for sampling.
func NewNearestVertex(src *mesh.Mesh) (*NearestVertex, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if !src.HasColors() {
		return nil, ErrNoColors
	}

	b := src.Bounds()
	diag := vec3.Sub(&b.Max, &b.Min)
	size := diag.Length() / math.Cbrt(float64(len(src.Positions)))
	if size <= 0 {
		size = 1
	}

	s := &NearestVertex{
		src:      src,
		cellSize: size,
		cells:    make(map[[3]int64][]int),
	}
	for i, p := range src.Positions {
		c := s.cellOf(p)
		s.cells[c] = append(s.cells[c], i)
	}
	return s, nil
}

func (s *NearestVertex) cellOf(p vec3.T) [3]int64 {
	return [3]int64{
		int64(math.Floor(p[0] / s.cellSize)),
		int64(math.Floor(p[1] / s.cellSize)),
		int64(math.Floor(p[2] / s.cellSize)),
	}
}

// Sample returns the color of the nearest source vertex to p.
func (s *NearestVertex) Sample(p vec3.T) vec3.T {
	center := s.cellOf(p)
	best := -1
	bestDist := math.Inf(1)

	consider := func(c [3]int64) {
		for _, i := range s.cells[c] {
			q := s.src.Positions[i]
			d := vec3.Sub(&p, &q)
			dist := d.LengthSqr()
			if dist < bestDist || (dist == bestDist && i < best) {
				bestDist = dist
				best = i
			}
		}
	}

	for r := int64(0); ; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				for dz := -r; dz <= r; dz++ {
					if maxAbs(dx, dy, dz) != r {
						continue
					}
					consider([3]int64{center[0] + dx, center[1] + dy, center[2] + dz})
				}
			}
		}
		// Cells beyond shell r cannot hold anything closer than
		// r*cellSize, so a hit within that radius is final.
		if best >= 0 && float64(r)*s.cellSize >= math.Sqrt(bestDist) {
			return s.src.Colors[best]
		}
	}
}

func maxAbs(vals ...int64) int64 {
	var m int64
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// Transfer returns a copy of dst with Colors sampled from s at every
// vertex.
func Transfer(s Sampler, dst *mesh.Mesh) *mesh.Mesh {
	out := dst.Clone()
	out.Colors = make([]vec3.T, len(dst.Positions))
	for i, p := range dst.Positions {
		out.Colors[i] = s.Sample(p)
	}
	return out
}
