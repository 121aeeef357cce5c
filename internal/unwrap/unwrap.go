// Package unwrap assigns texture coordinates to tile meshes ahead of color
// baking and export.
package unwrap

import (
	vec2 "github.com/flywave/go3d/float64/vec2"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// Unwrapper produces a copy of the mesh with per-vertex UVs filled in.
type Unwrapper interface {
	Unwrap(m *mesh.Mesh) (*mesh.Mesh, error)
}

// Planar projects texture coordinates straight down onto the horizontal
// footprint, normalised to the mesh bounds. Every tile maps its own
// bounding square onto [0,1]x[0,1], which suits the terrain-like tiles
// this pipeline cuts; overhangs share the UV of the surface below them.
type Planar struct{}

var _ Unwrapper = (*Planar)(nil)

// Unwrap returns a copy of m with footprint-projected UVs.
func (Planar) Unwrap(m *mesh.Mesh) (*mesh.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := m.Bounds()
	ex := b.Max[0] - b.Min[0]
	ey := b.Max[1] - b.Min[1]
	if ex <= 0 {
		ex = 1
	}
	if ey <= 0 {
		ey = 1
	}

	out := m.Clone()
	out.UVs = make([]vec2.T, len(m.Positions))
	for i, p := range m.Positions {
		out.UVs[i] = vec2.T{(p[0] - b.Min[0]) / ex, (p[1] - b.Min[1]) / ey}
	}
	return out, nil
}
