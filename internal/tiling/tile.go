package tiling

import (
	"fmt"
	"sort"

	"github.com/gojushin/EnvironmentLodTools/pkg/geom"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// DefaultSeamEpsilon is the classifier tolerance for deciding that a vertex
// sits on a cut plane. Cutting writes seam coordinates exactly, the
// epsilon only absorbs float drift from meshes that were saved and reloaded
// through lossy formats.
const DefaultSeamEpsilon = 1e-6

// Tile is one grid cell's share of the source mesh. It owns its mesh, no
// vertex data is shared with the source or with other tiles.
type Tile struct {
	Cell geom.Cell
	Mesh *mesh.Mesh
	// Planes bounds the cell: west, east, south, north.
	Planes [4]geom.Plane

	boundary    *BoundarySet
	boundaryEps float64
}

func newTile(g geom.Grid, x, y int, m *mesh.Mesh) *Tile {
	c := geom.Cell{X: x, Y: y}
	return &Tile{Cell: c, Mesh: m, Planes: g.CellPlanes(c)}
}

// Name returns the tile's stable name, "tile_<x>_<y>".
func (t *Tile) Name() string {
	return fmt.Sprintf("tile_%d_%d", t.Cell.X, t.Cell.Y)
}

// Boundary classifies which vertices lie on the tile's bounding planes and
// caches the result. The classification belongs to the tile's full
// resolution mesh; every lower level of detail reuses it unchanged, because
// rederiving it from a decimated mesh would see moved interior vertices and
// drifting results. Calling Boundary again with the same epsilon returns
// the cached set.
func (t *Tile) Boundary(eps float64) *BoundarySet {
	if t.boundary != nil && t.boundaryEps == eps {
		return t.boundary
	}
	locked := make([]bool, t.Mesh.VertexCount())
	count := 0
	for i, p := range t.Mesh.Positions {
		for _, pl := range t.Planes {
			if pl.Contains(p, eps) {
				locked[i] = true
				count++
				break
			}
		}
	}
	t.boundary = &BoundarySet{locked: locked, count: count}
	t.boundaryEps = eps
	return t.boundary
}

// BoundarySet records which vertices of a tile mesh sit on a seam. Seam
// vertices must keep their exact position through every decimation pass so
// that neighbouring tiles stay watertight at any level pairing.
type BoundarySet struct {
	locked []bool
	count  int
}

// IsBoundary reports whether vertex i is a seam vertex.
func (s *BoundarySet) IsBoundary(i int) bool {
	return s.locked[i]
}

// Count returns the number of seam vertices.
func (s *BoundarySet) Count() int {
	return s.count
}

// Mask returns a per-vertex lock flag slice. The caller owns the copy.
func (s *BoundarySet) Mask() []bool {
	m := make([]bool, len(s.locked))
	copy(m, s.locked)
	return m
}

// Indices returns the seam vertex indices in ascending order.
func (s *BoundarySet) Indices() []int {
	out := make([]int, 0, s.count)
	for i, l := range s.locked {
		if l {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
