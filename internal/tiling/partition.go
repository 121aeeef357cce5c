// Package tiling slices a mesh into a square grid of tiles and classifies
// the vertices that sit on the cut seams. Slicing runs as successive plane
// bisections, first along X into columns, then along Y within each column.
// Every seam vertex is computed once per cut and written identically to
// both sides, which is what keeps adjacent tiles watertight: the classifier
// and the decimator later rely on those coordinates matching exactly.
package tiling

import (
	"errors"
	"fmt"

	"github.com/gojushin/EnvironmentLodTools/pkg/geom"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// Partition errors.
var (
	ErrDegenerateBounds = errors.New("mesh has no usable horizontal extent")
	ErrInvalidGridSize  = errors.New("grid size must be at least 1")
)

// Result is a partitioned mesh: the grid that was laid over its footprint
// and one tile per occupied cell, ordered west to east, then south to
// north within a column.
type Result struct {
	Grid  geom.Grid
	Tiles []*Tile
}

// TileAt returns the tile covering the given cell, or nil when that cell
// holds no geometry.
func (r *Result) TileAt(x, y int) *Tile {
	for _, t := range r.Tiles {
		if t.Cell.X == x && t.Cell.Y == y {
			return t
		}
	}
	return nil
}

// Partition slices the mesh into gridSize by gridSize square cells laid
// over its horizontal bounding box and returns one tile per non-empty
// cell. Triangles straddling a cut plane are clipped; the new vertices lie
// exactly on the plane. Fails with ErrDegenerateBounds when the mesh has
// no horizontal extent to divide, and passes through validation errors for
// malformed input.
func Partition(m *mesh.Mesh, gridSize int) (*Result, error) {
	if gridSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGridSize, gridSize)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	b := m.Bounds()
	ex := b.Max[0] - b.Min[0]
	ey := b.Max[1] - b.Min[1]
	if !(ex > 0 || ey > 0) {
		return nil, fmt.Errorf("%w: footprint %g by %g", ErrDegenerateBounds, ex, ey)
	}
	g := geom.NewGrid(b.Min, b.Max, gridSize)

	// Cut into columns along X. Each bisect hands the remainder east.
	columns := make([]*mesh.Mesh, gridSize)
	rem := m.Clone()
	for i := 1; i < gridSize; i++ {
		columns[i-1], rem = bisect(rem, g.PlaneX(i))
	}
	columns[gridSize-1] = rem

	var tiles []*Tile
	for x, col := range columns {
		if col.TriangleCount() == 0 {
			continue
		}
		remY := col
		for y := 1; y < gridSize; y++ {
			var cell *mesh.Mesh
			cell, remY = bisect(remY, g.PlaneY(y))
			if cell.TriangleCount() > 0 {
				tiles = append(tiles, newTile(g, x, y-1, cell))
			}
		}
		if remY.TriangleCount() > 0 {
			tiles = append(tiles, newTile(g, x, gridSize-1, remY))
		}
	}
	return &Result{Grid: g, Tiles: tiles}, nil
}
