package geom

import (
	"fmt"

	vec3 "github.com/flywave/go3d/float64/vec3"
)

// Cell is an integer grid coordinate. (0,0) is the cell at the grid origin.
type Cell struct {
	X, Y int
}

// String returns the cell as "x,y".
func (c Cell) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Grid divides the horizontal plane into N×N square cells of CellSize,
// anchored at (OriginX, OriginY). Cells are square regardless of the
// footprint's aspect ratio; cells that fall outside the mesh simply stay
// empty. Cut plane offsets are derived once from the origin and cell size,
// so every caller asking for the plane between two cells gets the exact
// same float64 value.
type Grid struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
	N        int
}

// NewGrid builds a grid of n×n square cells covering the horizontal extent
// [min, max]. The cell size is the longer horizontal side divided by n, so
// the grid always covers the full footprint.
func NewGrid(min, max vec3.T, n int) Grid {
	ex := max[0] - min[0]
	ey := max[1] - min[1]
	longest := ex
	if ey > longest {
		longest = ey
	}
	return Grid{
		OriginX:  min[0],
		OriginY:  min[1],
		CellSize: longest / float64(n),
		N:        n,
	}
}

// PlaneX returns the vertical cut plane between column i-1 and column i,
// for i in [0, N]. PlaneX(0) is the grid's west edge.
func (g Grid) PlaneX(i int) Plane {
	return Plane{Axis: AxisX, Offset: g.OriginX + float64(i)*g.CellSize}
}

// PlaneY returns the vertical cut plane between row i-1 and row i.
func (g Grid) PlaneY(i int) Plane {
	return Plane{Axis: AxisY, Offset: g.OriginY + float64(i)*g.CellSize}
}

// CellOf returns the cell containing p. Points on an interior cut plane
// belong to the cell on the +axis side; points outside the grid clamp to
// the border cells.
func (g Grid) CellOf(p vec3.T) Cell {
	return Cell{
		X: g.clamp(int((p[0] - g.OriginX) / g.CellSize)),
		Y: g.clamp(int((p[1] - g.OriginY) / g.CellSize)),
	}
}

func (g Grid) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= g.N {
		return g.N - 1
	}
	return i
}

// CellPlanes returns the four bounding planes of a cell in the order
// west, east, south, north.
func (g Grid) CellPlanes(c Cell) [4]Plane {
	return [4]Plane{
		g.PlaneX(c.X),
		g.PlaneX(c.X + 1),
		g.PlaneY(c.Y),
		g.PlaneY(c.Y + 1),
	}
}
