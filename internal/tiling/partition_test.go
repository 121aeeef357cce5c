package tiling

import (
	"errors"
	"math"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// planarMesh builds an n by n cell grid in the XY plane with the given
// spacing, normals up.
func planarMesh(n int, spacing float64) *mesh.Mesh {
	m := &mesh.Mesh{}
	for iy := 0; iy <= n; iy++ {
		for ix := 0; ix <= n; ix++ {
			m.Positions = append(m.Positions, vec3.T{float64(ix) * spacing, float64(iy) * spacing, 0})
		}
	}
	stride := n + 1
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := x + y*stride
			b := a + 1
			c := b + stride
			d := a + stride
			m.Triangles = append(m.Triangles, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	return m
}

func TestPartitionPlanarQuadrants(t *testing.T) {
	// A 10 by 10 plate split 2x2 gives one 5 by 5 tile per quadrant.
	m := planarMesh(10, 1)
	res, err := Partition(m, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(res.Tiles) != 4 {
		t.Fatalf("tile count = %d, want 4", len(res.Tiles))
	}
	for _, tile := range res.Tiles {
		b := tile.Mesh.Bounds()
		wantMinX := float64(tile.Cell.X) * 5
		wantMinY := float64(tile.Cell.Y) * 5
		if b.Min[0] != wantMinX || b.Max[0] != wantMinX+5 {
			t.Errorf("tile %s x range [%g, %g], want [%g, %g]",
				tile.Name(), b.Min[0], b.Max[0], wantMinX, wantMinX+5)
		}
		if b.Min[1] != wantMinY || b.Max[1] != wantMinY+5 {
			t.Errorf("tile %s y range [%g, %g], want [%g, %g]",
				tile.Name(), b.Min[1], b.Max[1], wantMinY, wantMinY+5)
		}
		if err := tile.Mesh.Validate(); err != nil {
			t.Errorf("tile %s invalid: %v", tile.Name(), err)
		}
	}
	if res.TileAt(1, 0) == nil || res.TileAt(9, 9) != nil {
		t.Errorf("TileAt lookup broken")
	}
}

func TestPartitionSeamCoordinatesIdentical(t *testing.T) {
	// Grid size 3 on a 10-unit plate puts cut planes between mesh
	// vertices, forcing real edge splits on both sides of each seam.
	m := planarMesh(10, 1)
	res, err := Partition(m, 3)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(res.Tiles) != 9 {
		t.Fatalf("tile count = %d, want 9", len(res.Tiles))
	}

	seamVerts := func(tiles []*Tile, axis int, offset float64) map[vec3.T]bool {
		set := make(map[vec3.T]bool)
		for _, tile := range tiles {
			for _, p := range tile.Mesh.Positions {
				if p[axis] == offset {
					set[p] = true
				}
			}
		}
		return set
	}
	sameSet := func(a, b map[vec3.T]bool) bool {
		if len(a) != len(b) {
			return false
		}
		for p := range a {
			if !b[p] {
				return false
			}
		}
		return true
	}
	column := func(x int) []*Tile {
		var out []*Tile
		for _, tile := range res.Tiles {
			if tile.Cell.X == x {
				out = append(out, tile)
			}
		}
		return out
	}
	row := func(y int) []*Tile {
		var out []*Tile
		for _, tile := range res.Tiles {
			if tile.Cell.Y == y {
				out = append(out, tile)
			}
		}
		return out
	}

	for i := 1; i < 3; i++ {
		off := res.Grid.PlaneX(i).Offset
		west := seamVerts(column(i-1), 0, off)
		east := seamVerts(column(i), 0, off)
		if len(west) == 0 {
			t.Fatalf("seam x=%g has no vertices", off)
		}
		if !sameSet(west, east) {
			t.Errorf("seam x=%g differs: %d west vs %d east vertices", off, len(west), len(east))
		}
	}
	for i := 1; i < 3; i++ {
		off := res.Grid.PlaneY(i).Offset
		south := seamVerts(row(i-1), 1, off)
		north := seamVerts(row(i), 1, off)
		if len(south) == 0 {
			t.Fatalf("seam y=%g has no vertices", off)
		}
		if !sameSet(south, north) {
			t.Errorf("seam y=%g differs: %d south vs %d north vertices", off, len(south), len(north))
		}
	}
}

func TestPartitionConservesArea(t *testing.T) {
	m := planarMesh(10, 1)
	src := m.SurfaceArea()

	for _, gridSize := range []int{1, 2, 3, 5, 7} {
		res, err := Partition(m, gridSize)
		if err != nil {
			t.Fatalf("Partition(%d) error = %v", gridSize, err)
		}
		var sum float64
		for _, tile := range res.Tiles {
			sum += tile.Mesh.SurfaceArea()
		}
		if math.Abs(sum-src) > 1e-9 {
			t.Errorf("grid %d: tile area sum = %v, want %v", gridSize, sum, src)
		}
	}
}

func TestPartitionInterpolatesAttributes(t *testing.T) {
	// A single triangle with a color gradient, cut down the middle.
	m := &mesh.Mesh{
		Positions: []vec3.T{{0, 0, 0}, {10, 0, 0}, {10, 10, 0}},
		Colors:    []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		Triangles: [][3]int{{0, 1, 2}},
	}
	res, err := Partition(m, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	for _, tile := range res.Tiles {
		if !tile.Mesh.HasColors() {
			t.Fatalf("tile %s lost colors", tile.Name())
		}
		for i, p := range tile.Mesh.Positions {
			if p[0] == 5 && p[1] == 0 {
				want := vec3.T{0.5, 0, 0}
				got := tile.Mesh.Colors[i]
				if math.Abs(got[0]-want[0]) > 1e-12 || got[1] != 0 || got[2] != 0 {
					t.Errorf("tile %s cut color = %v, want %v", tile.Name(), got, want)
				}
			}
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	tests := []struct {
		name     string
		mesh     *mesh.Mesh
		gridSize int
		want     error
	}{
		{
			name:     "grid size zero",
			mesh:     planarMesh(2, 1),
			gridSize: 0,
			want:     ErrInvalidGridSize,
		},
		{
			name: "invalid triangle index",
			mesh: &mesh.Mesh{
				Positions: []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Triangles: [][3]int{{0, 1, 9}},
			},
			gridSize: 2,
			want:     mesh.ErrInvalidGeometry,
		},
		{
			name: "single point",
			mesh: &mesh.Mesh{
				Positions: []vec3.T{{3, 3, 3}},
			},
			gridSize: 2,
			want:     ErrDegenerateBounds,
		},
		{
			name: "vertical pole",
			mesh: &mesh.Mesh{
				Positions: []vec3.T{{1, 1, 0}, {1, 1, 5}, {1, 1, 10}},
				Triangles: [][3]int{{0, 1, 2}},
			},
			gridSize: 2,
			want:     ErrDegenerateBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Partition(tt.mesh, tt.gridSize)
			if !errors.Is(err, tt.want) {
				t.Errorf("Partition() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPartitionOmitsEmptyCells(t *testing.T) {
	// Geometry only in the southwest and northeast corners.
	m := &mesh.Mesh{
		Positions: []vec3.T{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
			{9, 9, 0}, {10, 9, 0}, {9, 10, 0},
		},
		Triangles: [][3]int{{0, 1, 2}, {3, 4, 5}},
	}
	res, err := Partition(m, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(res.Tiles) != 2 {
		t.Fatalf("tile count = %d, want 2", len(res.Tiles))
	}
	if res.TileAt(0, 0) == nil || res.TileAt(1, 1) == nil {
		t.Errorf("expected tiles at 0,0 and 1,1")
	}
	if res.TileAt(1, 0) != nil || res.TileAt(0, 1) != nil {
		t.Errorf("empty cells must be omitted")
	}
}

func TestPartitionSingleCellOwnsItsMesh(t *testing.T) {
	m := planarMesh(2, 1)
	res, err := Partition(m, 1)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(res.Tiles) != 1 {
		t.Fatalf("tile count = %d, want 1", len(res.Tiles))
	}
	tile := res.Tiles[0]
	if tile.Mesh.TriangleCount() != m.TriangleCount() {
		t.Errorf("TriangleCount = %d, want %d", tile.Mesh.TriangleCount(), m.TriangleCount())
	}
	tile.Mesh.Positions[0] = vec3.T{99, 99, 99}
	if m.Positions[0] == (vec3.T{99, 99, 99}) {
		t.Errorf("tile mesh aliases the source mesh")
	}
}

func TestPartitionCoplanarWallNotDuplicated(t *testing.T) {
	// A vertical wall standing exactly on the cut plane must end up in
	// exactly one tile.
	m := planarMesh(10, 1)
	base := len(m.Positions)
	m.Positions = append(m.Positions,
		vec3.T{5, 2, 0}, vec3.T{5, 4, 0}, vec3.T{5, 3, 2})
	m.Triangles = append(m.Triangles, [3]int{base, base + 1, base + 2})

	res, err := Partition(m, 2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	wallCount := 0
	for _, tile := range res.Tiles {
		for _, tri := range tile.Mesh.Triangles {
			if tile.Mesh.Positions[tri[0]][2] > 0 ||
				tile.Mesh.Positions[tri[1]][2] > 0 ||
				tile.Mesh.Positions[tri[2]][2] > 0 {
				wallCount++
			}
		}
	}
	if wallCount != 1 {
		t.Errorf("wall triangle appears %d times across tiles, want 1", wallCount)
	}
}
