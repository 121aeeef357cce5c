package simplify

import (
	"errors"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// gridPatch builds an n by n cell planar grid with unit spacing.
func gridPatch(n int) *mesh.Mesh {
	m := &mesh.Mesh{}
	for iy := 0; iy <= n; iy++ {
		for ix := 0; ix <= n; ix++ {
			m.Positions = append(m.Positions, vec3.T{float64(ix), float64(iy), 0})
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

// perimeterMask locks every vertex on the patch rim.
func perimeterMask(m *mesh.Mesh, n int) []bool {
	mask := make([]bool, m.VertexCount())
	for i, p := range m.Positions {
		if p[0] == 0 || p[0] == float64(n) || p[1] == 0 || p[1] == float64(n) {
			mask[i] = true
		}
	}
	return mask
}

func TestTargetResolve(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		in     int
		want   int
	}{
		{"half ratio", Target{Ratio: 0.5}, 100, 50},
		{"full ratio", Target{Ratio: 1.0}, 72, 72},
		{"rounding", Target{Ratio: 0.25}, 10, 3},
		{"absolute count", Target{Count: 30}, 100, 30},
		{"count wins over ratio", Target{Ratio: 0.9, Count: 10}, 100, 10},
		{"count above input clamps", Target{Count: 500}, 100, 100},
		{"ratio above one clamps", Target{Ratio: 2.0}, 100, 100},
		{"zero ratio", Target{}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecimateInfeasibleTarget(t *testing.T) {
	m := gridPatch(6)
	locked := perimeterMask(m, 6) // 24 locked vertices, 72 triangles

	_, err := Decimate(NewQuadricReducer(), m, locked, Target{Ratio: 0.1})
	if !errors.Is(err, ErrInfeasibleTarget) {
		t.Errorf("Decimate() error = %v, want ErrInfeasibleTarget", err)
	}

	// Exactly the locked count is still admissible.
	if _, err := Decimate(NewQuadricReducer(), m, locked, Target{Count: 24}); err != nil {
		t.Errorf("Decimate() at lock boundary error = %v", err)
	}
}

func TestDecimateFullTargetCopies(t *testing.T) {
	m := gridPatch(4)
	out, err := Decimate(NewQuadricReducer(), m, nil, Target{Ratio: 1.0})
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}
	if out.TriangleCount() != m.TriangleCount() || out.VertexCount() != m.VertexCount() {
		t.Fatalf("full target changed the mesh: %d/%d tris, %d/%d verts",
			out.TriangleCount(), m.TriangleCount(), out.VertexCount(), m.VertexCount())
	}
	out.Positions[0] = vec3.T{42, 0, 0}
	if m.Positions[0] == (vec3.T{42, 0, 0}) {
		t.Errorf("output aliases the input mesh")
	}
}

func TestDecimateBadMask(t *testing.T) {
	m := gridPatch(2)
	if _, err := Decimate(NewQuadricReducer(), m, make([]bool, 3), Target{Ratio: 0.5}); err == nil {
		t.Errorf("Decimate() with short mask did not fail")
	}
}

func TestReduceReachesTarget(t *testing.T) {
	m := gridPatch(6)
	out, err := NewQuadricReducer().Reduce(m, nil, 36)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if out.TriangleCount() > 36 {
		t.Errorf("TriangleCount = %d, want <= 36", out.TriangleCount())
	}
	if out.TriangleCount() == 0 {
		t.Errorf("reduced to nothing")
	}
	if err := out.Validate(); err != nil {
		t.Errorf("reduced mesh invalid: %v", err)
	}
}

func TestReduceKeepsLockedPositionsExact(t *testing.T) {
	m := gridPatch(6)
	locked := perimeterMask(m, 6)

	out, err := Decimate(NewQuadricReducer(), m, locked, Target{Ratio: 0.5})
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}
	if out.TriangleCount() >= m.TriangleCount() {
		t.Fatalf("no reduction happened: %d triangles", out.TriangleCount())
	}

	got := make(map[vec3.T]bool, out.VertexCount())
	for _, p := range out.Positions {
		got[p] = true
	}
	for i, p := range m.Positions {
		if locked[i] && !got[p] {
			t.Errorf("locked vertex %v missing from output", p)
		}
	}
}

func TestReduceNeverMovesLockedVertices(t *testing.T) {
	// Lock a single interior vertex and decimate hard. The locked position
	// must survive exactly, even though everything around it collapses.
	m := gridPatch(8)
	locked := make([]bool, m.VertexCount())
	target := vec3.T{4, 4, 0}
	for i, p := range m.Positions {
		if p == target {
			locked[i] = true
		}
	}

	out, err := Decimate(NewQuadricReducer(), m, locked, Target{Ratio: 0.1})
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}
	found := false
	for _, p := range out.Positions {
		if p == target {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("locked vertex %v not present after heavy decimation", target)
	}
}

func TestReduceDeterministic(t *testing.T) {
	m := gridPatch(6)
	locked := perimeterMask(m, 6)

	first, err := Decimate(NewQuadricReducer(), m, locked, Target{Ratio: 0.5})
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}
	second, err := Decimate(NewQuadricReducer(), m, locked, Target{Ratio: 0.5})
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}

	if first.VertexCount() != second.VertexCount() || first.TriangleCount() != second.TriangleCount() {
		t.Fatalf("runs differ in size: %d/%d verts, %d/%d tris",
			first.VertexCount(), second.VertexCount(), first.TriangleCount(), second.TriangleCount())
	}
	for i := range first.Positions {
		if first.Positions[i] != second.Positions[i] {
			t.Fatalf("vertex %d differs between runs: %v vs %v", i, first.Positions[i], second.Positions[i])
		}
	}
	for i := range first.Triangles {
		if first.Triangles[i] != second.Triangles[i] {
			t.Fatalf("triangle %d differs between runs", i)
		}
	}
}

func TestReduceSurfaceStaysFlat(t *testing.T) {
	// Decimating a flat patch must keep every surviving vertex in plane.
	m := gridPatch(6)
	out, err := NewQuadricReducer().Reduce(m, perimeterMask(m, 6), 40)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	for i, p := range out.Positions {
		if p[2] != 0 {
			t.Errorf("vertex %d left the plane: %v", i, p)
		}
	}
}
