package unwrap

import (
	"math"
	"testing"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

func TestPlanarUnwrap(t *testing.T) {
	m := &mesh.Mesh{
		Positions: []vec3.T{
			{2, 10, 0},
			{6, 10, 1},
			{6, 14, 0},
			{2, 14, 2},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}

	out, err := Planar{}.Unwrap(m)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !out.HasUVs() {
		t.Fatalf("no UVs produced")
	}

	want := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, w := range want {
		uv := out.UVs[i]
		if math.Abs(uv[0]-w[0]) > 1e-12 || math.Abs(uv[1]-w[1]) > 1e-12 {
			t.Errorf("UVs[%d] = %v, want %v", i, uv, w)
		}
	}

	// The input stays untouched.
	if m.HasUVs() {
		t.Errorf("Unwrap mutated its input")
	}
}

func TestPlanarUnwrapDegenerateAxis(t *testing.T) {
	// A wall with no Y extent still unwraps without dividing by zero.
	m := &mesh.Mesh{
		Positions: []vec3.T{{0, 3, 0}, {4, 3, 0}, {4, 3, 4}},
		Triangles: [][3]int{{0, 1, 2}},
	}
	out, err := Planar{}.Unwrap(m)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	for i, uv := range out.UVs {
		if math.IsNaN(uv[0]) || math.IsNaN(uv[1]) {
			t.Errorf("UVs[%d] = %v, contains NaN", i, uv)
		}
	}
}

func TestPlanarUnwrapInvalidMesh(t *testing.T) {
	if _, err := (Planar{}).Unwrap(&mesh.Mesh{}); err == nil {
		t.Errorf("Unwrap() accepted an empty mesh")
	}
}
