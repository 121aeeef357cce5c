// Package geom provides the planar cutting primitives used to slice a
// mesh into square tiles: axis-aligned planes, the tile grid itself and
// point classification against both.
//
// The world is Z-up; the tile grid lives in the horizontal XY plane.
package geom

import (
	vec3 "github.com/flywave/go3d/float64/vec3"
)

// Axis identifies one of the two horizontal world axes.
type Axis int

const (
	AxisX Axis = 0
	AxisY Axis = 1
)

// String returns the axis name.
func (a Axis) String() string {
	if a == AxisX {
		return "X"
	}
	return "Y"
}

// Plane is a vertical plane perpendicular to a horizontal axis, given by
// axis and offset (the plane is the locus p[Axis] == Offset). Restricting
// planes to the axis-aligned form keeps Eval free of products and rounding:
// two points with the same coordinate evaluate to exactly the same distance,
// which is what lets neighbouring tiles agree on their shared seam.
type Plane struct {
	Axis   Axis
	Offset float64
}

// Eval returns the signed distance from p to the plane, positive on the
// +axis side. Exact: a single subtraction.
func (pl Plane) Eval(p vec3.T) float64 {
	return p[pl.Axis] - pl.Offset
}

// Contains reports whether p lies within eps of the plane.
func (pl Plane) Contains(p vec3.T, eps float64) bool {
	d := pl.Eval(p)
	if d < 0 {
		d = -d
	}
	return d <= eps
}
