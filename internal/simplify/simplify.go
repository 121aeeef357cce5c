// Package simplify decimates tile meshes with quadric error edge collapse
// while honouring a per-vertex lock mask. Locked vertices never move, are
// never merged away, and edges between two locked vertices are never
// collapsed, so the locked seam chain keeps both its coordinates and its
// cyclic order through every reduction.
package simplify

import (
	"errors"
	"fmt"
	"math"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// ErrInfeasibleTarget reports a requested resolution below what the lock
// mask permits. The caller decides whether to clamp, skip the level or
// abort.
var ErrInfeasibleTarget = errors.New("decimation target below locked vertex count")

// Target is a requested output resolution: an absolute triangle count, or
// when Count is zero, a fraction of the input triangle count.
type Target struct {
	Ratio float64
	Count int
}

// Resolve turns the target into an absolute triangle count for an input of
// inTris triangles, clamped to [0, inTris].
func (t Target) Resolve(inTris int) int {
	n := t.Count
	if n == 0 {
		n = int(math.Round(t.Ratio * float64(inTris)))
	}
	if n < 0 {
		return 0
	}
	if n > inTris {
		return inTris
	}
	return n
}

// Reducer collapses a mesh down to approximately targetTris triangles.
// Implementations must keep every locked vertex at its exact input
// position and must not merge locked vertices into each other.
type Reducer interface {
	Reduce(m *mesh.Mesh, locked []bool, targetTris int) (*mesh.Mesh, error)
}

// Decimate checks the target against the lock mask and runs the reducer.
// A target of the full input size returns an untouched copy. The lock mask
// may be nil; when present it must cover every vertex.
func Decimate(r Reducer, m *mesh.Mesh, locked []bool, target Target) (*mesh.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if locked != nil && len(locked) != m.VertexCount() {
		return nil, fmt.Errorf("lock mask covers %d of %d vertices", len(locked), m.VertexCount())
	}

	lockedCount := 0
	for _, l := range locked {
		if l {
			lockedCount++
		}
	}
	goal := target.Resolve(m.TriangleCount())
	if goal < lockedCount {
		return nil, fmt.Errorf("%w: %d triangles requested, %d vertices locked",
			ErrInfeasibleTarget, goal, lockedCount)
	}
	if goal >= m.TriangleCount() {
		return m.Clone(), nil
	}
	return r.Reduce(m, locked, goal)
}
