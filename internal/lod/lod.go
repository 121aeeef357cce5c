// Package lod builds the level of detail chain for each tile. All levels
// of a tile decimate the same full resolution tile mesh under one shared
// boundary classification, which pins every seam vertex to the same exact
// coordinates in every level. Two neighbouring tiles therefore mesh
// cleanly at any level pairing.
package lod

import (
	"errors"
	"fmt"
	"math"

	"github.com/gojushin/EnvironmentLodTools/internal/simplify"
	"github.com/gojushin/EnvironmentLodTools/internal/tiling"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// MinRatio is the coarsest level ratio ever requested. Targets clamps the
// geometric sequence here so very deep chains do not ask for empty meshes.
const MinRatio = 0.01

// Level is one generated resolution of a tile.
type Level struct {
	Index int
	Ratio float64
	Name  string
	Mesh  *mesh.Mesh
}

// SkippedLevel records a level that could not be generated because its
// target fell below the tile's locked seam vertex count.
type SkippedLevel struct {
	Index  int
	Ratio  float64
	Reason error
}

// Set is the full chain of levels generated for one tile, finest first,
// plus the levels that were skipped as infeasible.
type Set struct {
	Tile    *tiling.Tile
	Levels  []Level
	Skipped []SkippedLevel
}

// Targets returns the ratio sequence for count levels at the given
// percentage reduction per level: (1 - reduction/100)^i, clamped to
// MinRatio. Index zero is always 1.0, the undecimated tile.
func Targets(count int, reductionPercent float64) []float64 {
	factor := 1 - reductionPercent/100
	out := make([]float64, count)
	for i := range out {
		r := math.Pow(factor, float64(i))
		if r < MinRatio {
			r = MinRatio
		}
		out[i] = r
	}
	return out
}

// Build generates one level per requested ratio for the tile, decimating
// the original tile mesh each time with the tile's cached boundary
// classification. Ratios are processed finest to coarsest in the order
// given. An infeasible level is recorded in Skipped and the chain
// continues; any other failure aborts.
func Build(t *tiling.Tile, r simplify.Reducer, ratios []float64, seamEps float64) (*Set, error) {
	return BuildWithProgress(t, r, ratios, seamEps, nil)
}

// BuildWithProgress is Build with a checkpoint callback invoked after each
// processed ratio, whether it produced or skipped a level. A non-nil error
// from the callback aborts the build and is returned as is, which lets a
// coordinator stop a long chain between levels.
func BuildWithProgress(t *tiling.Tile, r simplify.Reducer, ratios []float64, seamEps float64, checkpoint func() error) (*Set, error) {
	if len(ratios) == 0 {
		return nil, errors.New("no levels requested")
	}
	bs := t.Boundary(seamEps)

	set := &Set{Tile: t}
	for i, ratio := range ratios {
		m, err := simplify.Decimate(r, t.Mesh, bs.Mask(), simplify.Target{Ratio: ratio})
		switch {
		case err == nil:
			set.Levels = append(set.Levels, Level{
				Index: i,
				Ratio: ratio,
				Name:  fmt.Sprintf("%s_lod_%d", t.Name(), i),
				Mesh:  m,
			})
		case errors.Is(err, simplify.ErrInfeasibleTarget):
			set.Skipped = append(set.Skipped, SkippedLevel{Index: i, Ratio: ratio, Reason: err})
		default:
			return nil, fmt.Errorf("level %d of %s: %w", i, t.Name(), err)
		}
		if checkpoint != nil {
			if err := checkpoint(); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
