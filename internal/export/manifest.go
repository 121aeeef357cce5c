package export

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gojushin/EnvironmentLodTools/internal/lod"
)

// ManifestName is the manifest's file name inside the output directory.
const ManifestName = "manifest.yaml"

// Manifest summarises one export run: which tiles were written, at which
// levels, and which levels were skipped as infeasible.
type Manifest struct {
	Generator string         `yaml:"generator"`
	Created   string         `yaml:"created"`
	Format    string         `yaml:"format"`
	Tiles     []ManifestTile `yaml:"tiles"`
}

// ManifestTile is the per-tile entry of a Manifest.
type ManifestTile struct {
	Name    string          `yaml:"name"`
	Cell    [2]int          `yaml:"cell"`
	Levels  []ManifestLevel `yaml:"levels"`
	Skipped []ManifestSkip  `yaml:"skipped,omitempty"`
}

// ManifestLevel records one written level file.
type ManifestLevel struct {
	Index     int     `yaml:"index"`
	Ratio     float64 `yaml:"ratio"`
	File      string  `yaml:"file"`
	Vertices  int     `yaml:"vertices"`
	Triangles int     `yaml:"triangles"`
}

// ManifestSkip records a level that was not generated.
type ManifestSkip struct {
	Index  int     `yaml:"index"`
	Ratio  float64 `yaml:"ratio"`
	Reason string  `yaml:"reason"`
}

// NewManifest returns an empty manifest stamped with the current time.
func NewManifest(f Format) *Manifest {
	return &Manifest{
		Generator: generatorName,
		Created:   time.Now().UTC().Format(time.RFC3339),
		Format:    string(f),
	}
}

// AddSet appends one tile's chain to the manifest.
func (mf *Manifest) AddSet(set *lod.Set) {
	t := ManifestTile{
		Name: set.Tile.Name(),
		Cell: [2]int{set.Tile.Cell.X, set.Tile.Cell.Y},
	}
	for _, lv := range set.Levels {
		t.Levels = append(t.Levels, ManifestLevel{
			Index:     lv.Index,
			Ratio:     lv.Ratio,
			File:      lv.Name + Format(mf.Format).Ext(),
			Vertices:  lv.Mesh.VertexCount(),
			Triangles: lv.Mesh.TriangleCount(),
		})
	}
	for _, sk := range set.Skipped {
		t.Skipped = append(t.Skipped, ManifestSkip{
			Index:  sk.Index,
			Ratio:  sk.Ratio,
			Reason: sk.Reason.Error(),
		})
	}
	mf.Tiles = append(mf.Tiles, t)
}

// SaveTo writes the manifest to a specific path.
func (mf *Manifest) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(mf)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
