// Package config handles pipeline configuration loading and management.
package config

// Config holds all pipeline settings.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Cleanup CleanupConfig `yaml:"cleanup"`
	Slice   SliceConfig   `yaml:"slice"`
	LOD     LODConfig     `yaml:"lod"`
	Unwrap  UnwrapConfig  `yaml:"unwrap"`
	Bake    BakeConfig    `yaml:"bake"`
	Export  ExportConfig  `yaml:"export"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig holds the source mesh location.
type InputConfig struct {
	Path string `yaml:"path"` // OBJ or PLY file
}

// CleanupConfig holds the pre-slice cleanup thresholds.
type CleanupConfig struct {
	WeldEpsilon       float64 `yaml:"weld_epsilon"`
	AreaEpsilon       float64 `yaml:"area_epsilon"`
	MinComponentVerts int     `yaml:"min_component_verts"`
	MaxHoleSides      int     `yaml:"max_hole_sides"`
}

// SliceConfig holds the grid partitioning settings.
type SliceConfig struct {
	GridSize    int     `yaml:"grid_size"`
	SeamEpsilon float64 `yaml:"seam_epsilon"`
}

// LODConfig holds the level chain settings. Explicit ratios take priority
// over the count/reduction pair.
type LODConfig struct {
	Count     int       `yaml:"count"`
	Reduction float64   `yaml:"reduction"`
	Ratios    []float64 `yaml:"ratios,omitempty"`
}

// UnwrapConfig toggles the UV unwrap stage.
type UnwrapConfig struct {
	Enabled bool `yaml:"enabled"`
}

// BakeConfig toggles the vertex colour bake stage.
type BakeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // obj, ply or glb
}

// RunConfig holds execution settings.
type RunConfig struct {
	Workers int `yaml:"workers"` // 0 uses every CPU
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Cleanup: CleanupConfig{
			WeldEpsilon:       1e-6,
			AreaEpsilon:       0,
			MinComponentVerts: 1000,
			MaxHoleSides:      1000,
		},
		Slice: SliceConfig{
			GridSize:    4,
			SeamEpsilon: 1e-6,
		},
		LOD: LODConfig{
			Count:     3,
			Reduction: 50.0,
		},
		Unwrap: UnwrapConfig{
			Enabled: true,
		},
		Bake: BakeConfig{
			Enabled: true,
		},
		Export: ExportConfig{
			Dir:    "output",
			Format: "glb",
		},
		Run: RunConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
