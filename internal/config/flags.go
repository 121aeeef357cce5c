package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagInput     = flag.String("input", "", "Input mesh path (obj or ply)")
	flagOut       = flag.String("out", "", "Output directory")
	flagFormat    = flag.String("format", "", "Export format: obj, ply or glb")
	flagGrid      = flag.Int("grid", 0, "Grid cells per horizontal axis")
	flagLODs      = flag.Int("lods", 0, "Number of LOD levels per tile")
	flagReduction = flag.Float64("reduction", 0, "Per-level reduction percentage")
	flagWorkers   = flag.Int("workers", 0, "Worker goroutines (0 = all CPUs)")
	flagNoUnwrap  = flag.Bool("no-unwrap", false, "Skip the UV unwrap stage")
	flagNoBake    = flag.Bool("no-bake", false, "Skip the vertex colour bake stage")
)

// ParseFlags parses the given command-line arguments. Call this early in
// main(), after any subcommand has been stripped.
func ParseFlags(args []string) {
	_ = flag.CommandLine.Parse(args)
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagInput != "" {
		cfg.Input.Path = *flagInput
	}
	if *flagOut != "" {
		cfg.Export.Dir = *flagOut
	}
	if *flagFormat != "" {
		cfg.Export.Format = *flagFormat
	}
	if *flagGrid > 0 {
		cfg.Slice.GridSize = *flagGrid
	}
	if *flagLODs > 0 {
		cfg.LOD.Count = *flagLODs
	}
	if *flagReduction > 0 {
		cfg.LOD.Reduction = *flagReduction
	}
	if *flagWorkers > 0 {
		cfg.Run.Workers = *flagWorkers
	}
	if *flagNoUnwrap {
		cfg.Unwrap.Enabled = false
	}
	if *flagNoBake {
		cfg.Bake.Enabled = false
	}
}
