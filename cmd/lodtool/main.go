// lodtool is a CLI utility for slicing photogrammetry meshes into
// border-preserving LOD tile sets.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gojushin/EnvironmentLodTools/internal/config"
	"github.com/gojushin/EnvironmentLodTools/internal/export"
	"github.com/gojushin/EnvironmentLodTools/internal/lod"
	"github.com/gojushin/EnvironmentLodTools/internal/logger"
	"github.com/gojushin/EnvironmentLodTools/internal/pipeline"
	"github.com/gojushin/EnvironmentLodTools/internal/tiling"
	"github.com/gojushin/EnvironmentLodTools/pkg/formats"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		cmdRun(args)
	case "info":
		cmdInfo(args)
	case "slice":
		cmdSlice(args)
	case "init":
		cmdInit(args)
	case "version", "-v", "--version":
		fmt.Printf("lodtool %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`lodtool - border-preserving LOD tiling for photogrammetry meshes

Usage:
  lodtool <command> [options]

Commands:
  run [options] <mesh>    Clean, slice, decimate and export a mesh
  info <mesh>             Show mesh statistics
  slice [options] <mesh>  Preview the tile grid without decimating
  init [-global]          Write a config.yaml with the default settings
  version                 Print the version

Run options:
  -config path    Config file (default: ./config.yaml, then the user config dir)
  -out dir        Output directory (default "output")
  -format name    Export format: obj, ply or glb (default "glb")
  -grid n         Grid cells per horizontal axis (default 4)
  -lods n         LOD levels per tile (default 3)
  -reduction pct  Per-level reduction percentage (default 50)
  -workers n      Worker goroutines (default: all CPUs)
  -no-unwrap      Skip the UV unwrap stage
  -no-bake        Skip the vertex colour bake stage
  -debug          Enable debug logging

Examples:
  lodtool run scan.ply
  lodtool run -grid 8 -lods 4 -out tiles -format glb scan.obj
  lodtool slice -grid 4 scan.ply
  lodtool info scan.obj`)
}

// readMesh loads a mesh by file extension.
func readMesh(path string) (*mesh.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return formats.ParseOBJFile(path)
	case ".ply":
		return formats.ParsePLYFile(path)
	default:
		return nil, fmt.Errorf("unsupported mesh format %q (want .obj or .ply)", filepath.Ext(path))
	}
}

func cmdRun(args []string) {
	// Parse CLI flags first
	config.ParseFlags(args)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if flag.CommandLine.NArg() > 0 {
		cfg.Input.Path = flag.CommandLine.Arg(0)
	}
	if cfg.Input.Path == "" {
		fmt.Fprintln(os.Stderr, "Usage: lodtool run [options] <mesh.obj|mesh.ply>")
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== lodtool ===", zap.String("version", version))
	logger.Sugar.Debugf("Config: %+v", cfg)

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src, err := readMesh(cfg.Input.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", cfg.Input.Path, err)
		os.Exit(1)
	}
	logger.Info("loaded mesh",
		zap.String("path", cfg.Input.Path),
		zap.Int("vertices", src.VertexCount()),
		zap.Int("triangles", src.TriangleCount()))

	ratios := cfg.LOD.Ratios
	if len(ratios) == 0 {
		ratios = lod.Targets(cfg.LOD.Count, cfg.LOD.Reduction)
	}

	c := pipeline.New(pipeline.Options{
		GridSize:    cfg.Slice.GridSize,
		Ratios:      ratios,
		SeamEpsilon: cfg.Slice.SeamEpsilon,
		Workers:     cfg.Run.Workers,
		CleanOptions: mesh.CleanOptions{
			WeldEpsilon:       cfg.Cleanup.WeldEpsilon,
			AreaEpsilon:       cfg.Cleanup.AreaEpsilon,
			MinComponentVerts: cfg.Cleanup.MinComponentVerts,
			MaxHoleSides:      cfg.Cleanup.MaxHoleSides,
		},
		Unwrap: cfg.Unwrap.Enabled,
		Bake:   cfg.Bake.Enabled,
		OutDir: cfg.Export.Dir,
		Format: format,
	})

	// Ctrl-C cancels between tiles and levels; the level in flight finishes.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	go func() {
		<-sig
		logger.Warn("interrupt received, cancelling")
		c.Cancel()
	}()

	run, err := c.Run(src)
	printRunSummary(run)
	if err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "Run cancelled, no output written")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printRunSummary(run *pipeline.Run) {
	fmt.Println()
	fmt.Println("Stages:")
	for _, s := range run.Stages {
		if s.Duration > 0 {
			fmt.Printf("  %-14s %-10s %v\n", s.Stage, s.Status, s.Duration.Round(time.Millisecond))
		} else {
			fmt.Printf("  %-14s %s\n", s.Stage, s.Status)
		}
	}
	fmt.Println()
	fmt.Printf("Result:  %s\n", run.Stage)
	if run.Stage == pipeline.StageDone {
		fmt.Printf("Tiles:   %d\n", run.Tiles)
		fmt.Printf("Levels:  %d", run.Levels)
		if run.Skipped > 0 {
			fmt.Printf(" (%d skipped, see manifest)", run.Skipped)
		}
		fmt.Println()
	}
	fmt.Printf("Elapsed: %v\n", run.Duration.Round(time.Millisecond))
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lodtool info <mesh.obj|mesh.ply>")
		os.Exit(1)
	}

	m, err := readMesh(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	b := m.Bounds()
	comps := m.ConnectedComponents()
	loops := m.BorderLoops()
	longest := 0
	for _, l := range loops {
		if len(l) > longest {
			longest = len(l)
		}
	}

	fmt.Printf("Mesh:       %s\n", fs.Arg(0))
	fmt.Printf("Vertices:   %d\n", m.VertexCount())
	fmt.Printf("Triangles:  %d\n", m.TriangleCount())
	fmt.Printf("Attributes: %s\n", attrList(m))
	fmt.Printf("Bounds min: (%.3f, %.3f, %.3f)\n", b.Min[0], b.Min[1], b.Min[2])
	fmt.Printf("Bounds max: (%.3f, %.3f, %.3f)\n", b.Max[0], b.Max[1], b.Max[2])
	fmt.Printf("Footprint:  %.3f x %.3f\n", b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	fmt.Printf("Area:       %.3f\n", m.SurfaceArea())
	fmt.Printf("Components: %d\n", len(comps))
	if len(loops) > 0 {
		fmt.Printf("Holes:      %d border loops (longest %d edges)\n", len(loops), longest)
	} else {
		fmt.Println("Holes:      none (closed surface)")
	}
}

func attrList(m *mesh.Mesh) string {
	attrs := []string{"positions"}
	if m.HasNormals() {
		attrs = append(attrs, "normals")
	}
	if m.HasColors() {
		attrs = append(attrs, "colors")
	}
	if m.HasUVs() {
		attrs = append(attrs, "uvs")
	}
	return strings.Join(attrs, ", ")
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	global := fs.Bool("global", false, "Write to the user config directory instead of the working directory")
	fs.Parse(args)

	path := "config.yaml"
	if *global {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", path)
		os.Exit(1)
	}

	if err := config.Default().SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func cmdSlice(args []string) {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	grid := fs.Int("grid", 4, "Grid cells per horizontal axis")
	eps := fs.Float64("eps", tiling.DefaultSeamEpsilon, "Seam classifier tolerance")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lodtool slice [options] <mesh.obj|mesh.ply>")
		os.Exit(1)
	}

	m, err := readMesh(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := tiling.Partition(m, *grid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	g := res.Grid
	fmt.Printf("Grid:     %dx%d cells of %.3f\n", g.N, g.N, g.CellSize)
	fmt.Printf("Origin:   (%.3f, %.3f)\n", g.OriginX, g.OriginY)
	fmt.Printf("Occupied: %d of %d cells\n", len(res.Tiles), g.N*g.N)
	fmt.Println()
	fmt.Printf("  %-12s %10s %10s %12s\n", "tile", "vertices", "triangles", "seam verts")
	for _, t := range res.Tiles {
		fmt.Printf("  %-12s %10d %10d %12d\n",
			t.Name(), t.Mesh.VertexCount(), t.Mesh.TriangleCount(), t.Boundary(*eps).Count())
	}
}
