// Package pipeline sequences a full run over one input mesh: cleanup,
// grid partitioning, per tile level of detail generation, optional UV
// unwrap and colour bake, and export. Per tile work fans out across a
// bounded worker pool; everything that touches the filesystem stays on
// the calling goroutine. A run ends in exactly one of Done, Failed or
// Cancelled, and nothing below the coordinator leaks past it.
package pipeline

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gojushin/EnvironmentLodTools/internal/bake"
	"github.com/gojushin/EnvironmentLodTools/internal/export"
	"github.com/gojushin/EnvironmentLodTools/internal/lod"
	"github.com/gojushin/EnvironmentLodTools/internal/logger"
	"github.com/gojushin/EnvironmentLodTools/internal/simplify"
	"github.com/gojushin/EnvironmentLodTools/internal/tiling"
	"github.com/gojushin/EnvironmentLodTools/internal/unwrap"
	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// ErrCancelled ends a run stopped through Cancel. Partial tile results
// are discarded, nothing is written.
var ErrCancelled = errors.New("run cancelled")

// Defaults for the level chain when none is configured.
const (
	DefaultLevelCount = 3
	DefaultReduction  = 50.0
)

// Options configures a run. The zero value of an optional field selects
// the default noted on it.
type Options struct {
	// GridSize is the number of cells per horizontal axis.
	GridSize int
	// Ratios is the per-level triangle ratio chain, finest first.
	// Defaults to Targets(DefaultLevelCount, DefaultReduction).
	Ratios []float64
	// SeamEpsilon is the boundary classifier tolerance. Defaults to
	// tiling.DefaultSeamEpsilon.
	SeamEpsilon float64
	// Workers bounds tile-level parallelism. Defaults to NumCPU.
	Workers int

	// CleanOptions feeds the cleanup stage.
	CleanOptions mesh.CleanOptions

	// Unwrap and Bake enable the two optional stages.
	Unwrap bool
	Bake   bool

	// OutDir receives the exported levels and the manifest. Empty skips
	// export entirely.
	OutDir string
	// Format is the export format. Defaults to GLB.
	Format export.Format

	// Reducer performs the per-level decimation. Defaults to the quadric
	// reducer.
	Reducer simplify.Reducer
	// Unwrapper produces UVs during the unwrap stage. Defaults to the
	// planar projector.
	Unwrapper unwrap.Unwrapper
	// SamplerFor builds the bake colour oracle from the original source
	// mesh. Defaults to the surface sampler.
	SamplerFor func(src *mesh.Mesh) (bake.Sampler, error)

	// OnProgress, when set, receives a snapshot after every stage change
	// and every completed tile or level. It runs under the coordinator's
	// lock and must not call back into Progress.
	OnProgress func(Progress)
}

// Progress is a point-in-time view of a run.
type Progress struct {
	Stage       Stage
	TilesDone   int
	TilesTotal  int
	LevelsDone  int
	LevelsTotal int
}

// Failure pins a fatal error to the stage and component that raised it.
type Failure struct {
	Stage     Stage
	Component string
	Err       error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Component, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Run is the record of one pipeline execution.
type Run struct {
	// Stage is the terminal stage: Done, Failed or Cancelled.
	Stage  Stage
	Stages []StageReport

	Tiles   int
	Levels  int
	Skipped int

	Sets       []*lod.Set
	Manifest   *export.Manifest
	CleanStats mesh.CleanStats

	Failure  *Failure
	Duration time.Duration
}

// Coordinator drives one run. Create a fresh one per run.
type Coordinator struct {
	opts Options

	mu       sync.Mutex
	progress Progress

	cancelled atomic.Bool
}

// New returns a coordinator for the given options, filling in defaults
// for unset optional fields.
func New(opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.SeamEpsilon <= 0 {
		opts.SeamEpsilon = tiling.DefaultSeamEpsilon
	}
	if len(opts.Ratios) == 0 {
		opts.Ratios = lod.Targets(DefaultLevelCount, DefaultReduction)
	}
	if opts.Reducer == nil {
		opts.Reducer = simplify.NewQuadricReducer()
	}
	if opts.Unwrapper == nil {
		opts.Unwrapper = unwrap.Planar{}
	}
	if opts.SamplerFor == nil {
		opts.SamplerFor = func(src *mesh.Mesh) (bake.Sampler, error) {
			return bake.NewSurface(src)
		}
	}
	if opts.Format == "" {
		opts.Format = export.FormatGLB
	}
	return &Coordinator{opts: opts}
}

// Cancel requests a cooperative stop. The flag is checked between stages,
// between tiles and between levels; the current level finishes first.
func (c *Coordinator) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *Coordinator) Cancelled() bool {
	return c.cancelled.Load()
}

// Progress returns a snapshot of the run's progress.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Coordinator) update(f func(*Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.progress)
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(c.progress)
	}
}

// checkpoint runs between levels inside a tile build.
func (c *Coordinator) checkpoint() error {
	if c.cancelled.Load() {
		return ErrCancelled
	}
	c.update(func(p *Progress) { p.LevelsDone++ })
	return nil
}

// Run executes the pipeline over src. The input mesh is never mutated.
// The returned Run is non-nil even on failure; the error is nil only when
// the run ends in StageDone.
func (c *Coordinator) Run(src *mesh.Mesh) (*Run, error) {
	start := time.Now()
	run := &Run{Stage: StageIdle}

	var current Stage
	var stageStart time.Time
	open := false

	begin := func(s Stage) {
		current = s
		stageStart = time.Now()
		open = true
		c.update(func(p *Progress) { p.Stage = s })
		logger.Info("pipeline stage", zap.String("stage", s.String()))
	}
	endStage := func(st StageStatus) {
		run.Stages = append(run.Stages, StageReport{Stage: current, Status: st, Duration: time.Since(stageStart)})
		open = false
	}
	skipStage := func(s Stage) {
		run.Stages = append(run.Stages, StageReport{Stage: s, Status: StatusSkipped})
	}
	fail := func(component string, err error) (*Run, error) {
		endStage(StatusFailed)
		run.Stage = StageFailed
		run.Failure = &Failure{Stage: current, Component: component, Err: err}
		run.Duration = time.Since(start)
		c.update(func(p *Progress) { p.Stage = StageFailed })
		logger.Error("pipeline failed",
			zap.String("stage", current.String()),
			zap.String("component", component),
			zap.Error(err))
		return run, run.Failure
	}
	cancelled := func() (*Run, error) {
		if open {
			endStage(StatusCancelled)
		}
		run.Stage = StageCancelled
		run.Sets = nil
		run.Manifest = nil
		run.Duration = time.Since(start)
		c.update(func(p *Progress) { p.Stage = StageCancelled })
		logger.Warn("pipeline cancelled", zap.String("stage", current.String()))
		return run, ErrCancelled
	}

	begin(StageCleaning)
	if c.cancelled.Load() {
		return cancelled()
	}
	if err := src.Validate(); err != nil {
		return fail("mesh", err)
	}
	work, stats := mesh.Clean(src, c.opts.CleanOptions)
	run.CleanStats = stats
	logger.Info("cleaned",
		zap.Int("verticesWelded", stats.VerticesWelded),
		zap.Int("trianglesDropped", stats.TrianglesDropped),
		zap.Int("componentsDropped", stats.ComponentsDropped),
		zap.Int("holesFilled", stats.HolesFilled))
	endStage(StatusOK)

	begin(StagePartitioning)
	if c.cancelled.Load() {
		return cancelled()
	}
	res, err := tiling.Partition(work, c.opts.GridSize)
	if err != nil {
		return fail("tiling", err)
	}
	tiles := res.Tiles
	if len(tiles) == 0 {
		return fail("tiling", fmt.Errorf("%w: no tiles produced", tiling.ErrDegenerateBounds))
	}
	c.update(func(p *Progress) {
		p.TilesTotal = len(tiles)
		p.LevelsTotal = len(tiles) * len(c.opts.Ratios)
	})
	logger.Info("partitioned",
		zap.Int("tiles", len(tiles)),
		zap.Int("gridSize", c.opts.GridSize))
	endStage(StatusOK)

	begin(StageDecimating)
	sets := make([]*lod.Set, len(tiles))
	errs := make([]error, len(tiles))

	workers := c.opts.Workers
	if workers > len(tiles) {
		workers = len(tiles)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if c.cancelled.Load() {
					errs[i] = ErrCancelled
					continue
				}
				set, err := lod.BuildWithProgress(tiles[i], c.opts.Reducer, c.opts.Ratios, c.opts.SeamEpsilon, c.checkpoint)
				if err != nil {
					errs[i] = err
					continue
				}
				sets[i] = set
				c.update(func(p *Progress) { p.TilesDone++ })
			}
		}()
	}
	for i := range tiles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCancelled) {
			return cancelled()
		}
		return fail("lod", err)
	}
	if c.cancelled.Load() {
		return cancelled()
	}

	run.Sets = sets
	run.Tiles = len(sets)
	for _, set := range sets {
		run.Levels += len(set.Levels)
		run.Skipped += len(set.Skipped)
		for _, sk := range set.Skipped {
			logger.Warn("level skipped",
				zap.String("tile", set.Tile.Name()),
				zap.Int("level", sk.Index),
				zap.Float64("ratio", sk.Ratio),
				zap.NamedError("reason", sk.Reason))
		}
	}
	endStage(StatusOK)

	if c.opts.Unwrap {
		begin(StageUnwrapping)
		for _, set := range run.Sets {
			if c.cancelled.Load() {
				return cancelled()
			}
			for i, lv := range set.Levels {
				um, err := c.opts.Unwrapper.Unwrap(lv.Mesh)
				if err != nil {
					return fail("unwrap", fmt.Errorf("%s: %w", lv.Name, err))
				}
				set.Levels[i].Mesh = um
			}
		}
		endStage(StatusOK)
	} else {
		skipStage(StageUnwrapping)
	}

	if c.opts.Bake {
		begin(StageBaking)
		if c.cancelled.Load() {
			return cancelled()
		}
		if !src.HasColors() {
			logger.Warn("bake requested but the source mesh carries no colours")
			endStage(StatusSkipped)
		} else {
			sampler, err := c.opts.SamplerFor(src)
			if err != nil {
				return fail("bake", err)
			}
			for _, set := range run.Sets {
				if c.cancelled.Load() {
					return cancelled()
				}
				for i, lv := range set.Levels {
					set.Levels[i].Mesh = bake.Transfer(sampler, lv.Mesh)
				}
			}
			endStage(StatusOK)
		}
	} else {
		skipStage(StageBaking)
	}

	if c.cancelled.Load() {
		return cancelled()
	}
	if c.opts.OutDir != "" {
		man, err := export.WriteSets(c.opts.OutDir, c.opts.Format, run.Sets)
		if err != nil {
			return fail("export", err)
		}
		run.Manifest = man
		logger.Info("exported",
			zap.String("dir", c.opts.OutDir),
			zap.String("format", string(c.opts.Format)))
	}

	run.Stage = StageDone
	run.Duration = time.Since(start)
	c.update(func(p *Progress) { p.Stage = StageDone })
	logger.Info("pipeline done",
		zap.Int("tiles", run.Tiles),
		zap.Int("levels", run.Levels),
		zap.Int("skipped", run.Skipped),
		zap.Duration("duration", run.Duration))
	return run, nil
}
