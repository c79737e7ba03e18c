// Package pipeline runs the land-suitability analysis end to end: constraint
// masks are prepared, erased from the study area, and the remainder is split
// into candidate polygons filtered by area.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/suitability-cli/internal/config"
	"github.com/sells-group/suitability-cli/internal/model"
	"github.com/sells-group/suitability-cli/internal/observability"
	"github.com/sells-group/suitability-cli/internal/shapefile"
	"github.com/sells-group/suitability-cli/internal/store"
	"github.com/sells-group/suitability-cli/internal/vector"
)

// Output file names, relative to the analysis output directory.
const (
	FileInfrastructure = "inf_buf.shp"
	FileProtected      = "p_areas1.shp"
	FileTerrain        = "terrain_dissolved.shp"
	FileExplode        = "gsa_explode.shp"
	FileArea           = "data_w_area.shp"
	FileFinal          = "final_selection.shp"
)

// Category is one group of constraint layers that is merged and dissolved
// into a single exclusion mask.
type Category struct {
	Name   string
	Paths  []string
	Buffer bool
	Output string
}

// Categories returns the constraint categories in the order their masks are
// erased from the study area.
func Categories(c config.ConstraintsConfig) []Category {
	return []Category{
		{Name: "infrastructure", Paths: c.Infrastructure, Buffer: true, Output: FileInfrastructure},
		{Name: "protected", Paths: c.Protected, Output: FileProtected},
		{Name: "terrain", Paths: c.Terrain, Output: FileTerrain},
	}
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID      string
	StudyArea  *vector.Layer
	Masks      []*vector.Layer
	Candidates *vector.Layer
	TotalKm2   float64
	Output     string
	Stages     []model.StageResult
}

// Summary returns the human-readable result line.
func (r *Result) Summary() string {
	return FormatSummary(r.TotalKm2)
}

// FormatSummary renders the total suitable area rounded to two decimals.
func FormatSummary(totalKm2 float64) string {
	return fmt.Sprintf("The total suitable area found is %.2fkm2", totalKm2)
}

// Pipeline orchestrates one suitability analysis.
type Pipeline struct {
	cfg     config.AnalysisConfig
	crs     vector.CRS
	store   store.Store
	metrics *observability.RunCollector

	read  func(path string) (*vector.Layer, error)
	write func(path string, layer *vector.Layer) error

	mu     sync.Mutex
	stages []model.StageResult
}

// New validates cfg and returns a Pipeline. st and metrics may be nil.
func New(cfg config.AnalysisConfig, st store.Store, metrics *observability.RunCollector) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	crs, err := vector.ParseCRS(cfg.CRS)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: crs")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		cfg:     cfg,
		crs:     crs,
		store:   st,
		metrics: metrics,
		read:    shapefile.Read,
		write:   shapefile.Write,
	}, nil
}

// Run executes the analysis. The first error aborts the run; an erase that
// consumes the whole study area yields zero candidates instead of an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("study_area", p.cfg.StudyArea))
	log.Info("pipeline: starting analysis")

	p.mu.Lock()
	p.stages = nil
	p.mu.Unlock()

	result := &Result{}
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, p.params())
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	start := time.Now()
	err := p.execute(ctx, result)
	result.Stages = p.recorded()

	if err != nil {
		log.Error("pipeline: analysis failed", zap.Error(err))
		p.metrics.ObserveRun(string(model.RunStatusFailed), 0)
		if p.store != nil && result.RunID != "" {
			if failErr := p.store.FailRun(ctx, result.RunID, err.Error()); failErr != nil {
				log.Warn("pipeline: failed to record failure", zap.Error(failErr))
			}
		}
		return nil, err
	}

	p.metrics.ObserveRun(string(model.RunStatusComplete), result.TotalKm2)
	if p.store != nil && result.RunID != "" {
		if err := p.store.CompleteRun(ctx, result.RunID, &model.RunResult{
			Candidates: result.Candidates.Len(),
			TotalKm2:   result.TotalKm2,
			Output:     result.Output,
		}); err != nil {
			log.Warn("pipeline: failed to record completion", zap.Error(err))
		}
	}

	log.Info("pipeline: analysis complete",
		zap.Int("candidates", result.Candidates.Len()),
		zap.Float64("total_km2", result.TotalKm2),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, result *Result) error {
	start := time.Now()
	study, err := p.read(p.cfg.StudyArea)
	if err != nil {
		return eris.Wrap(err, "pipeline: study area")
	}
	if study.Len() == 0 {
		return eris.Wrapf(vector.ErrEmptyGeometry, "pipeline: study area %s has no features", p.cfg.StudyArea)
	}
	for i, f := range study.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			return eris.Wrapf(vector.ErrEmptyGeometry, "pipeline: study area feature %d is empty", i)
		}
	}
	if study.CRS.IsZero() {
		study.CRS = p.crs
	}
	result.StudyArea = study
	p.stage(ctx, result.RunID, "study_area", study.Len(), "", start)

	masks, err := p.prepareMasks(ctx, result.RunID)
	if err != nil {
		return err
	}
	result.Masks = masks

	remaining, err := p.eraseMasks(ctx, result.RunID, study, masks)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pipeline: cancelled")
	}

	start = time.Now()
	exploded := vector.Explode(remaining)
	if err := p.persist(ctx, result.RunID, "explode", exploded, FileExplode, start, false); err != nil {
		return err
	}

	start = time.Now()
	withArea := vector.ComputeArea(exploded)
	if err := p.persist(ctx, result.RunID, "area", withArea, FileArea, start, false); err != nil {
		return err
	}

	start = time.Now()
	selected := vector.FilterByArea(withArea, p.cfg.MinAreaKm2)
	selected.Name = "final_selection"
	if err := p.persist(ctx, result.RunID, "filter", selected, FileFinal, start, true); err != nil {
		return err
	}

	result.Candidates = selected
	result.TotalKm2 = vector.TotalArea(selected)
	result.Output = filepath.Join(p.cfg.OutputDir, FileFinal)
	return nil
}

// prepareMasks builds one dissolved mask per configured category. Categories
// are prepared concurrently; the returned masks keep category order and skip
// categories without layers.
func (p *Pipeline) prepareMasks(ctx context.Context, runID string) ([]*vector.Layer, error) {
	cats := Categories(p.cfg.Constraints)
	masks := make([]*vector.Layer, len(cats))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, cat := range cats {
		if len(cat.Paths) == 0 {
			continue
		}
		g.Go(func() error {
			mask, err := p.prepareMask(gCtx, runID, cat)
			if err != nil {
				return err
			}
			masks[i] = mask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*vector.Layer, 0, len(masks))
	for _, m := range masks {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (p *Pipeline) prepareMask(ctx context.Context, runID string, cat Category) (*vector.Layer, error) {
	start := time.Now()
	layers := make([]*vector.Layer, 0, len(cat.Paths))
	for _, path := range cat.Paths {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "pipeline: %s cancelled", cat.Name)
		}
		l, err := p.read(path)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: %s", cat.Name)
		}
		layers = append(layers, l)
	}

	merged, err := vector.Merge(layers...)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: merge %s", cat.Name)
	}

	if cat.Buffer {
		merged, err = vector.BufferWithSegments(merged, p.cfg.BufferDistance, p.cfg.BufferSegments)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: buffer %s", cat.Name)
		}
	}

	mask, err := vector.Dissolve(merged, vector.CRS{})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: dissolve %s", cat.Name)
	}
	mask.Name = cat.Name
	if err := p.persist(ctx, runID, cat.Name, mask, cat.Output, start, false); err != nil {
		return nil, err
	}
	return mask, nil
}

// eraseMasks removes each mask from the study area in order.
func (p *Pipeline) eraseMasks(ctx context.Context, runID string, study *vector.Layer, masks []*vector.Layer) (*vector.Layer, error) {
	current := study
	for i, mask := range masks {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: cancelled")
		}
		start := time.Now()
		erased, err := vector.Erase(current, mask, p.crs)
		if errors.Is(err, vector.ErrEmptyGeometry) {
			zap.L().Warn("pipeline: study area fully covered by constraints",
				zap.String("mask", mask.Name),
			)
			empty := vector.NewLayer("poly_clip", p.crs, study.Fields...)
			p.stage(ctx, runID, "erase_"+mask.Name, 0, "", start)
			return empty, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: erase %s", mask.Name)
		}
		erased.Name = "poly_clip"
		name := fmt.Sprintf("poly_clip%d.shp", i+1)
		if err := p.persist(ctx, runID, "erase_"+mask.Name, erased, name, start, false); err != nil {
			return nil, err
		}
		current = erased
	}
	return current, nil
}

// persist writes layer under the output directory when required and records
// the stage.
func (p *Pipeline) persist(ctx context.Context, runID, stage string, layer *vector.Layer, file string, start time.Time, always bool) error {
	output := ""
	if always || p.cfg.PersistIntermediate {
		output = filepath.Join(p.cfg.OutputDir, file)
		if err := p.write(output, layer); err != nil {
			return eris.Wrapf(err, "pipeline: persist %s", stage)
		}
	}
	p.stage(ctx, runID, stage, layer.Len(), output, start)
	return nil
}

func (p *Pipeline) stage(ctx context.Context, runID, name string, features int, output string, start time.Time) {
	res := model.StageResult{
		Name:     name,
		Features: features,
		Output:   output,
		Duration: time.Since(start),
	}

	p.mu.Lock()
	p.stages = append(p.stages, res)
	p.mu.Unlock()

	p.metrics.ObserveStage(name, features, res.Duration)
	zap.L().Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int("features", features),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)

	if p.store != nil && runID != "" {
		if _, err := p.store.RecordStage(ctx, runID, res); err != nil {
			zap.L().Warn("pipeline: failed to record stage", zap.String("stage", name), zap.Error(err))
		}
	}
}

func (p *Pipeline) recorded() []model.StageResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.StageResult, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Pipeline) params() model.RunParams {
	constraints := make(map[string][]string)
	for _, c := range Categories(p.cfg.Constraints) {
		if len(c.Paths) > 0 {
			constraints[c.Name] = c.Paths
		}
	}
	return model.RunParams{
		StudyArea:      p.cfg.StudyArea,
		Constraints:    constraints,
		BufferDistance: p.cfg.BufferDistance,
		MinAreaKm2:     p.cfg.MinAreaKm2,
		CRS:            p.crs.String(),
		OutputDir:      p.cfg.OutputDir,
	}
}
