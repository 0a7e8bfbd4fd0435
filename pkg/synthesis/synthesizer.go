// Package synthesis runs the full image-pair pipeline.
//
// For every pair the Synthesizer seeds a particle cloud, advects it by one
// pulse time, projects both exposures onto the sensor and renders the two
// intensity images. Particle diameters are drawn once per run; positions
// are drawn afresh for every pair. All randomness comes from one stream
// seeded from Params.Seed and consumed on the calling goroutine, so a run
// is reproducible regardless of worker scheduling.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"pivsynth/internal/models"
	"pivsynth/internal/workpool"
	"pivsynth/pkg/advection"
	"pivsynth/pkg/distribution"
	"pivsynth/pkg/flowfield"
	"pivsynth/pkg/intensity"
	"pivsynth/pkg/projection"
	"pivsynth/pkg/seeding"
)

// ErrCancelled is returned when the run context is cancelled
var ErrCancelled = errors.New("synthesis cancelled")

// Params holds the validated pipeline parameters.
// It is built once, usually by FromConfig, and not modified by the pipeline.
type Params struct {
	// Diameters parameterises the diameter population; Count is the number
	// of particles per pair
	Diameters distribution.Params

	// InPlanePercent is the share of particles placed on the sheet centre plane
	InPlanePercent float64

	// Density is the particle material density. It is reported, not used
	// by the optical model.
	Density float64

	// Volume is the interrogation area particles are seeded in
	Volume models.InterrogationVolume

	// Sheet is the laser sheet, including the pulse time and profile shape factor
	Sheet models.LaserSheet

	// Camera is the sensor geometry
	Camera models.CameraModel

	// Optics parameterises the intensity model
	Optics intensity.Optics

	// Pairs is the number of image pairs to generate
	Pairs int

	// Seed initialises the random stream
	Seed uint64

	// NumWorkers sizes the worker pool; 0 selects workpool.DefaultSize
	NumWorkers int

	// ChunkSize bounds the particles rendered at once
	ChunkSize int

	// AdvectionMode selects parallel or sequential advection
	AdvectionMode advection.Mode

	// RenderStrategy selects how contributions are scheduled
	RenderStrategy intensity.Strategy

	// Progress, if set, receives an event after every stage
	Progress Progress
}

// Validate checks the parameters before any work is started
func (p *Params) Validate() error {
	if err := p.Diameters.Validate(); err != nil {
		return err
	}
	if !p.Volume.Valid() {
		return seeding.ErrInvalidBounds
	}
	if err := p.Sheet.Validate(); err != nil {
		return err
	}
	if err := p.Optics.Validate(); err != nil {
		return err
	}
	if p.Camera.XResolution <= 0 || p.Camera.YResolution <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", p.Camera.XResolution, p.Camera.YResolution)
	}
	if p.InPlanePercent < 0 || p.InPlanePercent > 100 {
		return seeding.ErrInvalidFraction
	}
	if p.Pairs < 1 {
		return fmt.Errorf("at least one image pair is required, got %d", p.Pairs)
	}
	if p.NumWorkers < 0 {
		return fmt.Errorf("worker count must not be negative, got %d", p.NumWorkers)
	}
	return nil
}

// Snapshot is one generated image pair together with its ground truth
type Snapshot struct {
	// Index is the zero-based pair number
	Index int

	// Image1 and Image2 are the rendered exposures, scaled to [0, 255]
	Image1 *models.IntensityField
	Image2 *models.IntensityField

	// Pair holds the particles present in both images, row-aligned
	Pair *models.ExposurePair

	// Projected holds the sensor positions of Pair
	Projected *projection.ProjectedPair

	// Metrics summarises the displacement and image statistics
	Metrics PairMetrics

	// Failures lists the particles dropped while building this pair
	Failures []models.Failure
}

// Summary describes a completed run
type Summary struct {
	// Pairs is the number of pairs generated
	Pairs int

	// Seeded is the number of particles seeded per pair
	Seeded int

	// Diameters summarises the diameter population used by every pair
	Diameters distribution.Summary

	// Failures counts dropped particles per kind over the whole run
	Failures map[models.FailureKind]int

	// Elapsed is the wall-clock duration of the run
	Elapsed time.Duration
}

// Synthesizer owns the worker pool and runs the pipeline.
// Run must not be called concurrently on the same Synthesizer.
type Synthesizer struct {
	params   Params
	sampler  flowfield.Sampler
	pool     *workpool.Pool
	advector *advection.Advector
	renderer *intensity.Renderer
}

// New validates params and starts the worker pool.
// The caller must Close the synthesizer to release the workers.
func New(params Params, sampler flowfield.Sampler) (*Synthesizer, error) {
	if sampler == nil {
		return nil, errors.New("synthesis requires a flow sampler")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid synthesis parameters: %w", err)
	}

	pool := workpool.New(params.NumWorkers)
	return &Synthesizer{
		params:   params,
		sampler:  sampler,
		pool:     pool,
		advector: advection.New(pool, params.AdvectionMode),
		renderer: intensity.NewRenderer(pool, params.RenderStrategy, params.ChunkSize),
	}, nil
}

// Params returns the parameters the synthesizer was built with
func (s *Synthesizer) Params() Params {
	return s.params
}

// Close stops the worker pool
func (s *Synthesizer) Close() {
	s.pool.Close()
}

// cancelled converts a context error into ErrCancelled
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// stageError wraps a stage failure, mapping context errors to ErrCancelled
func stageError(stage Stage, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}
	return fmt.Errorf("%s failed: %w", stage, err)
}

// emit sends a progress event if a hook is installed
func (s *Synthesizer) emit(pair int, stage Stage, step float64) {
	if s.params.Progress == nil {
		return
	}
	s.params.Progress(Event{
		Pair:     pair,
		Pairs:    s.params.Pairs,
		Stage:    stage,
		Fraction: fraction(pair, s.params.Pairs, step),
	})
}

// Run generates all image pairs. onPair, if not nil, is called with every
// snapshot as soon as it is complete; an error from onPair stops the run.
// On cancellation or any stage failure Run returns an error and no summary;
// snapshots already delivered to onPair remain valid.
func (s *Synthesizer) Run(ctx context.Context, onPair func(*Snapshot) error) (*Summary, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	// Step 1: draw the diameter population once for the whole run
	stream := distribution.NewStream(s.params.Seed)
	diameters, err := distribution.Sample(s.params.Diameters, stream)
	if err != nil {
		return nil, stageError(StageDiameters, err)
	}
	summary := &Summary{
		Seeded:    len(diameters),
		Diameters: distribution.Summarize(diameters),
		Failures:  make(map[models.FailureKind]int),
	}
	log.WithFields(log.Fields{
		"particles": len(diameters),
		"mean":      summary.Diameters.Mean,
		"std":       summary.Diameters.Std,
		"min":       summary.Diameters.Min,
		"max":       summary.Diameters.Max,
		"density":   s.params.Density,
	}).Info("diameter population drawn")

	// Step 2: generate every pair
	for i := 0; i < s.params.Pairs; i++ {
		snap, err := s.pair(ctx, i, stream, diameters)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		for kind, n := range models.CountByKind(snap.Failures) {
			summary.Failures[kind] += n
		}
		summary.Pairs++

		log.WithFields(log.Fields{
			"pair":      i,
			"particles": snap.Metrics.Particles,
			"dropped":   len(snap.Failures),
			"meanDX":    snap.Metrics.MeanDX,
			"meanDY":    snap.Metrics.MeanDY,
		}).Info("image pair generated")

		if onPair != nil {
			if err := onPair(snap); err != nil {
				return nil, fmt.Errorf("pair %d: consumer failed: %w", i, err)
			}
		}
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// pair runs the pipeline for one image pair. Cancellation is checked between stages.
func (s *Synthesizer) pair(ctx context.Context, index int, stream *distribution.Stream, diameters []float64) (*Snapshot, error) {
	p := s.params
	checkpoint := func(stage Stage, step float64) error {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		s.emit(index, stage, step)
		return nil
	}

	cloud, err := seeding.Seed(p.Volume, p.Sheet, diameters, p.InPlanePercent, stream)
	if err != nil {
		return nil, stageError(StageSeeding, err)
	}
	if err := checkpoint(StageSeeding, 1); err != nil {
		return nil, err
	}

	pair, report, err := s.advector.Advect(ctx, cloud, p.Sheet.PulseTime, s.sampler)
	if err != nil {
		return nil, stageError(StageAdvection, err)
	}
	if err := checkpoint(StageAdvection, 2); err != nil {
		return nil, err
	}

	projected, degenerate := projection.ProjectPair(pair, p.Camera)
	if err := checkpoint(StageProjection, 3); err != nil {
		return nil, err
	}

	img1, err := s.render(ctx, index, StageRender1, 3, projected.First, projected.Depth1)
	if err != nil {
		return nil, stageError(StageRender1, err)
	}
	if err := checkpoint(StageRender1, 4); err != nil {
		return nil, err
	}

	img2, err := s.render(ctx, index, StageRender2, 4, projected.Second, projected.Depth2)
	if err != nil {
		return nil, stageError(StageRender2, err)
	}
	if err := checkpoint(StageRender2, 5); err != nil {
		return nil, err
	}

	failures := append(report.Failures, degenerate...)
	snap := &Snapshot{
		Index:     index,
		Image1:    img1,
		Image2:    img2,
		Pair:      pair,
		Projected: projected,
		Metrics:   computeMetrics(projected, img1, img2),
		Failures:  failures,
	}
	s.emit(index, StagePairDone, stagesPerPair)
	return snap, nil
}

// render draws one exposure, reporting chunk progress within the render stage
func (s *Synthesizer) render(ctx context.Context, index int, stage Stage, step float64, particles []models.ProjectedParticle, depth []float64) (*models.IntensityField, error) {
	r := *s.renderer
	if s.params.Progress != nil {
		r.OnChunk = func(done, total int) {
			s.params.Progress(Event{
				Pair:     index,
				Pairs:    s.params.Pairs,
				Stage:    stage,
				Fraction: fraction(index, s.params.Pairs, step+float64(done)/float64(total)),
			})
		}
	}
	return r.Render(ctx, particles, depth, s.params.Sheet, s.params.Optics, s.params.Camera.XResolution, s.params.Camera.YResolution)
}
