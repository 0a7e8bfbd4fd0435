// Package intensity renders projected particles into a continuous intensity field.
//
// Every particle contributes a full-resolution image (see Contribution).
// The contributions are computed on a worker pool and summed by the caller
// after each join, so peak memory is bounded by the number of particles in
// flight rather than by the total particle count.
package intensity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"pivsynth/internal/models"
	"pivsynth/internal/workpool"
)

// DefaultChunkSize is the number of particles rendered per chunk
const DefaultChunkSize = 64

// MaxValue is the value the brightest pixel is rescaled to
const MaxValue = 255.0

// ErrLengthMismatch is returned when particles and depths differ in length
var ErrLengthMismatch = errors.New("particle and depth counts differ")

// Strategy selects how contributions are scheduled
type Strategy int

const (
	// Auto renders in a single batch when the particles fit in one chunk, chunked otherwise
	Auto Strategy = iota
	// Batch renders every particle in one parallel batch
	Batch
	// Chunked renders fixed-size parallel chunks
	Chunked
	// Sequential renders on the calling goroutine
	Sequential
)

func (s Strategy) String() string {
	switch s {
	case Batch:
		return "batch"
	case Chunked:
		return "chunked"
	case Sequential:
		return "sequential"
	default:
		return "auto"
	}
}

// ParseStrategy converts a configuration string into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "batch":
		return Batch, nil
	case "chunked":
		return Chunked, nil
	case "sequential":
		return Sequential, nil
	default:
		return Auto, fmt.Errorf("unknown render strategy %q", s)
	}
}

// Renderer renders intensity fields. The pool is borrowed, not owned.
type Renderer struct {
	Pool     *workpool.Pool
	Strategy Strategy

	// ChunkSize bounds the number of particle images held at once; values
	// below 1 select DefaultChunkSize
	ChunkSize int

	// OnChunk, if set, is called on the coordinating goroutine after each
	// chunk has been accumulated
	OnChunk func(done, total int)
}

// NewRenderer returns a renderer on pool
func NewRenderer(pool *workpool.Pool, strategy Strategy, chunkSize int) *Renderer {
	return &Renderer{Pool: pool, Strategy: strategy, ChunkSize: chunkSize}
}

// plan returns the chunk size and pool used for n particles
func (r *Renderer) plan(n int) (int, *workpool.Pool) {
	chunk := r.ChunkSize
	if chunk < 1 {
		chunk = DefaultChunkSize
	}

	switch r.Strategy {
	case Batch:
		return max(n, 1), r.Pool
	case Sequential:
		return chunk, nil
	case Chunked:
		return chunk, r.Pool
	default:
		if n <= chunk {
			return max(n, 1), r.Pool
		}
		return chunk, r.Pool
	}
}

// Render computes the intensity field of particles at the given depths.
//
// The contributions are averaged over the particle count and the result is
// rescaled so that its maximum is MaxValue. An empty particle set, or a
// field that is zero everywhere, yields an all-zero field. Cancellation is
// observed between chunks; a cancelled render returns no field.
func (r *Renderer) Render(ctx context.Context, particles []models.ProjectedParticle, depth []float64, sheet models.LaserSheet, optics Optics, xres, yres int) (*models.IntensityField, error) {
	if len(particles) != len(depth) {
		return nil, fmt.Errorf("%w: %d particles, %d depths", ErrLengthMismatch, len(particles), len(depth))
	}
	if xres <= 0 || yres <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %dx%d", xres, yres)
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	if err := optics.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	field := models.NewIntensityField(xres, yres)
	n := len(particles)
	if n == 0 {
		return field, nil
	}

	gridX := NewGrid(xres)
	gridY := NewGrid(yres)
	acc := field.Dense()

	chunk, pool := r.plan(n)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		images, err := workpool.Map(ctx, pool, end-start, func(i int) (*mat.Dense, error) {
			k := start + i
			return Contribution(particles[k], depth[k], sheet, optics, gridX, gridY), nil
		})
		if err != nil {
			return nil, fmt.Errorf("render chunk [%d, %d): %w", start, end, err)
		}
		for _, img := range images {
			acc.Add(acc, img)
		}
		if r.OnChunk != nil {
			r.OnChunk(end, n)
		}
	}

	acc.Scale(1/float64(n), acc)
	peak := field.Max()
	if peak != 0 {
		acc.Scale(MaxValue/peak, acc)
	}

	log.WithFields(log.Fields{
		"particles": n,
		"strategy":  r.Strategy,
		"chunk":     chunk,
		"peak":      peak,
	}).Debug("intensity field rendered")

	return field, nil
}
