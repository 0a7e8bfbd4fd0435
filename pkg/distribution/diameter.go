// Package distribution samples particle diameter populations.
//
// Only the clipped Gaussian model is supported: diameters are drawn from a
// normal distribution with the configured mean and standard deviation and
// then clipped element-wise into [Min, Max].
package distribution

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian is the only supported distribution kind
const Gaussian = "gaussian"

var (
	// ErrUnsupportedDistribution is returned for any kind other than Gaussian
	ErrUnsupportedDistribution = errors.New("unsupported distribution")

	// ErrInvalidParams is returned for malformed distribution parameters
	ErrInvalidParams = errors.New("invalid distribution parameters")
)

// Params describes the requested diameter population
type Params struct {
	// Kind selects the statistical model; only "gaussian" is implemented
	Kind string

	// Mean and Std are the parameters of the normal distribution
	Mean float64
	Std  float64

	// Min and Max are the clipping cutoffs
	Min float64
	Max float64

	// Count is the number of samples to draw
	Count int
}

// Validate checks the parameters without drawing anything
func (p Params) Validate() error {
	if strings.ToLower(p.Kind) != Gaussian {
		return fmt.Errorf("%w: %q", ErrUnsupportedDistribution, p.Kind)
	}
	if p.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidParams, p.Count)
	}
	if p.Std < 0 || math.IsNaN(p.Std) {
		return fmt.Errorf("%w: standard deviation %g", ErrInvalidParams, p.Std)
	}
	if p.Min > p.Max {
		return fmt.Errorf("%w: min %g greater than max %g", ErrInvalidParams, p.Min, p.Max)
	}
	return nil
}

// Sample draws p.Count diameters from the stream.
// The order of the returned slice is the draw order; callers consume it positionally.
func Sample(p Params, s *Stream) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	normal := distuv.Normal{Mu: p.Mean, Sigma: p.Std, Src: s.Source()}
	diameters := make([]float64, p.Count)
	for i := range diameters {
		diameters[i] = clip(normal.Rand(), p.Min, p.Max)
	}
	return diameters, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Summary describes a diameter population
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
}

// Summarize computes the population statistics of d
func Summarize(d []float64) Summary {
	if len(d) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(d),
		Min:   floats.Min(d),
		Max:   floats.Max(d),
	}
	if len(d) == 1 {
		s.Mean = d[0]
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(d, nil)
	return s
}
