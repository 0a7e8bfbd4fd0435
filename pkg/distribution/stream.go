package distribution

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stream is an explicitly owned, seedable source of randomness.
//
// A run creates exactly one Stream and draws everything it needs from it on
// the coordinating goroutine before work is handed to the worker pool, so
// results depend only on the seed and the order of requests. A Stream must
// not be shared between goroutines.
type Stream struct {
	seed uint64
	src  rand.Source
}

// NewStream returns a stream seeded with seed
func NewStream(seed uint64) *Stream {
	return &Stream{
		seed: seed,
		src:  rand.NewSource(seed),
	}
}

// Seed returns the seed the stream was created with
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Source exposes the underlying source for gonum distributions
func (s *Stream) Source() rand.Source {
	return s.src
}

// Normal draws one value from N(mu, sigma²)
func (s *Stream) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Uniform draws one value from U[min, max)
func (s *Stream) Uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// UniformN draws n values from U[min, max)
func (s *Stream) UniformN(min, max float64, n int) []float64 {
	u := distuv.Uniform{Min: min, Max: max, Src: s.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = u.Rand()
	}
	return out
}
