package models

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Particle is a single tracer particle record
type Particle struct {
	// Position is the physical location of the particle
	Position r3.Vector

	// Diameter is the physical particle diameter in length units
	Diameter float64
}

// ParticleCloud is an ordered set of particles.
// Clouds produced by the seeder hold all in-plane particles first,
// followed by the off-plane particles.
type ParticleCloud []Particle

// Depths returns the physical z coordinate of every particle in order
func (c ParticleCloud) Depths() []float64 {
	z := make([]float64, len(c))
	for i, p := range c {
		z[i] = p.Position.Z
	}
	return z
}

// Diameters returns the diameter of every particle in order
func (c ParticleCloud) Diameters() []float64 {
	d := make([]float64, len(c))
	for i, p := range c {
		d[i] = p.Diameter
	}
	return d
}

// Without returns a copy of the cloud with the given indices removed.
// The indices must be sorted in ascending order.
func (c ParticleCloud) Without(sortedIdx []int) ParticleCloud {
	if len(sortedIdx) == 0 {
		out := make(ParticleCloud, len(c))
		copy(out, c)
		return out
	}

	out := make(ParticleCloud, 0, len(c)-len(sortedIdx))
	next := 0
	for i, p := range c {
		if next < len(sortedIdx) && sortedIdx[next] == i {
			next++
			continue
		}
		out = append(out, p)
	}
	return out
}

// ExposurePair holds the same physical particles at both laser pulses.
// Row i of First and row i of Second always refer to the same particle.
type ExposurePair struct {
	// First is the cloud at the first exposure
	First ParticleCloud

	// Second is the cloud after advection by one pulse time
	Second ParticleCloud

	// Dropped lists the indices (into the seeded cloud) removed from
	// both exposures, in ascending order
	Dropped []int
}

// Len returns the number of particles in the pair
func (p *ExposurePair) Len() int {
	return len(p.First)
}

// Check verifies that both exposures have the same length
func (p *ExposurePair) Check() error {
	if len(p.First) != len(p.Second) {
		return fmt.Errorf("exposure pair out of step: %d vs %d particles", len(p.First), len(p.Second))
	}
	return nil
}

// InterrogationVolume is the rectangular in-plane region particles are seeded in
type InterrogationVolume struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Valid reports whether the bounds are well ordered
func (v InterrogationVolume) Valid() bool {
	return v.XMin <= v.XMax && v.YMin <= v.YMax
}

// LaserSheet describes the illuminated slab
type LaserSheet struct {
	// Position is the z coordinate of the sheet centre plane
	Position float64

	// Thickness is the full sheet thickness; must be positive
	Thickness float64

	// ShapeFactor is the exponent of the sheet intensity profile.
	// 2 approximates a Gaussian sheet, large values a top-hat sheet.
	ShapeFactor float64

	// PulseTime is the time separation between the two exposures
	PulseTime float64
}

// Bounds returns the illuminated z interval
func (s LaserSheet) Bounds() (lo, hi float64) {
	return s.Position - s.Thickness/2, s.Position + s.Thickness/2
}

// Validate checks the sheet invariants
func (s LaserSheet) Validate() error {
	if !(s.Thickness > 0) {
		return fmt.Errorf("laser sheet thickness must be positive, got %g", s.Thickness)
	}
	if !(s.ShapeFactor > 0) {
		return fmt.Errorf("laser sheet shape factor must be positive, got %g", s.ShapeFactor)
	}
	return nil
}

// ProjectedParticle is a particle mapped onto the sensor
type ProjectedParticle struct {
	// X and Y are pixel coordinates relative to the image centre
	X, Y float64

	// Diameter is forwarded from the physical particle without scaling
	Diameter float64
}
