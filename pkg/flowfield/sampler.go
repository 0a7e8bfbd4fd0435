// Package flowfield defines the flow-sampling capability the advector
// depends on, together with a few reference samplers.
//
// A Sampler answers two questions for a point: which cell of the flow
// domain contains it, and what the fluid velocity is there. Samplers are
// called from many workers at once and must be safe for concurrent use.
package flowfield

import (
	"errors"

	"github.com/golang/geo/r3"
)

var (
	// ErrOutOfDomain is returned by Locate when no cell contains the point
	ErrOutOfDomain = errors.New("point outside flow domain")

	// ErrInterpolation is returned by Velocity when the velocity cannot be evaluated
	ErrInterpolation = errors.New("velocity interpolation failed")
)

// Cell is an opaque handle to a located flow cell
type Cell int

// Sampler locates points and interpolates velocity
type Sampler interface {
	// Locate returns the cell containing p or ErrOutOfDomain
	Locate(p r3.Vector) (Cell, error)

	// Velocity returns the velocity at p inside cell c or ErrInterpolation
	Velocity(c Cell, p r3.Vector) (r3.Vector, error)
}

// Box is an axis-aligned domain
type Box struct {
	Min, Max r3.Vector
}

// Contains reports whether p lies inside the box, boundaries included
func (b Box) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Analytic samples a velocity function over a box domain.
// The whole box is a single cell.
type Analytic struct {
	Domain Box
	Field  func(p r3.Vector) r3.Vector
}

// NewUniform returns a sampler with constant velocity v inside domain
func NewUniform(domain Box, v r3.Vector) *Analytic {
	return &Analytic{
		Domain: domain,
		Field:  func(r3.Vector) r3.Vector { return v },
	}
}

// Locate implements Sampler
func (a *Analytic) Locate(p r3.Vector) (Cell, error) {
	if !a.Domain.Contains(p) {
		return 0, ErrOutOfDomain
	}
	return 0, nil
}

// Velocity implements Sampler
func (a *Analytic) Velocity(c Cell, p r3.Vector) (r3.Vector, error) {
	if c != 0 || a.Field == nil {
		return r3.Vector{}, ErrInterpolation
	}
	v := a.Field(p)
	if !finite(v) {
		return r3.Vector{}, ErrInterpolation
	}
	return v, nil
}
