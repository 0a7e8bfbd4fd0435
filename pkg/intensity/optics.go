package intensity

import (
	"errors"
	"fmt"
)

// ErrInvalidOptics is returned for optics parameters outside their domain
var ErrInvalidOptics = errors.New("invalid optics")

// Optics holds the point-spread and sensor footprint parameters.
// Build it with NewOptics; the renderer treats it as read-only.
type Optics struct {
	// SX and SY are the Gaussian point-spread widths in pixels
	SX float64
	SY float64

	// FrameX and FrameY are the pixel footprint the spread is integrated over
	FrameX float64
	FrameY float64

	// Efficiency is the scattering efficiency q
	Efficiency float64
}

// NewOptics validates and returns an optics record
func NewOptics(sx, sy, frameX, frameY, efficiency float64) (Optics, error) {
	o := Optics{SX: sx, SY: sy, FrameX: frameX, FrameY: frameY, Efficiency: efficiency}
	if err := o.Validate(); err != nil {
		return Optics{}, err
	}
	return o, nil
}

// Validate checks that spreads and frames are positive and the efficiency is not negative
func (o Optics) Validate() error {
	if !(o.SX > 0) || !(o.SY > 0) {
		return fmt.Errorf("%w: spread must be positive, got sx=%g sy=%g", ErrInvalidOptics, o.SX, o.SY)
	}
	if !(o.FrameX > 0) || !(o.FrameY > 0) {
		return fmt.Errorf("%w: frame must be positive, got frx=%g fry=%g", ErrInvalidOptics, o.FrameX, o.FrameY)
	}
	if !(o.Efficiency >= 0) {
		return fmt.Errorf("%w: efficiency must not be negative, got %g", ErrInvalidOptics, o.Efficiency)
	}
	return nil
}
