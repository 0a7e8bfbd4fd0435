// Package seeding places the first-exposure particle cloud inside the
// interrogation volume.
package seeding

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"pivsynth/internal/models"
	"pivsynth/pkg/distribution"
)

var (
	// ErrInvalidBounds is returned when an interrogation bound has min > max
	ErrInvalidBounds = errors.New("invalid interrogation bounds")

	// ErrInvalidSheet is returned for a laser sheet with non-positive thickness
	ErrInvalidSheet = errors.New("invalid laser sheet")

	// ErrInvalidFraction is returned when the in-plane percentage is outside [0, 100]
	ErrInvalidFraction = errors.New("invalid in-plane percentage")
)

// InPlaneCount returns floor(percent/100 * count)
func InPlaneCount(percent float64, count int) int {
	return int(math.Floor(percent * float64(count) / 100))
}

// Seed builds a particle cloud with one record per diameter.
//
// The first InPlaneCount(inPlanePercent, len(diameters)) records sit exactly
// on the sheet centre plane and take the leading diameters; the rest are
// spread uniformly through the illuminated thickness and take the remaining
// diameters. All randomness is drawn from rng in a fixed order: in-plane x,
// in-plane y, off-plane x, off-plane y, off-plane z.
func Seed(volume models.InterrogationVolume, sheet models.LaserSheet, diameters []float64, inPlanePercent float64, rng *distribution.Stream) (models.ParticleCloud, error) {
	if !volume.Valid() {
		return nil, fmt.Errorf("%w: x [%g, %g], y [%g, %g]", ErrInvalidBounds,
			volume.XMin, volume.XMax, volume.YMin, volume.YMax)
	}
	if !(sheet.Thickness > 0) {
		return nil, fmt.Errorf("%w: thickness %g", ErrInvalidSheet, sheet.Thickness)
	}
	if !(inPlanePercent >= 0 && inPlanePercent <= 100) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFraction, inPlanePercent)
	}

	count := len(diameters)
	inPlane := InPlaneCount(inPlanePercent, count)
	offPlane := count - inPlane

	cloud := make(models.ParticleCloud, 0, count)

	// In-plane particles
	xs := rng.UniformN(volume.XMin, volume.XMax, inPlane)
	ys := rng.UniformN(volume.YMin, volume.YMax, inPlane)
	for i := 0; i < inPlane; i++ {
		cloud = append(cloud, models.Particle{
			Position: r3.Vector{X: xs[i], Y: ys[i], Z: sheet.Position},
			Diameter: diameters[i],
		})
	}

	// Off-plane particles fill the sheet thickness
	lo, hi := sheet.Bounds()
	xs = rng.UniformN(volume.XMin, volume.XMax, offPlane)
	ys = rng.UniformN(volume.YMin, volume.YMax, offPlane)
	zs := rng.UniformN(lo, hi, offPlane)
	for i := 0; i < offPlane; i++ {
		cloud = append(cloud, models.Particle{
			Position: r3.Vector{X: xs[i], Y: ys[i], Z: zs[i]},
			Diameter: diameters[inPlane+i],
		})
	}

	return cloud, nil
}
