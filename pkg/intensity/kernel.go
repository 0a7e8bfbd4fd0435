package intensity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"pivsynth/internal/models"
)

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// NewGrid returns res pixel centre coordinates spanning [-res/2, res/2].
// The grid is exactly symmetric about the image centre; for odd res the
// middle pixel sits at 0.
func NewGrid(res int) []float64 {
	if res < 1 {
		return nil
	}
	if res == 1 {
		return []float64{0}
	}
	half := float64(res) / 2
	g := floats.Span(make([]float64, res), -half, half)
	for i := 0; i < res/2; i++ {
		g[res-1-i] = -g[i]
	}
	if res%2 == 1 {
		g[res/2] = 0
	}
	return g
}

// Defocus is the laser sheet attenuation at depth z. It is 1 on the sheet
// centre plane and decays with distance; the decay is Gaussian-like for a
// shape factor of 2 and approaches a top-hat as the shape factor grows.
func Defocus(z float64, sheet models.LaserSheet) float64 {
	d := z - sheet.Position
	r := math.Abs(2 * d * d / (sheet.Thickness * sheet.Thickness))
	return math.Exp(-invSqrt2Pi * math.Pow(r, sheet.ShapeFactor))
}

// Aperture integrates a Gaussian point spread of width spread, centred at
// qp, over a pixel footprint of width frame centred at px.
func Aperture(px, qp, frame, spread float64) float64 {
	s := spread * math.Sqrt2
	return math.Erf((px-qp+frame/2)/s) - math.Erf((px-qp-frame/2)/s)
}

// Amplitude is the scalar factor q·defocus·π/8·d²·sx·sy of one particle
func Amplitude(p models.ProjectedParticle, z float64, sheet models.LaserSheet, optics Optics) float64 {
	return optics.Efficiency * Defocus(z, sheet) * math.Pi / 8 * p.Diameter * p.Diameter * optics.SX * optics.SY
}

// Contribution evaluates the image of a single particle on the grid.
// The result has len(gridY) rows and len(gridX) columns and is the outer
// product of the y and x aperture profiles scaled by Amplitude.
func Contribution(p models.ProjectedParticle, z float64, sheet models.LaserSheet, optics Optics, gridX, gridY []float64) *mat.Dense {
	ax := make([]float64, len(gridX))
	for j, x := range gridX {
		ax[j] = Aperture(x, p.X, optics.FrameX, optics.SX)
	}
	ay := make([]float64, len(gridY))
	for i, y := range gridY {
		ay[i] = Aperture(y, p.Y, optics.FrameY, optics.SY)
	}

	img := mat.NewDense(len(gridY), len(gridX), nil)
	img.Outer(Amplitude(p, z, sheet, optics), mat.NewVecDense(len(ay), ay), mat.NewVecDense(len(ax), ax))
	return img
}
