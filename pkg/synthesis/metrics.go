package synthesis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pivsynth/internal/models"
	"pivsynth/pkg/correlation"
	"pivsynth/pkg/projection"
)

// PairMetrics holds the ground truth of one image pair.
// PIV post-processing can be validated against the displacement statistics.
type PairMetrics struct {
	// Particles is the number of particles present in both images
	Particles int `json:"particles"`

	// MeanDX and MeanDY are the mean pixel displacement between exposures
	MeanDX float64 `json:"meanDX"`
	MeanDY float64 `json:"meanDY"`

	// StdDX and StdDY are the standard deviations of the pixel displacement
	StdDX float64 `json:"stdDX"`
	StdDY float64 `json:"stdDY"`

	// MeanIntensity1 and MeanIntensity2 are the mean pixel values of each image
	MeanIntensity1 float64 `json:"meanIntensity1"`
	MeanIntensity2 float64 `json:"meanIntensity2"`

	// Correlation is the Pearson correlation between the two images.
	// It is 0 when either image is constant.
	Correlation float64 `json:"correlation"`

	// Estimate is the displacement read back from the images by
	// cross-correlating the full frame
	Estimate correlation.Estimate `json:"estimate"`
}

// computeMetrics derives the pair metrics from the projected pair and both images
func computeMetrics(proj *projection.ProjectedPair, img1, img2 *models.IntensityField) PairMetrics {
	m := PairMetrics{Particles: proj.Len()}

	if n := proj.Len(); n > 0 {
		dx := make([]float64, n)
		dy := make([]float64, n)
		for i := range proj.First {
			dx[i] = proj.Second[i].X - proj.First[i].X
			dy[i] = proj.Second[i].Y - proj.First[i].Y
		}
		m.MeanDX, m.StdDX = meanStd(dx)
		m.MeanDY, m.StdDY = meanStd(dy)

		// Frames narrower than two pixels have nothing to correlate
		if est, err := correlation.Displacement(img1, img2, correlation.FullWindow(img1)); err == nil {
			m.Estimate = est
		}
	}

	var std1, std2 float64
	m.MeanIntensity1, std1 = meanStd(img1.Data)
	m.MeanIntensity2, std2 = meanStd(img2.Data)
	if std1 > 0 && std2 > 0 && len(img1.Data) == len(img2.Data) {
		m.Correlation = stat.Correlation(img1.Data, img2.Data, nil)
	}
	return m
}

// meanStd is stat.MeanStdDev with a zero spread for fewer than two samples
func meanStd(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
