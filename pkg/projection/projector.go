// Package projection maps physical particle positions onto the camera sensor.
//
// The camera is a similar-triangles pinhole: a particle at depth z is
// scaled by the magnification d_ia / (z - d_ccd). The diameter is forwarded
// unchanged.
package projection

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"pivsynth/internal/models"
)

// ErrDegenerateProjection is returned for particles on the sensor plane
var ErrDegenerateProjection = errors.New("degenerate projection")

// Magnification returns d_ia / (z - d_ccd)
func Magnification(z float64, cam models.CameraModel) (float64, error) {
	den := z - cam.SensorStandoff
	if den == 0 {
		return 0, fmt.Errorf("%w: z = d_ccd = %g", ErrDegenerateProjection, z)
	}
	m := cam.ObjectStandoff / den
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, fmt.Errorf("%w: magnification is not finite at z = %g", ErrDegenerateProjection, z)
	}
	return m, nil
}

// ProjectParticle maps one particle to pixel coordinates
func ProjectParticle(p models.Particle, cam models.CameraModel) (models.ProjectedParticle, error) {
	m, err := Magnification(p.Position.Z, cam)
	if err != nil {
		return models.ProjectedParticle{}, err
	}
	out := models.ProjectedParticle{
		X:        p.Position.X * m,
		Y:        p.Position.Y * m,
		Diameter: p.Diameter,
	}
	if math.IsNaN(out.X) || math.IsInf(out.X, 0) || math.IsNaN(out.Y) || math.IsInf(out.Y, 0) {
		return models.ProjectedParticle{}, fmt.Errorf("%w: pixel position is not finite", ErrDegenerateProjection)
	}
	return out, nil
}

// Project maps a whole cloud, failing on the first degenerate particle
func Project(cloud models.ParticleCloud, cam models.CameraModel) ([]models.ProjectedParticle, error) {
	out := make([]models.ProjectedParticle, len(cloud))
	for i, p := range cloud {
		pp, err := ProjectParticle(p, cam)
		if err != nil {
			return nil, fmt.Errorf("particle %d: %w", i, err)
		}
		out[i] = pp
	}
	return out, nil
}

// ProjectedPair holds both exposures on the sensor together with the
// physical depth of every row, which the renderer needs for defocus.
type ProjectedPair struct {
	First  []models.ProjectedParticle
	Second []models.ProjectedParticle

	// Depth1 and Depth2 are the z coordinates of First and Second
	Depth1 []float64
	Depth2 []float64
}

// Len returns the number of rows in the pair
func (p *ProjectedPair) Len() int {
	return len(p.First)
}

// ProjectPair projects both exposures with the same camera.
//
// A row that is degenerate in either exposure is removed from both, and
// from pair itself, so that rows keep referring to the same particle. The
// removed rows are reported as DegenerateProjection failures indexed by
// their row in the pair as it was handed in.
func ProjectPair(pair *models.ExposurePair, cam models.CameraModel) (*ProjectedPair, []models.Failure) {
	n := pair.Len()
	out := &ProjectedPair{
		First:  make([]models.ProjectedParticle, 0, n),
		Second: make([]models.ProjectedParticle, 0, n),
		Depth1: make([]float64, 0, n),
		Depth2: make([]float64, 0, n),
	}

	var failures []models.Failure
	var dropped []int
	for i := 0; i < n; i++ {
		a, errA := ProjectParticle(pair.First[i], cam)
		b, errB := ProjectParticle(pair.Second[i], cam)
		if err := errors.Join(errA, errB); err != nil {
			failures = append(failures, models.Failure{Index: i, Kind: models.DegenerateProjection, Err: err})
			dropped = append(dropped, i)
			continue
		}
		out.First = append(out.First, a)
		out.Second = append(out.Second, b)
		out.Depth1 = append(out.Depth1, pair.First[i].Position.Z)
		out.Depth2 = append(out.Depth2, pair.Second[i].Position.Z)
	}

	if len(dropped) > 0 {
		pair.First = pair.First.Without(dropped)
		pair.Second = pair.Second.Without(dropped)
		log.WithFields(log.Fields{
			"dropped":   len(dropped),
			"projected": out.Len(),
		}).Warn("degenerate particles dropped during projection")
	}
	return out, failures
}
