package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"pivsynth/internal/models"
)

func testCamera(t *testing.T) models.CameraModel {
	t.Helper()
	cam, err := models.NewCameraModel(512, 512, 96, 0.0135, 0.0009)
	if err != nil {
		t.Fatalf("NewCameraModel: %v", err)
	}
	return cam
}

func TestProjectParticle(t *testing.T) {
	cam := testCamera(t)

	testCases := []struct {
		name string
		p    models.Particle
		want models.ProjectedParticle
	}{
		{
			name: "origin",
			p:    models.Particle{Position: r3.Vector{X: 0, Y: 0, Z: 0.0009}, Diameter: 3e-7},
			want: models.ProjectedParticle{X: 0, Y: 0, Diameter: 3e-7},
		},
		{
			name: "unit magnification",
			p:    models.Particle{Position: r3.Vector{X: 2, Y: -3, Z: 0.0144}, Diameter: 1},
			want: models.ProjectedParticle{X: 2, Y: -3, Diameter: 1},
		},
		{
			name: "inverted behind the sensor",
			p:    models.Particle{Position: r3.Vector{X: 1, Y: 1, Z: 0.0126}, Diameter: 2},
			want: models.ProjectedParticle{X: -1, Y: -1, Diameter: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ProjectParticle(tc.p, cam)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got.X-tc.want.X) > 1e-9 || math.Abs(got.Y-tc.want.Y) > 1e-9 {
				t.Errorf("expected (%g, %g), got (%g, %g)", tc.want.X, tc.want.Y, got.X, got.Y)
			}
			if got.Diameter != tc.want.Diameter {
				t.Errorf("diameter must be forwarded unscaled: expected %g, got %g", tc.want.Diameter, got.Diameter)
			}
		})
	}
}

// TestProjectLinear verifies that doubling x and y doubles the pixel position at fixed depth
func TestProjectLinear(t *testing.T) {
	cam := testCamera(t)
	for _, z := range []float64{-0.01, 0, 0.0009, 0.02} {
		a, err := ProjectParticle(models.Particle{Position: r3.Vector{X: 0.3, Y: -0.7, Z: z}}, cam)
		if err != nil {
			t.Fatalf("z=%g: %v", z, err)
		}
		b, err := ProjectParticle(models.Particle{Position: r3.Vector{X: 0.6, Y: -1.4, Z: z}}, cam)
		if err != nil {
			t.Fatalf("z=%g: %v", z, err)
		}
		if math.Abs(b.X-2*a.X) > 1e-12*math.Abs(a.X) || math.Abs(b.Y-2*a.Y) > 1e-12*math.Abs(a.Y) {
			t.Errorf("z=%g: projection is not linear: %+v vs %+v", z, a, b)
		}
	}
}

func TestProjectDegenerate(t *testing.T) {
	cam := testCamera(t)
	p := models.Particle{Position: r3.Vector{X: 1, Y: 1, Z: cam.SensorStandoff}}
	if _, err := ProjectParticle(p, cam); !errors.Is(err, ErrDegenerateProjection) {
		t.Errorf("expected ErrDegenerateProjection, got %v", err)
	}

	inf := models.Particle{Position: r3.Vector{X: math.Inf(1), Y: 0, Z: 0}}
	if _, err := ProjectParticle(inf, cam); !errors.Is(err, ErrDegenerateProjection) {
		t.Errorf("expected ErrDegenerateProjection for infinite position, got %v", err)
	}

	cloud := models.ParticleCloud{{Position: r3.Vector{Z: 0}}, p}
	if _, err := Project(cloud, cam); !errors.Is(err, ErrDegenerateProjection) {
		t.Errorf("expected Project to fail fast, got %v", err)
	}
}

func TestProjectPairDropsBothRows(t *testing.T) {
	cam := testCamera(t)
	d := cam.SensorStandoff

	pair := &models.ExposurePair{
		First: models.ParticleCloud{
			{Position: r3.Vector{X: 1, Z: 0}, Diameter: 1},
			{Position: r3.Vector{X: 2, Z: d}, Diameter: 2},
			{Position: r3.Vector{X: 3, Z: 0}, Diameter: 3},
			{Position: r3.Vector{X: 4, Z: 0}, Diameter: 4},
		},
		Second: models.ParticleCloud{
			{Position: r3.Vector{X: 1.1, Z: 0}, Diameter: 1},
			{Position: r3.Vector{X: 2.1, Z: 0}, Diameter: 2},
			{Position: r3.Vector{X: 3.1, Z: 0.001}, Diameter: 3},
			{Position: r3.Vector{X: 4.1, Z: d}, Diameter: 4},
		},
	}

	proj, failures := ProjectPair(pair, cam)
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Index != 1 || failures[1].Index != 3 {
		t.Errorf("unexpected failure rows %d, %d", failures[0].Index, failures[1].Index)
	}
	for _, f := range failures {
		if f.Kind != models.DegenerateProjection || !errors.Is(f, ErrDegenerateProjection) {
			t.Errorf("unexpected failure %v", f)
		}
	}

	if proj.Len() != 2 || len(proj.Second) != 2 || len(proj.Depth1) != 2 || len(proj.Depth2) != 2 {
		t.Fatalf("projected pair out of step: %d/%d/%d/%d", len(proj.First), len(proj.Second), len(proj.Depth1), len(proj.Depth2))
	}
	if pair.Len() != 2 || pair.Check() != nil {
		t.Fatalf("exposure pair not trimmed: %d/%d", len(pair.First), len(pair.Second))
	}
	for i, want := range []float64{1, 3} {
		if proj.First[i].Diameter != want || proj.Second[i].Diameter != want {
			t.Errorf("row %d: expected particle of diameter %g", i, want)
		}
		if pair.First[i].Diameter != want {
			t.Errorf("row %d: exposure pair row does not match projection", i)
		}
	}
	if proj.Depth2[1] != 0.001 {
		t.Errorf("expected second depth 0.001, got %g", proj.Depth2[1])
	}
}
