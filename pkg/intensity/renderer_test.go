package intensity

import (
	"context"
	"errors"
	"math"
	"testing"

	"pivsynth/internal/models"
	"pivsynth/internal/workpool"
)

func testSheet() models.LaserSheet {
	return models.LaserSheet{Position: 0.0009, Thickness: 0.0001, ShapeFactor: 2, PulseTime: 1e-7}
}

func testOptics(t *testing.T) Optics {
	t.Helper()
	o, err := NewOptics(2, 2, 1, 1, 1)
	if err != nil {
		t.Fatalf("NewOptics: %v", err)
	}
	return o
}

// scatter returns n deterministic particles spread over a w×h image
func scatter(n, w, h int) ([]models.ProjectedParticle, []float64) {
	ps := make([]models.ProjectedParticle, n)
	zs := make([]float64, n)
	for i := range ps {
		f := float64(i)
		ps[i] = models.ProjectedParticle{
			X:        math.Sin(1.7*f) * float64(w) / 2,
			Y:        math.Cos(0.9*f) * float64(h) / 2,
			Diameter: 1.5e-7 + 4e-7*math.Abs(math.Sin(f)),
		}
		zs[i] = 0.0009 + 5e-5*math.Sin(3*f)
	}
	return ps, zs
}

func relDiff(a, b *models.IntensityField) float64 {
	var worst float64
	for i := range a.Data {
		d := math.Abs(a.Data[i] - b.Data[i])
		if scale := math.Max(math.Abs(a.Data[i]), math.Abs(b.Data[i])); scale > 0 {
			d /= scale
		}
		worst = math.Max(worst, d)
	}
	return worst
}

func TestRenderZeroParticles(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	for _, s := range []Strategy{Auto, Batch, Chunked, Sequential} {
		field, err := NewRenderer(pool, s, 4).Render(context.Background(), nil, nil, testSheet(), testOptics(t), 16, 8)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", s, err)
		}
		if field.Width != 16 || field.Height != 8 || len(field.Data) != 128 {
			t.Fatalf("%v: unexpected field shape %dx%d", s, field.Width, field.Height)
		}
		for i, v := range field.Data {
			if v != 0 {
				t.Fatalf("%v: pixel %d is %g, expected 0", s, i, v)
			}
		}
	}
}

// TestRenderChunkSizes verifies that chunking does not change the field
func TestRenderChunkSizes(t *testing.T) {
	pool := workpool.New(4)
	defer pool.Close()

	const n, w, h = 37, 32, 24
	ps, zs := scatter(n, w, h)

	ref, err := NewRenderer(pool, Chunked, n).Render(context.Background(), ps, zs, testSheet(), testOptics(t), w, h)
	if err != nil {
		t.Fatalf("reference render: %v", err)
	}
	if math.Abs(ref.Max()-MaxValue) > 1e-9 {
		t.Errorf("expected peak %g, got %g", MaxValue, ref.Max())
	}

	for _, chunk := range []int{1, 10, n} {
		field, err := NewRenderer(pool, Chunked, chunk).Render(context.Background(), ps, zs, testSheet(), testOptics(t), w, h)
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if d := relDiff(ref, field); d >= 1e-6 {
			t.Errorf("chunk %d: relative difference %g", chunk, d)
		}
	}
}

func TestRenderStrategiesAgree(t *testing.T) {
	pool := workpool.New(3)
	defer pool.Close()

	const n, w, h = 25, 20, 20
	ps, zs := scatter(n, w, h)

	ref, err := NewRenderer(nil, Sequential, 0).Render(context.Background(), ps, zs, testSheet(), testOptics(t), w, h)
	if err != nil {
		t.Fatalf("sequential render: %v", err)
	}
	for _, s := range []Strategy{Auto, Batch, Chunked} {
		for _, chunk := range []int{0, 7, 100} {
			var chunks int
			r := NewRenderer(pool, s, chunk)
			r.OnChunk = func(done, total int) {
				chunks++
				if done > total {
					t.Errorf("progress %d exceeds total %d", done, total)
				}
			}
			field, err := r.Render(context.Background(), ps, zs, testSheet(), testOptics(t), w, h)
			if err != nil {
				t.Fatalf("%v/%d: %v", s, chunk, err)
			}
			if d := relDiff(ref, field); d >= 1e-6 {
				t.Errorf("%v/%d: relative difference %g", s, chunk, d)
			}
			if chunks == 0 {
				t.Errorf("%v/%d: no chunk progress reported", s, chunk)
			}
		}
	}
}

// TestRenderSingleParticleSymmetry renders one focused particle at the image centre
func TestRenderSingleParticleSymmetry(t *testing.T) {
	const res = 21
	sheet := testSheet()
	ps := []models.ProjectedParticle{{X: 0, Y: 0, Diameter: 2.81e-7}}
	zs := []float64{sheet.Position}

	field, err := NewRenderer(nil, Sequential, 0).Render(context.Background(), ps, zs, sheet, testOptics(t), res, res)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	centre := res / 2
	peak := field.At(centre, centre)
	if math.Abs(peak-MaxValue) > 1e-9 {
		t.Errorf("expected centre value %g, got %g", MaxValue, peak)
	}
	for r := 0; r < res; r++ {
		for c := 0; c < res; c++ {
			v := field.At(r, c)
			if v > peak {
				t.Fatalf("pixel (%d,%d) = %g exceeds centre %g", r, c, v, peak)
			}
			if m := field.At(res-1-r, res-1-c); math.Abs(v-m) > 1e-9 {
				t.Fatalf("field not symmetric at (%d,%d): %g vs %g", r, c, v, m)
			}
		}
	}
}

func TestRenderErrors(t *testing.T) {
	ps, zs := scatter(3, 8, 8)
	r := NewRenderer(nil, Sequential, 0)

	if _, err := r.Render(context.Background(), ps, zs[:2], testSheet(), testOptics(t), 8, 8); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := r.Render(context.Background(), ps, zs, testSheet(), testOptics(t), 0, 8); err == nil {
		t.Error("expected error for zero resolution")
	}
	if _, err := r.Render(context.Background(), ps, zs, models.LaserSheet{Thickness: 0, ShapeFactor: 2}, testOptics(t), 8, 8); err == nil {
		t.Error("expected error for zero sheet thickness")
	}
	if _, err := r.Render(context.Background(), ps, zs, testSheet(), Optics{}, 8, 8); !errors.Is(err, ErrInvalidOptics) {
		t.Errorf("expected ErrInvalidOptics, got %v", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	ps, zs := scatter(50, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())

	r := NewRenderer(pool, Chunked, 5)
	r.OnChunk = func(done, total int) {
		if done >= 10 {
			cancel()
		}
	}
	field, err := r.Render(ctx, ps, zs, testSheet(), testOptics(t), 16, 16)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if field != nil {
		t.Error("cancelled render must not return a field")
	}
}

func TestParseStrategy(t *testing.T) {
	testCases := map[string]Strategy{"": Auto, "auto": Auto, "Batch": Batch, "chunked": Chunked, "sequential": Sequential}
	for in, want := range testCases {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseStrategy("gpu"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
