package distribution

import (
	"errors"
	"math"
	"testing"
)

// TestSampleClipping verifies every sample lies in [Min, Max]
func TestSampleClipping(t *testing.T) {
	testCases := []Params{
		{Kind: Gaussian, Mean: 281e-9, Std: 97e-9, Min: 144e-9, Max: 573e-9, Count: 5000},
		{Kind: Gaussian, Mean: 0, Std: 10, Min: -1, Max: 1, Count: 1000},
		{Kind: Gaussian, Mean: 100, Std: 1, Min: 0, Max: 1, Count: 50},
		{Kind: Gaussian, Mean: 5, Std: 0, Min: 5, Max: 5, Count: 10},
		{Kind: "Gaussian", Mean: 1, Std: 0.5, Min: 0.9, Max: 1.1, Count: 300},
	}

	for i, p := range testCases {
		d, err := Sample(p, NewStream(uint64(i)))
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if len(d) != p.Count {
			t.Fatalf("case %d: expected %d samples, got %d", i, p.Count, len(d))
		}
		for j, v := range d {
			if v < p.Min || v > p.Max {
				t.Errorf("case %d: sample %d = %g outside [%g, %g]", i, j, v, p.Min, p.Max)
			}
		}
	}
}

// TestSampleStatistics checks the unclipped moments of a wide window
func TestSampleStatistics(t *testing.T) {
	p := Params{Kind: Gaussian, Mean: 10, Std: 2, Min: -100, Max: 100, Count: 20000}
	d, err := Sample(p, NewStream(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := Summarize(d)
	if math.Abs(s.Mean-10) > 0.1 {
		t.Errorf("expected mean near 10, got %g", s.Mean)
	}
	if math.Abs(s.Std-2) > 0.1 {
		t.Errorf("expected std near 2, got %g", s.Std)
	}
}

// TestSampleReproducible verifies that the same seed yields the same population
func TestSampleReproducible(t *testing.T) {
	p := Params{Kind: Gaussian, Mean: 1, Std: 0.3, Min: 0, Max: 2, Count: 100}
	a, _ := Sample(p, NewStream(7))
	b, _ := Sample(p, NewStream(7))
	c, _ := Sample(p, NewStream(8))

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for identical seeds", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical populations")
	}
}

func TestSampleErrors(t *testing.T) {
	testCases := []struct {
		name string
		p    Params
		want error
	}{
		{"uniform", Params{Kind: "uniform", Min: 0, Max: 1, Count: 1}, ErrUnsupportedDistribution},
		{"empty kind", Params{Kind: "", Min: 0, Max: 1, Count: 1}, ErrUnsupportedDistribution},
		{"reversed", Params{Kind: Gaussian, Min: 2, Max: 1, Count: 1}, ErrInvalidParams},
		{"negative count", Params{Kind: Gaussian, Min: 0, Max: 1, Count: -1}, ErrInvalidParams},
		{"negative std", Params{Kind: Gaussian, Std: -1, Min: 0, Max: 1, Count: 1}, ErrInvalidParams},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Sample(tc.p, NewStream(1))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStreamUniform(t *testing.T) {
	s := NewStream(3)
	if s.Seed() != 3 {
		t.Errorf("expected seed 3, got %d", s.Seed())
	}
	for _, v := range s.UniformN(-2, 5, 1000) {
		if v < -2 || v >= 5 {
			t.Fatalf("uniform sample %g outside [-2, 5)", v)
		}
	}
	if v := s.Uniform(4, 4); v != 4 {
		t.Errorf("degenerate uniform should return its bound, got %g", v)
	}
	if v := s.Normal(3, 0); v != 3 {
		t.Errorf("zero-width normal should return its mean, got %g", v)
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s.Count != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
	s := Summarize([]float64{1, 2, 3})
	if s.Count != 3 || s.Min != 1 || s.Max != 3 || s.Mean != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.Std-1) > 1e-12 {
		t.Errorf("expected sample std 1, got %g", s.Std)
	}
}
