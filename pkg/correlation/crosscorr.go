// Package correlation estimates the displacement between two exposures by
// FFT cross-correlation, the way a PIV evaluation would read a rendered pair.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"pivsynth/internal/models"
)

// ErrWindow is returned for windows that do not fit both fields
var ErrWindow = errors.New("invalid interrogation window")

// Window is a rectangular region of an intensity field, in pixels
type Window struct {
	X, Y          int
	Width, Height int
}

// FullWindow covers the whole field
func FullWindow(f *models.IntensityField) Window {
	return Window{Width: f.Width, Height: f.Height}
}

// Estimate is the result of one cross-correlation
type Estimate struct {
	// DX and DY are the sub-pixel displacement from the first to the second exposure
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`

	// Peak is the normalised height of the correlation peak in [-1, 1]
	Peak float64 `json:"peak"`
}

// Displacement cross-correlates w in both fields and returns the location
// of the correlation peak. Displacements wrap at half the window size.
func Displacement(img1, img2 *models.IntensityField, w Window) (Estimate, error) {
	if err := w.check(img1); err != nil {
		return Estimate{}, err
	}
	if err := w.check(img2); err != nil {
		return Estimate{}, err
	}

	a := extract(img1, w)
	b := extract(img2, w)
	energy := math.Sqrt(norm2(a) * norm2(b))
	if energy == 0 {
		// A blank window has no peak
		return Estimate{}, nil
	}

	fa := fft2D(a, w.Width, w.Height, false)
	fb := fft2D(b, w.Width, w.Height, false)
	for i := range fa {
		fa[i] = cmplx.Conj(fa[i]) * fb[i]
	}
	corr := fft2D(fa, w.Width, w.Height, true)

	// Sequence is unnormalised, so divide by the sample count
	n := float64(w.Width * w.Height)
	r := make([]float64, len(corr))
	for i, c := range corr {
		r[i] = real(c) / n
	}

	peak := floats.MaxIdx(r)
	py, px := peak/w.Width, peak%w.Width
	at := func(y, x int) float64 {
		y = (y + w.Height) % w.Height
		x = (x + w.Width) % w.Width
		return r[y*w.Width+x]
	}

	return Estimate{
		DX:   wrap(px, w.Width) + subpixel(at(py, px-1), r[peak], at(py, px+1)),
		DY:   wrap(py, w.Height) + subpixel(at(py-1, px), r[peak], at(py+1, px)),
		Peak: r[peak] / energy,
	}, nil
}

func (w Window) check(f *models.IntensityField) error {
	if w.Width < 2 || w.Height < 2 {
		return fmt.Errorf("%w: size %dx%d", ErrWindow, w.Width, w.Height)
	}
	if w.X < 0 || w.Y < 0 || w.X+w.Width > f.Width || w.Y+w.Height > f.Height {
		return fmt.Errorf("%w: window (%d,%d) %dx%d exceeds field %dx%d",
			ErrWindow, w.X, w.Y, w.Width, w.Height, f.Width, f.Height)
	}
	return nil
}

// extract copies the window with its mean removed
func extract(f *models.IntensityField, w Window) []complex128 {
	out := make([]complex128, w.Width*w.Height)
	var sum float64
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			sum += f.At(w.Y+y, w.X+x)
		}
	}
	mean := sum / float64(len(out))
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			out[y*w.Width+x] = complex(f.At(w.Y+y, w.X+x)-mean, 0)
		}
	}
	return out
}

func norm2(v []complex128) float64 {
	var s float64
	for _, c := range v {
		s += real(c) * real(c)
	}
	return s
}

// fft2D transforms row-major data of the given size in place, rows first
// and then columns. inverse selects the unnormalised backward transform.
func fft2D(data []complex128, width, height int, inverse bool) []complex128 {
	apply := func(fft *fourier.CmplxFFT, dst, src []complex128) {
		if inverse {
			fft.Sequence(dst, src)
		} else {
			fft.Coefficients(dst, src)
		}
	}

	rows := fourier.NewCmplxFFT(width)
	in := make([]complex128, width)
	out := make([]complex128, width)
	for y := 0; y < height; y++ {
		copy(in, data[y*width:(y+1)*width])
		apply(rows, out, in)
		copy(data[y*width:(y+1)*width], out)
	}

	cols := fourier.NewCmplxFFT(height)
	in = make([]complex128, height)
	out = make([]complex128, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			in[y] = data[y*width+x]
		}
		apply(cols, out, in)
		for y := 0; y < height; y++ {
			data[y*width+x] = out[y]
		}
	}
	return data
}

// wrap maps a circular index to a signed shift
func wrap(i, n int) float64 {
	if i > n/2 {
		i -= n
	}
	return float64(i)
}

// subpixel fits a parabola through three samples around a peak
func subpixel(left, centre, right float64) float64 {
	den := left - 2*centre + right
	if den >= 0 {
		return 0
	}
	return 0.5 * (left - right) / den
}
