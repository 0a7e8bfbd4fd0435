package models

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// IntensityField is a rendered image before 8-bit encoding.
// Data is stored row-major with Height rows of Width values.
type IntensityField struct {
	Width  int
	Height int
	Data   []float64
}

// NewIntensityField allocates a zero field
func NewIntensityField(width, height int) *IntensityField {
	return &IntensityField{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// FieldFromDense copies a gonum matrix into a field
func FieldFromDense(m *mat.Dense) *IntensityField {
	r, c := m.Dims()
	f := NewIntensityField(c, r)
	for i := 0; i < r; i++ {
		copy(f.Data[i*c:(i+1)*c], m.RawRowView(i))
	}
	return f
}

// At returns the value at the given row and column
func (f *IntensityField) At(row, col int) float64 {
	return f.Data[row*f.Width+col]
}

// Max returns the largest value of the field, or 0 for an empty field
func (f *IntensityField) Max() float64 {
	if len(f.Data) == 0 {
		return 0
	}
	return floats.Max(f.Data)
}

// Dense returns a matrix view sharing the field storage
func (f *IntensityField) Dense() *mat.Dense {
	return mat.NewDense(f.Height, f.Width, f.Data)
}
