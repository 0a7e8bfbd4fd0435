// Package visualization converts rendered intensity fields into 8-bit images
// and writes image pairs to disk.
package visualization

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"pivsynth/internal/models"
)

// Viewer exposes an intensity field as a grayscale image.
// Values are expected in [0, 255] and are clamped into that range.
type Viewer struct {
	// field is the rendered intensity field
	field *models.IntensityField
}

// NewViewer creates a viewer over field
func NewViewer(field *models.IntensityField) *Viewer {
	return &Viewer{field: field}
}

// gray converts one field value to an 8-bit level
func gray(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// Image returns the whole field as an 8-bit grayscale image.
// Field row 0 becomes image row 0.
func (v *Viewer) Image() *image.Gray {
	f := v.field
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: gray(f.At(y, x))})
		}
	}
	return img
}

// ExtractWindow copies an interrogation window out of the field
func (v *Viewer) ExtractWindow(startX, startY, sizeX, sizeY int) (*models.IntensityField, error) {
	// Validate parameters
	if startX < 0 || startY < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("window dimensions must be positive")
	}

	if startX+sizeX > v.field.Width || startY+sizeY > v.field.Height {
		return nil, fmt.Errorf("window extends beyond image boundaries")
	}

	window := models.NewIntensityField(sizeX, sizeY)
	for y := 0; y < sizeY; y++ {
		src := (startY+y)*v.field.Width + startX
		copy(window.Data[y*sizeX:(y+1)*sizeX], v.field.Data[src:src+sizeX])
	}
	return window, nil
}

// SaveImage writes img as PNG, or as JPEG for .jpg and .jpeg filenames
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// EncodePNG returns the field encoded as an 8-bit grayscale PNG
func EncodePNG(field *models.IntensityField) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, NewViewer(field).Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PairFilenames returns the file names used for pair index
func PairFilenames(index int) (string, string) {
	return fmt.Sprintf("pair%03d_1.png", index), fmt.Sprintf("pair%03d_2.png", index)
}

// SavePair writes both exposures of a pair into outputDir and returns the written paths
func SavePair(outputDir string, index int, img1, img2 *models.IntensityField) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	name1, name2 := PairFilenames(index)
	paths := []string{filepath.Join(outputDir, name1), filepath.Join(outputDir, name2)}
	for i, field := range []*models.IntensityField{img1, img2} {
		if err := SaveImage(NewViewer(field).Image(), paths[i]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
