package models

import "fmt"

// CameraModel holds the sensor geometry used for projection and rendering.
// It is a value type; once built it is never modified.
type CameraModel struct {
	// XResolution and YResolution are the image size in pixels
	XResolution int
	YResolution int

	// DPI is the sensor dots per inch
	DPI float64

	// SensorStandoff is d_ccd, the sensor distance along z
	SensorStandoff float64

	// ObjectStandoff is d_ia, the interrogation area distance
	ObjectStandoff float64
}

// NewCameraModel validates and returns a camera model
func NewCameraModel(xres, yres int, dpi, dCCD, dIA float64) (CameraModel, error) {
	if xres <= 0 || yres <= 0 {
		return CameraModel{}, fmt.Errorf("camera resolution must be positive, got %dx%d", xres, yres)
	}
	if dpi < 0 {
		return CameraModel{}, fmt.Errorf("camera dpi must not be negative, got %g", dpi)
	}
	return CameraModel{
		XResolution:    xres,
		YResolution:    yres,
		DPI:            dpi,
		SensorStandoff: dCCD,
		ObjectStandoff: dIA,
	}, nil
}
