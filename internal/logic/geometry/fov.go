package geometry

import (
	"fmt"
	"math"

	"github.com/cjeanneret/PanSplit/internal/config"
)

// FOVCalculator resolves the output camera's field of view and the
// angular step between neighbouring views of a grid.
type FOVCalculator struct {
	cfg       *config.Config
	fromLens  bool
	focalMm   float64
	sensorWMm float64
	sensorHMm float64
}

// NewFOVCalculator creates a new FOV calculator.
// A lens focal length without a sensor size is rejected: the angle
// cannot be derived from the focal length alone.
func NewFOVCalculator(cfg *config.Config) (*FOVCalculator, error) {
	f := &FOVCalculator{cfg: cfg}
	lens := cfg.Camera.Lens
	if lens == nil || lens.FocalLengthMm <= 0 {
		return f, nil
	}
	if cfg.Camera.Sensor == nil {
		return nil, fmt.Errorf("sensor configuration is required to derive FOV from focal length %.1fmm", lens.FocalLengthMm)
	}
	f.fromLens = true
	f.focalMm = lens.FocalLengthMm
	f.sensorWMm = cfg.Camera.Sensor.WidthMm
	f.sensorHMm = cfg.Camera.Sensor.HeightMm
	return f, nil
}

// FOVFromFocalLength returns the angle in degrees covered by a sensor
// dimension behind a lens.
// Formula: FOV = 2 × arctan(sensor / (2 × focal_length))
func FOVFromFocalLength(sensorMm, focalMm float64) float64 {
	return 2.0 * math.Atan(sensorMm/(2.0*focalMm)) * 180.0 / math.Pi
}

// FromLens reports whether the angles are derived from lens and sensor.
func (f *FOVCalculator) FromLens() bool {
	return f.fromLens
}

// HorizontalFOV returns the horizontal field of view in degrees.
func (f *FOVCalculator) HorizontalFOV() float64 {
	if f.fromLens {
		return FOVFromFocalLength(f.sensorWMm, f.focalMm)
	}
	return f.cfg.Camera.FOVDeg
}

// VerticalFOV returns the vertical field of view in degrees. Without a
// lens it falls back to the horizontal FOV when none is configured.
func (f *FOVCalculator) VerticalFOV() float64 {
	if f.fromLens {
		return FOVFromFocalLength(f.sensorHMm, f.focalMm)
	}
	if f.cfg.Camera.VerticalFOVDeg > 0 {
		return f.cfg.Camera.VerticalFOVDeg
	}
	return f.cfg.Camera.FOVDeg
}

// HorizontalRotationAngle calculates the yaw step between two views
// to achieve the desired overlap.
// If overlap = 30%, then each view covers 70% new content.
// Angle = FOV_horizontal × (1 - overlap_ratio)
func (f *FOVCalculator) HorizontalRotationAngle() float64 {
	return f.HorizontalFOV() * (1.0 - f.cfg.OverlapRatio())
}

// VerticalRotationAngle calculates the pitch step between two rows.
// Angle = FOV_vertical × (1 - overlap_ratio)
func (f *FOVCalculator) VerticalRotationAngle() float64 {
	return f.VerticalFOV() * (1.0 - f.cfg.OverlapRatio())
}
