package panorama

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s1"

	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
)

// View describes one perspective camera. Angles are in degrees; Pitch is
// the offset from the horizon (positive looks up), Yaw wraps modulo 360.
type View struct {
	Width         int
	Height        int
	HorizontalFOV float64
	VerticalFOV   float64
	Yaw           float64
	Pitch         float64
	Roll          float64
}

// Validate returns a *ConfigurationError for the first invalid field.
func (v View) Validate() error {
	if v.Width <= 0 {
		return v.invalid("width", fmt.Sprintf("must be > 0, got %d", v.Width))
	}
	if v.Height <= 0 {
		return v.invalid("height", fmt.Sprintf("must be > 0, got %d", v.Height))
	}
	if err := v.checkFOV("horizontal_fov", v.HorizontalFOV); err != nil {
		return err
	}
	if err := v.checkFOV("vertical_fov", v.VerticalFOV); err != nil {
		return err
	}
	for _, a := range []struct {
		name  string
		value float64
	}{{"yaw", v.Yaw}, {"pitch", v.Pitch}, {"roll", v.Roll}} {
		if !finite(a.value) {
			return v.invalid(a.name, fmt.Sprintf("must be finite, got %v", a.value))
		}
	}
	return nil
}

func (v View) checkFOV(field string, fov float64) error {
	if !finite(fov) || fov <= 0 || fov >= 180 {
		return v.invalid(field, fmt.Sprintf("must be between 0 and 180 degrees (exclusive), got %v", fov))
	}
	return nil
}

func (v View) invalid(field, reason string) *ConfigurationError {
	return &ConfigurationError{View: v, Field: field, Reason: reason}
}

// FileSuffix returns "{w}_{h}_{hfov}_{vfov}_{yaw}_{pitch}", with "_{roll}"
// appended for rolled views. Distinct views give distinct suffixes.
func (v View) FileSuffix() string {
	s := strconv.Itoa(v.Width) + "_" + strconv.Itoa(v.Height) + "_" +
		formatDeg(v.HorizontalFOV) + "_" + formatDeg(v.VerticalFOV) + "_" +
		formatDeg(v.Yaw) + "_" + formatDeg(v.Pitch)
	if v.Roll != 0 {
		s += "_" + formatDeg(v.Roll)
	}
	return s
}

func (v View) String() string {
	s := fmt.Sprintf("view %dx%d fov=%gx%g yaw=%g pitch=%g",
		v.Width, v.Height, v.HorizontalFOV, v.VerticalFOV, v.Yaw, v.Pitch)
	if v.Roll != 0 {
		s += fmt.Sprintf(" roll=%g", v.Roll)
	}
	return s
}

// projection converts the view into kernel units.
func (v View) projection() geometry.Projection {
	return geometry.Projection{
		OutWidth:      v.Width,
		OutHeight:     v.Height,
		HorizontalFOV: deg(v.HorizontalFOV),
		VerticalFOV:   deg(v.VerticalFOV),
		Yaw:           deg(v.Yaw),
		Pitch:         deg(v.Pitch),
		Roll:          deg(v.Roll),
	}
}

func deg(d float64) s1.Angle {
	return s1.Angle(d) * s1.Degree
}

// formatDeg prints the shortest representation that round-trips.
func formatDeg(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PitchOffset converts a caller pitch (polar angle from the zenith,
// 90 = level) into the offset from the horizon used by View.Pitch.
func PitchOffset(callerPitch float64) float64 {
	return 90 - callerPitch
}

// CallerPitch is the inverse of PitchOffset.
func CallerPitch(offset float64) float64 {
	return 90 - offset
}
