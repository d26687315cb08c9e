// Package resample fills a perspective buffer by sampling an
// equirectangular source at fractional coordinates.
package resample

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
)

// Sampling errors.
var (
	// ErrUnknownMode is returned for an interpolation mode outside the enum.
	ErrUnknownMode = errors.New("resample: unknown interpolation mode")

	// ErrNonFinite is returned when a coordinate map holds NaN or Inf.
	ErrNonFinite = errors.New("resample: non-finite coordinate")
)

// Mode defines how the source is sampled between pixel centres.
type Mode uint8

const (
	// Bilinear blends the 4 neighbouring pixels. It is the zero value.
	Bilinear Mode = iota

	// Nearest takes the closest pixel.
	Nearest
)

// String returns the lowercase name accepted by ParseMode.
func (m Mode) String() string {
	switch m {
	case Bilinear:
		return "bilinear"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Bilinear || m == Nearest
}

// ParseMode accepts "nearest", "bilinear" or "linear" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilinear", "linear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Sample builds a coords.Width x coords.Height image from src. X wraps
// around the 360 degree seam, Y is clamped at the poles.
func Sample(src *imaging.RGB, coords *geometry.CoordMap, mode Mode) (*imaging.RGB, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(mode))
	}
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return nil, errors.New("resample: empty source")
	}

	dst := imaging.NewRGB(coords.Width, coords.Height)
	for i := range coords.X {
		x, y := coords.X[i], coords.Y[i]
		if !finite(x) || !finite(y) {
			return nil, fmt.Errorf("%w at pixel (%d, %d): (%v, %v)",
				ErrNonFinite, i%coords.Width, i/coords.Width, x, y)
		}
		o := i * 3
		switch mode {
		case Nearest:
			sampleNearest(src, x, y, dst.Pix[o:o+3])
		case Bilinear:
			sampleBilinear(src, x, y, dst.Pix[o:o+3])
		}
	}
	return dst, nil
}

// sampleNearest copies the pixel at round-half-up (x, y).
func sampleNearest(src *imaging.RGB, x, y float64, out []uint8) {
	px := wrap(int(math.Floor(x+0.5)), src.Width)
	py := clamp(int(math.Floor(y+0.5)), 0, src.Height-1)
	i := src.Offset(px, py)
	copy(out, src.Pix[i:i+3])
}

// sampleBilinear blends the 4 pixels around (x, y).
func sampleBilinear(src *imaging.RGB, x, y float64, out []uint8) {
	fx := math.Floor(x)
	fy := math.Floor(y)
	tx := x - fx
	ty := y - fy

	x0 := wrap(int(fx), src.Width)
	x1 := wrap(int(fx)+1, src.Width)
	y0 := clamp(int(fy), 0, src.Height-1)
	y1 := clamp(int(fy)+1, 0, src.Height-1)

	i00 := src.Offset(x0, y0)
	i10 := src.Offset(x1, y0)
	i01 := src.Offset(x0, y1)
	i11 := src.Offset(x1, y1)

	for c := 0; c < 3; c++ {
		v := lerp2D(
			float64(src.Pix[i00+c]), float64(src.Pix[i10+c]),
			float64(src.Pix[i01+c]), float64(src.Pix[i11+c]),
			tx, ty)
		out[c] = toByte(v)
	}
}

// lerp2D performs bilinear interpolation between 4 values.
func lerp2D(v00, v10, v01, v11, tx, ty float64) float64 {
	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}

func toByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// wrap maps any column index into [0, w).
func wrap(x, w int) int {
	return ((x % w) + w) % w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
