// Package geometry maps rectilinear camera pixels onto an equirectangular
// panorama and plans sets of viewing directions.
package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

// Projection describes one rectilinear camera looking into the sphere.
// Field-of-view angles must lie strictly between 0 and 180 degrees.
type Projection struct {
	OutWidth      int
	OutHeight     int
	HorizontalFOV s1.Angle
	VerticalFOV   s1.Angle
	Yaw           s1.Angle // positive turns toward increasing source x
	Pitch         s1.Angle // positive looks up
	Roll          s1.Angle // in-plane rotation about the view direction
}

// CoordMap holds, for each output pixel, the fractional source position.
// X and Y are row-major with Width*Height entries.
type CoordMap struct {
	Width  int
	Height int
	X      []float64
	Y      []float64
}

// At returns the source position sampled by output pixel (col, row).
func (c *CoordMap) At(col, row int) (x, y float64) {
	i := row*c.Width + col
	return c.X[i], c.Y[i]
}

// Project computes the source coordinates for every pixel of p over a
// srcW x srcH equirectangular image.
func Project(p Projection, srcW, srcH int) *CoordMap {
	w, h := p.OutWidth, p.OutHeight
	cm := &CoordMap{
		Width:  w,
		Height: h,
		X:      make([]float64, w*h),
		Y:      make([]float64, w*h),
	}

	xmax := math.Tan(p.HorizontalFOV.Radians() / 2)
	ymax := math.Tan(p.VerticalFOV.Radians() / 2)
	xs := linspace(-xmax, xmax, w)
	ys := linspace(ymax, -ymax, h)

	rot := ViewRotation(p.Yaw, p.Pitch, p.Roll)
	scaleX := float64(srcW - 1)
	scaleY := float64(srcH - 1)

	for row := 0; row < h; row++ {
		base := row * w
		for col := 0; col < w; col++ {
			v := rot.Apply(r3.Vector{X: xs[col], Y: ys[row], Z: 1})
			lon := math.Atan2(v.X, v.Z)
			lat := math.Atan2(v.Y, math.Hypot(v.X, v.Z))
			cm.X[base+col] = (lon/(2*math.Pi) + 0.5) * scaleX
			cm.Y[base+col] = (-lat/math.Pi + 0.5) * scaleY
		}
	}
	return cm
}

// linspace returns n evenly spaced samples from start to stop inclusive.
// A single sample sits at the midpoint.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = (start + stop) / 2
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
