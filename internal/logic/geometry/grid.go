package geometry

import (
	"math"

	"github.com/cjeanneret/PanSplit/internal/config"
)

// GridPlan lays out the viewing directions needed to cover the
// configured angular range with the desired overlap.
type GridPlan struct {
	Columns int // views per row (yaw)
	Rows    int // rows of views (pitch)

	YawStep   float64 // degrees between neighbouring columns
	PitchStep float64 // degrees between neighbouring rows

	// Centre of the first view
	StartYaw   float64 // left-most column
	StartPitch float64 // top row, positive looks up
}

// CalculateGridPlan calculates the complete grid plan from config
// and the FOV calculator.
func CalculateGridPlan(cfg *config.Config, fovCalc *FOVCalculator) *GridPlan {
	// Angles between each view
	yawStep := fovCalc.HorizontalRotationAngle()
	pitchStep := fovCalc.VerticalRotationAngle()

	totalYaw := cfg.HorizontalAngleDeg()
	totalPitch := cfg.VerticalAngleDeg()

	// Round up to ensure we cover the entire angle
	columns := int(math.Ceil(totalYaw / yawStep))
	rows := int(math.Ceil(totalPitch / pitchStep))
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}

	plan := &GridPlan{
		Columns:   columns,
		Rows:      rows,
		YawStep:   yawStep,
		PitchStep: pitchStep,
	}

	if totalYaw >= 360 {
		// A full turn closes on itself: spread evenly from the seam.
		plan.YawStep = 360 / float64(columns)
		plan.StartYaw = -180
	} else {
		plan.StartYaw = -float64(columns-1) * yawStep / 2
	}
	plan.StartPitch = float64(rows-1) * pitchStep / 2

	return plan
}

// Yaws returns the column angles, left to right.
func (g *GridPlan) Yaws() []float64 {
	out := make([]float64, g.Columns)
	for i := range out {
		out[i] = g.StartYaw + float64(i)*g.YawStep
	}
	return out
}

// Pitches returns the row angles, top to bottom.
func (g *GridPlan) Pitches() []float64 {
	out := make([]float64, g.Rows)
	for i := range out {
		out[i] = g.StartPitch - float64(i)*g.PitchStep
	}
	return out
}

// YawRing returns the yaw angles of a level ring of views with fov
// degrees of horizontal coverage each, overlapping by half: the count is
// round(360/fov*2), spaced evenly starting at -180.
func YawRing(fov float64) []float64 {
	count := int(math.Round(360 / fov * 2))
	if count < 1 {
		count = 1
	}
	interval := 360 / float64(count)
	out := make([]float64, count)
	for k := range out {
		out[k] = float64(k)*interval - 180
	}
	return out
}
