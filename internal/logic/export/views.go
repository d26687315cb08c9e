package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/cjeanneret/PanSplit/internal/config"
	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
	"github.com/cjeanneret/PanSplit/internal/logic/resample"
	"github.com/cjeanneret/PanSplit/internal/panorama"
)

// GridPreset is the preset name that lays views out from the configured
// coverage and overlap (see Request.UseGrid).
const GridPreset = "grid"

// Request describes the views generated for every image of a job.
type Request struct {
	FOV         float64 // horizontal, degrees
	VerticalFOV float64 // 0 = same as FOV
	Width       int
	Height      int

	Pitches []float64 // caller pitches, 90 = level
	Yaws    []float64

	// Preset replaces Pitches and Yaws when set. Named presets also carry
	// their own size and FOV.
	Preset string
	Grid   *geometry.GridPlan // set by UseGrid

	Mode       resample.Mode
	MaxWorkers int // views in flight per image, 0 = auto
}

// RequestFromConfig builds a request from a loaded configuration.
func RequestFromConfig(cfg *config.Config) (Request, error) {
	mode, err := resample.ParseMode(cfg.Defaults.Interpolation)
	if err != nil {
		return Request{}, err
	}
	req := Request{
		FOV:         cfg.Camera.FOVDeg,
		VerticalFOV: cfg.Camera.VerticalFOVDeg,
		Width:       cfg.Output.Width,
		Height:      cfg.Output.Height,
		Pitches:     cfg.Angles.Pitch,
		Yaws:        cfg.Angles.Yaw,
		Preset:      cfg.Angles.Preset,
		Mode:        mode,
		MaxWorkers:  cfg.Defaults.MaxWorkers,
	}
	if strings.EqualFold(req.Preset, GridPreset) {
		if err := req.UseGrid(cfg); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

// UseGrid switches r to the grid preset computed from cfg's camera,
// overlap and coverage.
func (r *Request) UseGrid(cfg *config.Config) error {
	fovCalc, err := geometry.NewFOVCalculator(cfg)
	if err != nil {
		return fmt.Errorf("while computing grid: %w", err)
	}
	r.Preset = GridPreset
	r.Grid = geometry.CalculateGridPlan(cfg, fovCalc)
	r.FOV = fovCalc.HorizontalFOV()
	r.VerticalFOV = fovCalc.VerticalFOV()
	return nil
}

func (r Request) verticalFOV() float64 {
	if r.VerticalFOV > 0 {
		return r.VerticalFOV
	}
	return r.FOV
}

func (r Request) view(yaw, pitchOffset float64) panorama.View {
	return panorama.View{
		Width:         r.Width,
		Height:        r.Height,
		HorizontalFOV: r.FOV,
		VerticalFOV:   r.verticalFOV(),
		Yaw:           yaw,
		Pitch:         pitchOffset,
	}
}

// BuildViews expands r into views. Without a preset it returns the
// pitch x yaw cross product, pitch outer, with repeated angles dropped.
func BuildViews(r Request) ([]panorama.View, error) {
	switch {
	case strings.EqualFold(r.Preset, GridPreset):
		if r.Grid == nil {
			return nil, errors.New("grid preset requires a grid plan")
		}
		pitches := r.Grid.Pitches()
		return lo.FlatMap(pitches, func(p float64, _ int) []panorama.View {
			return lo.Map(r.Grid.Yaws(), func(y float64, _ int) panorama.View {
				return r.view(y, p)
			})
		}), nil
	case r.Preset != "":
		return panorama.Preset(r.Preset)
	}

	pitches := lo.Uniq(r.Pitches)
	yaws := lo.Uniq(r.Yaws)
	if len(pitches) == 0 {
		return nil, errors.New("no pitch angle requested")
	}
	if len(yaws) == 0 {
		return nil, errors.New("no yaw angle requested")
	}
	return lo.FlatMap(pitches, func(p float64, _ int) []panorama.View {
		return lo.Map(yaws, func(y float64, _ int) panorama.View {
			return r.view(y, panorama.PitchOffset(p))
		})
	}), nil
}
