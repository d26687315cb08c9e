package panorama

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
)

// RingViews returns square views of size pixels and fov degrees laid out
// on a yaw ring (see geometry.YawRing). pitches are offsets from the
// horizon; none means a single level ring. Views are ordered by yaw, then
// pitch.
func RingViews(size int, fov float64, pitches ...float64) []View {
	if len(pitches) == 0 {
		pitches = []float64{0}
	}
	yaws := geometry.YawRing(fov)
	views := make([]View, 0, len(yaws)*len(pitches))
	for _, yaw := range yaws {
		for _, pitch := range pitches {
			views = append(views, View{
				Width:         size,
				Height:        size,
				HorizontalFOV: fov,
				VerticalFOV:   fov,
				Yaw:           yaw,
				Pitch:         pitch,
			})
		}
	}
	return views
}

// DefaultViews returns 16 level 2048px views at 45 degrees.
func DefaultViews() []View { return RingViews(2048, 45) }

// ZoomedInViews returns 32 level 1024px views at 22.5 degrees.
func ZoomedInViews() []View { return RingViews(1024, 22.5) }

// ZoomedOutViews returns 8 level 2500px views at 90 degrees.
func ZoomedOutViews() []View { return RingViews(2500, 90) }

// ZoomedOut60Views returns 12 level 2500px views at 60 degrees.
func ZoomedOut60Views() []View { return RingViews(2500, 60) }

var presets = map[string]func() []View{
	"default":       DefaultViews,
	"zoomed_in":     ZoomedInViews,
	"zoomed_out":    ZoomedOutViews,
	"zoomed_out_60": ZoomedOut60Views,
}

// Preset returns the views of a named preset. Names are case-insensitive.
func Preset(name string) ([]View, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return fn(), nil
}

// PresetNames lists the preset names accepted by Preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
