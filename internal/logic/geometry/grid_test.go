package geometry

import (
	"math"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/cjeanneret/PanSplit/internal/config"
)

func newGridConfig(fov, vfov, overlapPct, hAngle, vAngle float64) *config.Config {
	return &config.Config{
		Camera: config.CameraConfig{FOVDeg: fov, VerticalFOVDeg: vfov},
		Angles: config.AnglesConfig{
			OverlapPercent:     overlapPct,
			HorizontalAngleDeg: hAngle,
			VerticalAngleDeg:   vAngle,
		},
	}
}

func planFor(t *testing.T, cfg *config.Config) *GridPlan {
	t.Helper()
	fovCalc, err := NewFOVCalculator(cfg)
	if err != nil {
		t.Fatalf("NewFOVCalculator: %v", err)
	}
	return CalculateGridPlan(cfg, fovCalc)
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCalculateGridPlan_StandardCase(t *testing.T) {
	// 60 deg views, 50% overlap: 30 deg steps.
	plan := planFor(t, newGridConfig(60, 40, 50, 180, 40))

	if plan.Columns != 6 {
		t.Errorf("Columns = %d, want 6", plan.Columns)
	}
	if plan.Rows != 2 {
		t.Errorf("Rows = %d, want 2", plan.Rows)
	}
	want := []float64{-75, -45, -15, 15, 45, 75}
	if diff := cmp.Diff(want, plan.Yaws(), approx); diff != "" {
		t.Errorf("Yaws() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10, -10}, plan.Pitches(), approx); diff != "" {
		t.Errorf("Pitches() mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateGridPlan_FullPanorama360(t *testing.T) {
	// 90 deg views, 30% overlap: 63 deg step, 6 columns, evened out to 60.
	plan := planFor(t, newGridConfig(90, 0, 30, 360, 30))

	if plan.Columns != 6 {
		t.Fatalf("Columns = %d, want 6", plan.Columns)
	}
	if math.Abs(plan.YawStep-60) > epsilon {
		t.Errorf("YawStep = %v, want 60", plan.YawStep)
	}
	want := []float64{-180, -120, -60, 0, 60, 120}
	if diff := cmp.Diff(want, plan.Yaws(), approx); diff != "" {
		t.Errorf("Yaws() mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateGridPlan_LargeOverlap(t *testing.T) {
	plan90 := planFor(t, newGridConfig(40, 30, 90, 180, 30))
	plan5 := planFor(t, newGridConfig(40, 30, 5, 180, 30))

	if plan90.Columns <= plan5.Columns {
		t.Errorf("90%% overlap columns (%d) should be more than 5%% overlap columns (%d)",
			plan90.Columns, plan5.Columns)
	}
	if plan90.Rows <= plan5.Rows {
		t.Errorf("90%% overlap rows (%d) should be more than 5%% overlap rows (%d)",
			plan90.Rows, plan5.Rows)
	}
}

// Overlap past the config limit is clamped, so the view count stays bounded.
func TestCalculateGridPlan_OverlapClamped(t *testing.T) {
	plan := planFor(t, newGridConfig(90, 90, 99.99, 360, 90))

	// 90 deg views at 90% overlap step by 9 deg; rounding may add one.
	if plan.Columns < 40 || plan.Columns > 41 {
		t.Errorf("Columns = %d, want 40 or 41", plan.Columns)
	}
	if plan.Rows < 10 || plan.Rows > 11 {
		t.Errorf("Rows = %d, want 10 or 11", plan.Rows)
	}
}

func TestCalculateGridPlan_StaysBelowPoles(t *testing.T) {
	plan := planFor(t, newGridConfig(90, 90, 0, 360, 180))
	for _, p := range plan.Pitches() {
		if math.Abs(p) >= 90 {
			t.Errorf("pitch %v reaches a pole", p)
		}
	}
}

func TestCalculateGridPlan_AlwaysAtLeastOneView(t *testing.T) {
	plan := planFor(t, newGridConfig(90, 0, 30, 0.1, 0.1))

	if plan.Columns != 1 || plan.Rows != 1 {
		t.Fatalf("plan = %dx%d, want 1x1", plan.Columns, plan.Rows)
	}
	if diff := cmp.Diff([]float64{0}, plan.Yaws(), approx); diff != "" {
		t.Errorf("single column should look straight ahead (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0}, plan.Pitches(), approx); diff != "" {
		t.Errorf("single row should be level (-want +got):\n%s", diff)
	}
}

func TestYawRing(t *testing.T) {
	cases := []struct {
		fov       float64
		wantCount int
	}{
		{45, 16},
		{22.5, 32},
		{90, 8},
		{60, 12},
	}
	for _, tc := range cases {
		t.Run(formatDeg(tc.fov), func(t *testing.T) {
			yaws := YawRing(tc.fov)
			if len(yaws) != tc.wantCount {
				t.Fatalf("len(YawRing(%v)) = %d, want %d", tc.fov, len(yaws), tc.wantCount)
			}
			if yaws[0] != -180 {
				t.Errorf("first yaw = %v, want -180", yaws[0])
			}
			interval := 360 / float64(tc.wantCount)
			for k := 1; k < len(yaws); k++ {
				if math.Abs(yaws[k]-yaws[k-1]-interval) > 1e-9 {
					t.Errorf("yaw[%d]-yaw[%d] = %v, want %v", k, k-1, yaws[k]-yaws[k-1], interval)
				}
			}
		})
	}
}

func TestYawRing_HugeFOV(t *testing.T) {
	if got := YawRing(1000); len(got) != 1 {
		t.Errorf("len(YawRing(1000)) = %d, want 1", len(got))
	}
}

func formatDeg(f float64) string {
	return "fov_" + strconv.FormatFloat(f, 'f', -1, 64)
}
