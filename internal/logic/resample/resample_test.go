package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
)

// ramp returns a w x h source whose red channel is the column index and
// green channel the row index.
func ramp(w, h int) *imaging.RGB {
	img := imaging.NewRGB(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB(x, y, uint8(x), uint8(y), 7)
		}
	}
	return img
}

func coordsOf(xs, ys []float64) *geometry.CoordMap {
	return &geometry.CoordMap{Width: len(xs), Height: 1, X: xs, Y: ys}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"nearest", Nearest},
		{"NEAREST", Nearest},
		{"bilinear", Bilinear},
		{"Linear", Bilinear},
		{" bilinear ", Bilinear},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMode(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseMode_Unknown(t *testing.T) {
	for _, in := range []string{"", "bicubic", "lanczos"} {
		if _, err := ParseMode(in); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("ParseMode(%q) err = %v, want ErrUnknownMode", in, err)
		}
	}
}

func TestMode_String(t *testing.T) {
	if Nearest.String() != "nearest" || Bilinear.String() != "bilinear" {
		t.Errorf("String() = %q, %q", Nearest.String(), Bilinear.String())
	}
	if got := Mode(9).String(); got != "mode(9)" {
		t.Errorf("Mode(9).String() = %q", got)
	}
}

func TestSample_UnknownModeBeforeWork(t *testing.T) {
	_, err := Sample(ramp(4, 4), coordsOf([]float64{0}, []float64{0}), Mode(42))
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("err = %v, want ErrUnknownMode", err)
	}
}

func TestSample_NonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Sample(ramp(4, 4), coordsOf([]float64{1, bad}, []float64{1, 1}), Nearest)
		if !errors.Is(err, ErrNonFinite) {
			t.Errorf("x=%v: err = %v, want ErrNonFinite", bad, err)
		}
		_, err = Sample(ramp(4, 4), coordsOf([]float64{1}, []float64{bad}), Bilinear)
		if !errors.Is(err, ErrNonFinite) {
			t.Errorf("y=%v: err = %v, want ErrNonFinite", bad, err)
		}
	}
}

func TestSample_EmptySource(t *testing.T) {
	if _, err := Sample(&imaging.RGB{}, coordsOf([]float64{0}, []float64{0}), Nearest); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestSample_Nearest(t *testing.T) {
	src := ramp(8, 4)
	cases := []struct {
		name  string
		x, y  float64
		wantR uint8
		wantG uint8
	}{
		{"exact", 3, 2, 3, 2},
		{"rounds_down", 3.49, 1.2, 3, 1},
		{"half_rounds_up", 3.5, 1.5, 4, 2},
		{"wraps_right", 7.6, 0, 0, 0},
		{"wraps_left", -0.6, 0, 7, 0},
		{"wraps_far", 26, 0, 2, 0},
		{"clamps_top", 1, -5, 1, 0},
		{"clamps_bottom", 1, 99, 1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Sample(src, coordsOf([]float64{tc.x}, []float64{tc.y}), Nearest)
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}
			if r, g, b := out.RGBAt(0, 0); r != tc.wantR || g != tc.wantG || b != 7 {
				t.Errorf("pixel = %d,%d,%d, want %d,%d,7", r, g, b, tc.wantR, tc.wantG)
			}
		})
	}
}

func TestSample_Bilinear(t *testing.T) {
	src := ramp(8, 4)
	cases := []struct {
		name  string
		x, y  float64
		wantR uint8
		wantG uint8
	}{
		{"exact", 2, 1, 2, 1},
		{"midpoint", 2.5, 1.5, 3, 2}, // 2.5 rounds to 3 (half away from zero)
		{"quarter", 4.25, 0.75, 4, 1},
		{"clamps_bottom", 0, 3.5, 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Sample(src, coordsOf([]float64{tc.x}, []float64{tc.y}), Bilinear)
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}
			if r, g, _ := out.RGBAt(0, 0); r != tc.wantR || g != tc.wantG {
				t.Errorf("pixel = %d,%d, want %d,%d", r, g, tc.wantR, tc.wantG)
			}
		})
	}
}

func TestSample_BilinearBlendsAcrossSeam(t *testing.T) {
	src := imaging.NewRGB(4, 1)
	src.SetRGB(3, 0, 200, 0, 0) // last column
	src.SetRGB(0, 0, 100, 0, 0) // first column
	out, err := Sample(src, coordsOf([]float64{3.5}, []float64{0}), Bilinear)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if r, _, _ := out.RGBAt(0, 0); r != 150 {
		t.Errorf("seam blend = %d, want 150", r)
	}
}

func TestSample_OutputShapeAndDeterminism(t *testing.T) {
	src := ramp(64, 32)
	coords := &geometry.CoordMap{
		Width:  3,
		Height: 2,
		X:      []float64{0, 10.2, 63.9, -3, 20, 40.5},
		Y:      []float64{0, 5.5, 31, 10, 16.25, 2},
	}
	a, err := Sample(src, coords, Bilinear)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if a.Width != 3 || a.Height != 2 || len(a.Pix) != 3*2*3 {
		t.Fatalf("shape = %dx%d (%d bytes)", a.Width, a.Height, len(a.Pix))
	}
	b, _ := Sample(src, coords, Bilinear)
	if diff := cmp.Diff(a.Pix, b.Pix); diff != "" {
		t.Errorf("repeated sample differs (-first +second):\n%s", diff)
	}
}
