package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRGB_Size(t *testing.T) {
	b := NewRGB(4, 3)
	if len(b.Pix) != 4*3*3 {
		t.Errorf("len(Pix) = %d, want %d", len(b.Pix), 36)
	}
	if got := b.Bounds(); got != image.Rect(0, 0, 4, 3) {
		t.Errorf("Bounds() = %v", got)
	}
}

func TestRGB_SetAndGet(t *testing.T) {
	b := NewRGB(2, 2)
	b.SetRGB(1, 1, 10, 20, 30)
	r, g, bl := b.RGBAt(1, 1)
	if r != 10 || g != 20 || bl != 30 {
		t.Errorf("RGBAt(1,1) = %d,%d,%d, want 10,20,30", r, g, bl)
	}
	if got := b.At(1, 1); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("At(1,1) = %v", got)
	}
	if got := b.At(5, 5); got != (color.RGBA{}) {
		t.Errorf("At out of range = %v, want zero", got)
	}
}

func TestRGB_CloneIsIndependent(t *testing.T) {
	b := NewRGB(1, 1)
	c := b.Clone()
	c.SetRGB(0, 0, 1, 2, 3)
	if r, _, _ := b.RGBAt(0, 0); r != 0 {
		t.Error("mutating the clone changed the original")
	}
}

func TestFromImage_NRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{200, 100, 50, 255})
	src.Set(1, 0, color.NRGBA{1, 2, 3, 255})

	got, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	want := []uint8{200, 100, 50, 1, 2, 3}
	if diff := cmp.Diff(want, got.Pix); diff != "" {
		t.Errorf("Pix mismatch (-want +got):\n%s", diff)
	}
}

func TestFromImage_TranslucentKeepsColor(t *testing.T) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	nrgba.Set(0, 0, color.NRGBA{200, 100, 50, 128})
	nrgba.Set(1, 0, color.NRGBA{10, 20, 30, 0})

	nrgba64 := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	nrgba64.Set(0, 0, color.NRGBA64{200 * 257, 100 * 257, 50 * 257, 128 * 257})

	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}

	cases := []struct {
		name string
		img  image.Image
		want []uint8
	}{
		{"nrgba", nrgba, []uint8{200, 100, 50, 10, 20, 30}},
		{"nrgba64", nrgba64, []uint8{200, 100, 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromImage(tc.img)
			if err != nil {
				t.Fatalf("FromImage: %v", err)
			}
			if diff := cmp.Diff(tc.want, got.Pix); diff != "" {
				t.Errorf("Pix mismatch (-want +got):\n%s", diff)
			}
		})
	}
	t.Run("png", func(t *testing.T) {
		if diff := cmp.Diff([]uint8{200, 100, 50, 10, 20, 30}, decoded.Pix); diff != "" {
			t.Errorf("Pix mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 12, 11))
	src.Set(10, 10, color.RGBA{9, 8, 7, 255})
	got, err := FromImage(src)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if got.Width != 2 || got.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", got.Width, got.Height)
	}
	if r, g, b := got.RGBAt(0, 0); r != 9 || g != 8 || b != 7 {
		t.Errorf("pixel = %d,%d,%d, want 9,8,7", r, g, b)
	}
}

func TestFromImage_GrayRejected(t *testing.T) {
	_, err := FromImage(image.NewGray(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, ErrNotRGB) {
		t.Errorf("err = %v, want ErrNotRGB", err)
	}
}

func TestFromImage_Empty(t *testing.T) {
	if _, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{"PNG", FormatPNG},
		{".jpg", FormatJPG},
		{"jpeg", FormatJPEG},
		{"bmp", FormatBMP},
		{"tif", FormatTIFF},
		{"TIFF", FormatTIFF},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseFormat_Unsupported(t *testing.T) {
	for _, in := range []string{"", "gif", "exr"} {
		if _, err := ParseFormat(in); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) err = %v, want ErrUnsupportedFormat", in, err)
		}
	}
}

func TestIsSupportedInput(t *testing.T) {
	for _, p := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp", "e.tif"} {
		if !IsSupportedInput(p) {
			t.Errorf("IsSupportedInput(%q) = false", p)
		}
	}
	for _, p := range []string{"a.txt", "b", "c.gif"} {
		if IsSupportedInput(p) {
			t.Errorf("IsSupportedInput(%q) = true", p)
		}
	}
}

func TestDecodeBytes_Empty(t *testing.T) {
	if _, err := DecodeBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("err = %v, want ErrEmptyData", err)
	}
}

func TestDecodeBytes_Garbage(t *testing.T) {
	if _, err := DecodeBytes([]byte("definitely not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestEncodePNG_DecodesToSamePixels(t *testing.T) {
	b := NewRGB(3, 2)
	for i := range b.Pix {
		b.Pix[i] = uint8(i * 10)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, b, FormatPNG, 0); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	got, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if diff := cmp.Diff(b.Pix, got.Pix); diff != "" {
		t.Errorf("lossless PNG changed pixels (-want +got):\n%s", diff)
	}
}

func TestEncode_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, NewRGB(1, 1), Format("gif"), 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSaveFileAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bmp")
	b := NewRGB(2, 2)
	b.SetRGB(1, 0, 255, 0, 0)
	if err := SaveFile(path, b, FormatBMP, 0); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r, g, bl := got.RGBAt(1, 0); r != 255 || g != 0 || bl != 0 {
		t.Errorf("pixel = %d,%d,%d, want 255,0,0", r, g, bl)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
