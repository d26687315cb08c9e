// Package panorama turns an equirectangular image into rectilinear
// perspective views.
//
// A Source is decoded once and is read-only afterwards, so any number of
// goroutines may call GenerateView on it concurrently.
package panorama

import (
	"errors"
	"fmt"
	"image"

	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/logic/geometry"
	"github.com/cjeanneret/PanSplit/internal/logic/resample"
)

// Input is one of File, Encoded, Image or Pixels.
type Input interface {
	load() (*imaging.RGB, error)
	op() string
}

// File loads a JPEG, PNG, WebP, BMP or TIFF file from disk.
type File struct {
	Path string
}

// Encoded decodes an in-memory encoded image.
type Encoded struct {
	Data []byte
}

// Image converts an already decoded image.
type Image struct {
	Img image.Image
}

// Pixels wraps a raw interleaved buffer. The buffer is copied.
type Pixels struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func (f File) load() (*imaging.RGB, error)    { return imaging.LoadFile(f.Path) }
func (e Encoded) load() (*imaging.RGB, error) { return imaging.DecodeBytes(e.Data) }

func (i Image) load() (*imaging.RGB, error) {
	if i.Img == nil {
		return nil, errors.New("nil image")
	}
	return imaging.FromImage(i.Img)
}

func (p Pixels) load() (*imaging.RGB, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("empty dimensions %dx%d", p.Width, p.Height)
	}
	if p.Channels != 3 {
		return nil, fmt.Errorf("%w: %d channels", imaging.ErrNotRGB, p.Channels)
	}
	if want := p.Width * p.Height * 3; len(p.Pix) != want {
		return nil, fmt.Errorf("buffer holds %d bytes, want %d", len(p.Pix), want)
	}
	out := imaging.NewRGB(p.Width, p.Height)
	copy(out.Pix, p.Pix)
	return out, nil
}

func (File) op() string    { return "file" }
func (Encoded) op() string { return "decode" }
func (Image) op() string   { return "image" }
func (Pixels) op() string  { return "pixels" }

// Source is a decoded panorama shared by every view generated from it.
type Source struct {
	id  string
	img *imaging.RGB
}

// Load decodes in into a new Source identified by id.
func Load(id string, in Input) (*Source, error) {
	if in == nil {
		return nil, &LoadError{ID: id, Op: "input", Err: errors.New("no input")}
	}
	img, err := in.load()
	if err != nil {
		return nil, &LoadError{ID: id, Op: in.op(), Err: err}
	}
	Logger().Info("panorama loaded", "id", id, "width", img.Width, "height", img.Height)
	return &Source{id: id, img: img}, nil
}

// FromFile is Load(id, File{Path: path}).
func FromFile(id, path string) (*Source, error) {
	return Load(id, File{Path: path})
}

// FromBytes is Load(id, Encoded{Data: data}).
func FromBytes(id string, data []byte) (*Source, error) {
	return Load(id, Encoded{Data: data})
}

// FromImage is Load(id, Image{Img: img}).
func FromImage(id string, img image.Image) (*Source, error) {
	return Load(id, Image{Img: img})
}

// FromPixels is Load(id, Pixels{...}) for a 3-channel buffer.
func FromPixels(id string, width, height int, pix []uint8) (*Source, error) {
	return Load(id, Pixels{Width: width, Height: height, Channels: 3, Pix: pix})
}

// ID returns the identifier given at load time.
func (s *Source) ID() string { return s.id }

// Width returns the panorama width in pixels.
func (s *Source) Width() int { return s.img.Width }

// Height returns the panorama height in pixels.
func (s *Source) Height() int { return s.img.Height }

// Result is one generated perspective image. The caller owns Image.
type Result struct {
	PanoramaID string
	View       View
	Image      *imaging.RGB
}

// GenerateView renders v. Invalid views and modes yield a
// *ConfigurationError; failures while sampling yield a *ResampleError.
func (s *Source) GenerateView(v View, mode resample.Mode) (*Result, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, &ConfigurationError{View: v, Field: "interpolation", Reason: mode.String() + " is not a known mode"}
	}

	coords := geometry.Project(v.projection(), s.img.Width, s.img.Height)
	out, err := resample.Sample(s.img, coords, mode)
	if err != nil {
		return nil, &ResampleError{View: v, Err: err}
	}

	Logger().Debug("view generated", "id", s.id, "view", v.String(), "mode", mode.String())
	return &Result{PanoramaID: s.id, View: v, Image: out}, nil
}
