// Package imaging holds the 8-bit RGB pixel buffer shared by the projection
// engine, plus decode/encode helpers for the formats the tool reads and writes.
package imaging

import (
	"errors"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// ErrNotRGB is returned when an image cannot be represented as 3 channels.
var ErrNotRGB = errors.New("imaging: image is not 3-channel")

// RGB is a dense row-major buffer with 3 bytes per pixel (R, G, B).
// It implements image.Image so it can be handed straight to an encoder.
type RGB struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGB allocates a zeroed buffer.
func NewRGB(width, height int) *RGB {
	return &RGB{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Offset returns the index of the red byte of pixel (x, y).
func (b *RGB) Offset(x, y int) int {
	return (y*b.Width + x) * 3
}

// RGBAt returns the channels of pixel (x, y). Coordinates must be in range.
func (b *RGB) RGBAt(x, y int) (r, g, bl uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// SetRGB writes pixel (x, y). Coordinates must be in range.
func (b *RGB) SetRGB(x, y int, r, g, bl uint8) {
	i := b.Offset(x, y)
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
}

// Clone returns a deep copy.
func (b *RGB) Clone() *RGB {
	c := &RGB{Width: b.Width, Height: b.Height, Pix: make([]uint8, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// ColorModel implements image.Image.
func (b *RGB) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (b *RGB) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image. Out-of-range pixels are transparent black.
func (b *RGB) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	r, g, bl := b.RGBAt(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: 0xff}
}

// FromImage converts a decoded image into an RGB buffer. Alpha is dropped
// without scaling the color channels. Single-channel color models (gray,
// alpha) are rejected with ErrNotRGB.
func FromImage(img image.Image) (*RGB, error) {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return nil, ErrNotRGB
	}
	if rgb, ok := img.(*RGB); ok {
		return rgb.Clone(), nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("imaging: empty image")
	}

	pix, stride := straightRGBA(img)
	out := NewRGB(width, height)
	for y := 0; y < height; y++ {
		src := pix[y*stride : y*stride+width*4]
		dst := out.Pix[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return out, nil
}

// straightRGBA returns img as 4-byte pixels with non-premultiplied color,
// starting at its top-left corner. Alpha is left for the caller to drop.
func straightRGBA(img image.Image) (pix []uint8, stride int) {
	bounds := img.Bounds()
	switch src := img.(type) {
	case *image.NRGBA:
		return src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y):], src.Stride
	case *image.RGBA:
		if src.Opaque() {
			return src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y):], src.Stride
		}
	}
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		dst := image.NewRGBA(rect)
		xdraw.Draw(dst, rect, img, bounds.Min, xdraw.Src)
		return dst.Pix, dst.Stride
	}
	dst := image.NewNRGBA(rect)
	xdraw.Draw(dst, rect, img, bounds.Min, xdraw.Src)
	return dst.Pix, dst.Stride
}
