// Package export turns generated views into files: it names them, encodes
// them and drives whole split jobs over one image or a directory.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/panorama"
)

// Writer saves results under Dir.
type Writer struct {
	Dir     string
	Format  imaging.Format // empty: same as the input image, png for in-memory sources
	Quality int            // JPEG quality 1-100, 0 = default
}

// FileName returns "{id}_pitch{p}_yaw{y}_fov{f}.{ext}" where p is the
// caller pitch (90 = level).
func FileName(id string, v panorama.View, format imaging.Format) string {
	return fmt.Sprintf("%s_pitch%s_yaw%s_fov%s.%s",
		id,
		shortFloat(panorama.CallerPitch(v.Pitch)),
		shortFloat(v.Yaw),
		shortFloat(v.HorizontalFOV),
		format)
}

func shortFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PanoramaID derives the source id from a file path: its base name
// without extension.
func PanoramaID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ForInput returns a copy of w whose empty Format is replaced by the
// format of inputPath, or png when that format cannot be encoded (webp).
func (w Writer) ForInput(inputPath string) Writer {
	if w.Format != "" {
		return w
	}
	if f, err := imaging.FormatFromPath(inputPath); err == nil {
		w.Format = f
	} else {
		w.Format = imaging.FormatPNG
	}
	return w
}

// Save encodes res into Dir and returns the written path.
func (w Writer) Save(res *panorama.Result) (string, error) {
	format := w.Format
	if format == "" {
		format = imaging.FormatPNG
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.Dir, FileName(res.PanoramaID, res.View, format))
	if err := imaging.SaveFile(path, res.Image, format, w.Quality); err != nil {
		return "", fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
