package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/cjeanneret/PanSplit/internal/logic/export"
)

func printSummary(w io.Writer, s export.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🎉 Processing complete!")
	fmt.Fprintf(w, "📊 Generated %d/%d images\n", s.Saved, s.Views)
	fmt.Fprintf(w, "⏱️  Total time: %.2f seconds\n", s.Elapsed.Seconds())
	fmt.Fprintf(w, "🚀 Average: %.2f images/second\n", s.Rate())
}

// printHelp lists the usual causes of an empty run.
func printHelp(w io.Writer, err error) {
	fmt.Fprintln(w)
	if errors.Is(err, export.ErrNoImages) {
		fmt.Fprintln(w, "❌ No supported image files found in the input directory.")
		fmt.Fprintln(w, "Supported formats: .jpg, .jpeg, .png, .webp, .bmp, .tif, .tiff")
		return
	}
	fmt.Fprintln(w, "❌ No images were processed. Please check:")
	fmt.Fprintln(w, "- Input path exists and contains supported image files (.jpg, .jpeg, .png)")
	fmt.Fprintln(w, "- You have write permissions to the output directory")
	fmt.Fprintln(w, "- Images are valid panoramic images")
}
