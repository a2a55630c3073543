package editor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/disintegration/imaging"
)

// JPEGQuality is the quality used when re-encoding a committed edit
const JPEGQuality = 95

// ErrEmptySource is returned when committing without an image
var ErrEmptySource = errors.New("no image to edit")

// Commit bakes settings into a new JPEG. The source is left untouched.
func Commit(src imagedata.Image, s Settings) (imagedata.Image, error) {
	if len(src.Data) == 0 {
		return imagedata.Image{}, ErrEmptySource
	}
	img, err := imaging.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return imagedata.Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	out := Render(img, s)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return imagedata.Image{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return imagedata.Image{MIMEType: imagedata.MIMETypeJPEG, Data: buf.Bytes()}, nil
}

// Render applies the color filters, then rotation and zoom about the canvas
// center, then blur. The canvas keeps the source size, with width and height
// swapped for odd quarter turns. Uncovered canvas is black.
func Render(src image.Image, s Settings) *image.NRGBA {
	s = s.Normalize()

	cw, ch := src.Bounds().Dx(), src.Bounds().Dy()
	if s.SwapsDimensions() {
		cw, ch = ch, cw
	}

	filtered := applyColorFilters(src, s)
	rotated := rotateClockwise(filtered, normalizedAngle(s.Rotation))

	// Only the centered cw/zoom x ch/zoom window stays visible after scaling.
	visible := imaging.CropCenter(rotated,
		int(math.Ceil(float64(cw)/s.Zoom)),
		int(math.Ceil(float64(ch)/s.Zoom)))
	if s.Zoom != MinZoom {
		// The scaled window never exceeds the canvas, so cost is bounded by
		// the canvas size whatever the zoom.
		b := visible.Bounds()
		visible = imaging.Resize(visible,
			scaledSide(b.Dx(), s.Zoom, cw),
			scaledSide(b.Dy(), s.Zoom, ch),
			imaging.Lanczos)
	}

	canvas := imaging.PasteCenter(imaging.New(cw, ch, color.Black), visible)
	if s.Blur > 0 {
		canvas = imaging.Blur(canvas, s.Blur)
	}
	return canvas
}

func scaledSide(side int, zoom float64, limit int) int {
	scaled := float64(side) * zoom
	if scaled >= float64(limit) {
		return limit
	}
	return max(1, int(math.Round(scaled)))
}

func rotateClockwise(img *image.NRGBA, deg float64) *image.NRGBA {
	switch deg {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		// imaging rotates counter-clockwise
		return imaging.Rotate(img, -deg, color.Black)
	}
}

func applyColorFilters(img image.Image, s Settings) *image.NRGBA {
	chain := newFilterChain(s)
	if chain.identity() {
		return imaging.Clone(img)
	}
	return imaging.AdjustFunc(img, chain.apply)
}
