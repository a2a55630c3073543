package editor

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// RotationStep is the angle added or removed by one rotate action
	RotationStep = 90.0
	// MinZoom is the smallest zoom factor; zooming out is not supported
	MinZoom = 1.0
	// MaxZoom is the largest zoom offered by the editor controls
	MaxZoom = 3.5
)

// Settings is an immutable set of edit parameters. Percentages use 100 as
// identity, Hue and Rotation are in degrees and Blur is in pixels.
type Settings struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturate   float64 `json:"saturate"`
	Hue        float64 `json:"hue"`
	Blur       float64 `json:"blur"`
	Rotation   float64 `json:"rotation"`
	Zoom       float64 `json:"zoom"`
}

// DefaultSettings leaves an image unchanged
func DefaultSettings() Settings {
	return Settings{
		Brightness: 100,
		Contrast:   100,
		Saturate:   100,
		Hue:        0,
		Blur:       0,
		Rotation:   0,
		Zoom:       MinZoom,
	}
}

func (s Settings) WithBrightness(v float64) Settings {
	s.Brightness = v
	return s
}

func (s Settings) WithContrast(v float64) Settings {
	s.Contrast = v
	return s
}

func (s Settings) WithSaturate(v float64) Settings {
	s.Saturate = v
	return s
}

// WithHue sets the hue rotation in degrees
func (s Settings) WithHue(v float64) Settings {
	s.Hue = v
	return s
}

// WithBlur sets the blur radius; negative values mean no blur
func (s Settings) WithBlur(v float64) Settings {
	s.Blur = math.Max(0, v)
	return s
}

// WithZoom sets the zoom factor, floored at MinZoom
func (s Settings) WithZoom(v float64) Settings {
	s.Zoom = math.Max(MinZoom, v)
	return s
}

// RotateClockwise adds one quarter turn
func (s Settings) RotateClockwise() Settings {
	s.Rotation += RotationStep
	return s
}

// RotateCounterClockwise removes one quarter turn
func (s Settings) RotateCounterClockwise() Settings {
	s.Rotation -= RotationStep
	return s
}

// Normalize applies the floors of WithBlur and WithZoom to values set directly
func (s Settings) Normalize() Settings {
	if math.IsNaN(s.Zoom) {
		s.Zoom = MinZoom
	}
	return s.WithBlur(s.Blur).WithZoom(s.Zoom)
}

// IsIdentity reports whether committing would leave pixels unchanged
func (s Settings) IsIdentity() bool {
	n := s.Normalize()
	n.Rotation = normalizedAngle(n.Rotation)
	return n == DefaultSettings()
}

// WithRotation sets the accumulated rotation
func (s Settings) WithRotation(v float64) Settings {
	s.Rotation = v
	return s
}

// SwapsDimensions reports whether the rotation is an odd multiple of 90 degrees
func (s Settings) SwapsDimensions() bool {
	return math.Abs(math.Mod(s.Rotation, 180)) == RotationStep
}

// Preview describes the edit for a client-side renderer without touching pixels
type Preview struct {
	Filter    string `json:"filter"`
	Transform string `json:"transform"`
}

// PreviewTransform renders settings as CSS filter and transform values
func PreviewTransform(s Settings) Preview {
	return Preview{
		Filter: fmt.Sprintf("brightness(%s%%) contrast(%s%%) saturate(%s%%) hue-rotate(%sdeg) blur(%spx)",
			num(s.Brightness), num(s.Contrast), num(s.Saturate), num(s.Hue), num(s.Blur)),
		Transform: fmt.Sprintf("rotate(%sdeg) scale(%s)", num(s.Rotation), num(s.Zoom)),
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// normalizedAngle maps any angle to [0, 360)
func normalizedAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return a
}
