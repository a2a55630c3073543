package editor

import (
	"image/color"
	"math"
)

// Luminance weights of the filter-effects color matrices
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

type matrix [3][3]float64

// filterChain evaluates brightness, contrast, saturate and hue-rotate in
// that order, clamping to [0, 1] after each step
type filterChain struct {
	brightness float64
	contrast   float64
	saturate   *matrix
	hue        *matrix
}

func newFilterChain(s Settings) filterChain {
	chain := filterChain{
		brightness: s.Brightness / 100,
		contrast:   s.Contrast / 100,
	}
	if s.Saturate != 100 {
		m := saturateMatrix(s.Saturate / 100)
		chain.saturate = &m
	}
	if math.Mod(s.Hue, 360) != 0 {
		m := hueRotateMatrix(s.Hue)
		chain.hue = &m
	}
	return chain
}

func (f filterChain) identity() bool {
	return f.brightness == 1 && f.contrast == 1 && f.saturate == nil && f.hue == nil
}

func (f filterChain) apply(c color.NRGBA) color.NRGBA {
	rgb := [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}

	if f.brightness != 1 {
		for i := range rgb {
			rgb[i] = clamp01(rgb[i] * f.brightness)
		}
	}
	if f.contrast != 1 {
		for i := range rgb {
			rgb[i] = clamp01((rgb[i]-0.5)*f.contrast + 0.5)
		}
	}
	if f.saturate != nil {
		rgb = f.saturate.apply(rgb)
	}
	if f.hue != nil {
		rgb = f.hue.apply(rgb)
	}

	return color.NRGBA{R: to8(rgb[0]), G: to8(rgb[1]), B: to8(rgb[2]), A: c.A}
}

func (m *matrix) apply(rgb [3]float64) [3]float64 {
	var out [3]float64
	for i := range out {
		out[i] = clamp01(m[i][0]*rgb[0] + m[i][1]*rgb[1] + m[i][2]*rgb[2])
	}
	return out
}

func saturateMatrix(s float64) matrix {
	return matrix{
		{lumR + (1-lumR)*s, lumG - lumG*s, lumB - lumB*s},
		{lumR - lumR*s, lumG + (1-lumG)*s, lumB - lumB*s},
		{lumR - lumR*s, lumG - lumG*s, lumB + (1-lumB)*s},
	}
}

func hueRotateMatrix(deg float64) matrix {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return matrix{
		{
			lumR + cos*(1-lumR) - sin*lumR,
			lumG - cos*lumG - sin*lumG,
			lumB - cos*lumB + sin*(1-lumB),
		},
		{
			lumR - cos*lumR + sin*0.143,
			lumG + cos*(1-lumG) + sin*0.140,
			lumB - cos*lumB - sin*0.283,
		},
		{
			lumR - cos*lumR - sin*(1-lumR),
			lumG - cos*lumG + sin*lumG,
			lumB + cos*(1-lumB) + sin*lumB,
		},
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(v * 255))
}
