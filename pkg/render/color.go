// Package render implements the softrast CPU rasterization and shading engine.
package render

import (
	"image/color"
	"math"

	"github.com/softrast/softrast/pkg/math3d"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// RGB creates an opaque color from 8-bit RGB values.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// gamma is the display transfer exponent.
const gamma = 2.2

// LinearToSRGB gamma-encodes a linear channel value in [0,1].
func LinearToSRGB(c float64) float64 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 1
	}
	return math.Pow(c, 1/gamma)
}

// SRGBToLinear decodes a gamma-encoded channel value in [0,1].
func SRGBToLinear(c float64) float64 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 1
	}
	return math.Pow(c, gamma)
}

// ColorToLinear converts an 8-bit color to linear RGB.
func ColorToLinear(c Color) math3d.Vec3 {
	return math3d.V3(
		SRGBToLinear(float64(c.R)/255),
		SRGBToLinear(float64(c.G)/255),
		SRGBToLinear(float64(c.B)/255),
	)
}

// EncodeColor converts linear RGB to an 8-bit color, optionally gamma
// encoding first.
func EncodeColor(c math3d.Vec3, useGamma bool) Color {
	c = c.Clamp01()
	if useGamma {
		c = math3d.V3(LinearToSRGB(c.X), LinearToSRGB(c.Y), LinearToSRGB(c.Z))
	}
	return RGB(
		uint8(c.X*255+0.5),
		uint8(c.Y*255+0.5),
		uint8(c.Z*255+0.5),
	)
}
