package render

import (
	"image"
	"math"

	"github.com/softrast/softrast/pkg/math3d"
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a 2D image as linear RGB texels for sampling during
// shading. Color textures are decoded from sRGB at load time so the hot
// path never converts.
type Texture struct {
	Width  int
	Height int
	Texels []math3d.Vec3 // Row-major, linear RGB

	WrapU  WrapMode
	WrapV  WrapMode
	Filter FilterMode
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Texels: make([]math3d.Vec3, width*height),
	}
}

// TextureFromImage converts an image to a texture. srgb selects whether
// the source channels are gamma encoded (true for color maps, false for
// data maps such as normal maps).
func TextureFromImage(img image.Image, srgb bool) *Texture {
	bounds := img.Bounds()
	tex := NewTexture(bounds.Dx(), bounds.Dy())

	for y := range tex.Height {
		for x := range tex.Width {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 16-bit values
			c := math3d.V3(float64(r)/65535, float64(g)/65535, float64(b)/65535)
			if srgb {
				c = math3d.V3(SRGBToLinear(c.X), SRGBToLinear(c.Y), SRGBToLinear(c.Z))
			}
			tex.Texels[y*tex.Width+x] = c
		}
	}
	return tex
}

// NewSolidTexture creates a 1x1 texture with a constant linear color.
func NewSolidTexture(c math3d.Vec3) *Texture {
	tex := NewTexture(1, 1)
	tex.Texels[0] = c
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture with linear
// colors c1 and c2.
func NewCheckerTexture(width, height, checkSize int, c1, c2 math3d.Vec3) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			if ((x/checkSize)+(y/checkSize))%2 == 0 {
				tex.Texels[y*width+x] = c1
			} else {
				tex.Texels[y*width+x] = c2
			}
		}
	}
	return tex
}

// wrap maps a texel coordinate into [0, n) according to the wrap mode.
func wrap(i, n int, mode WrapMode) int {
	if n <= 0 {
		return 0
	}
	switch mode {
	case WrapClamp:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	default:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
}

// texel returns the texel at integer coordinates after wrapping.
func (t *Texture) texel(x, y int) math3d.Vec3 {
	x = wrap(x, t.Width, t.WrapU)
	y = wrap(y, t.Height, t.WrapV)
	return t.Texels[y*t.Width+x]
}

// Sample returns the linear RGB color at texture coordinate (u, v) with
// a bottom-left origin.
func (t *Texture) Sample(u, v float64) math3d.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return math3d.V3(0.5, 0.5, 0.5)
	}

	// Flip V: texel rows grow downward.
	fx := u * float64(t.Width)
	fy := (1 - v) * float64(t.Height)

	if t.Filter == FilterNearest {
		return t.texel(int(math.Floor(fx)), int(math.Floor(fy)))
	}

	// Bilinear: sample the four surrounding texel centers.
	fx -= 0.5
	fy -= 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	c00 := t.texel(x0, y0)
	c10 := t.texel(x0+1, y0)
	c01 := t.texel(x0, y0+1)
	c11 := t.texel(x0+1, y0+1)

	top := c00.Lerp(c10, tx)
	bottom := c01.Lerp(c11, tx)
	return top.Lerp(bottom, ty)
}

// SampleNormal decodes a tangent-space normal from a normal map at (u, v):
// channels in [0,1] map to components in [-1,1].
func (t *Texture) SampleNormal(u, v float64) math3d.Vec3 {
	c := t.Sample(u, v)
	return math3d.V3(c.X*2-1, c.Y*2-1, c.Z*2-1).Normalize()
}
