package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// FrameBuffer owns the per-frame depth and color planes. Depth cells hold
// the smallest view-space distance seen so far (+Inf when empty) behind an
// atomic compare-and-swap minimum; color cells are three independent bytes
// per pixel, written only by the worker that won the depth race. The
// buffers are written during rasterization and read back only after the
// frame completes.
type FrameBuffer struct {
	Width  int
	Height int

	depth []uint64 // float64 bit patterns; non-negative, so bit order == value order
	color []uint8  // RGB triples, row-major
}

// NewFrameBuffer creates a frame buffer with cleared planes.
func NewFrameBuffer(width, height int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  width,
		Height: height,
		depth:  make([]uint64, width*height),
		color:  make([]uint8, width*height*3),
	}
	fb.resetDepth()
	return fb
}

var depthInf = math.Float64bits(math.Inf(1))

func (fb *FrameBuffer) resetDepth() {
	for i := range fb.depth {
		fb.depth[i] = depthInf
	}
}

// Clear resets the depth plane to +Inf and composites the background into
// the color plane. Row bands are cleared in parallel when workers > 1.
func (fb *FrameBuffer) Clear(set *Settings) {
	fb.resetDepth()

	var bgImg *image.RGBA
	if set.Background == BackgroundImage && set.BackgroundImg != nil {
		bgImg = fb.scaleBackground(set.BackgroundImg)
	}

	workers := set.WorkerCount()
	if workers <= 1 {
		fb.clearRows(0, fb.Height, set, bgImg)
		return
	}

	var g errgroup.Group
	band := (fb.Height + workers - 1) / workers
	for y := 0; y < fb.Height; y += band {
		y0, y1 := y, min(y+band, fb.Height)
		g.Go(func() error {
			fb.clearRows(y0, y1, set, bgImg)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never fail
}

// clearRows fills rows [y0, y1) with background content.
func (fb *FrameBuffer) clearRows(y0, y1 int, set *Settings, bgImg *image.RGBA) {
	groundRow := fb.Height
	if set.GroundPlane && set.GroundHeight > 0 {
		groundRow = int(float64(fb.Height) * (1 - set.GroundHeight))
	}

	for y := y0; y < y1; y++ {
		for x := 0; x < fb.Width; x++ {
			var c Color
			switch {
			case y >= groundRow:
				// Ground plane: fade up from full color at the bottom to a
				// darker band at the horizon, a cheap depth cue.
				t := 1.0
				if fb.Height > groundRow {
					t = float64(y-groundRow) / float64(fb.Height-groundRow)
				}
				f := 0.6 + 0.4*t
				c = RGB(
					uint8(float64(set.GroundColor.R)*f),
					uint8(float64(set.GroundColor.G)*f),
					uint8(float64(set.GroundColor.B)*f),
				)
			case bgImg != nil:
				c = bgImg.RGBAAt(x, y)
			case set.Background == BackgroundGradient:
				t := 0.0
				if fb.Height > 1 {
					t = float64(y) / float64(fb.Height-1)
				}
				c = lerpColor(set.BackgroundTop, set.BackgroundBottom, t)
			default:
				c = set.BackgroundTop
			}
			i := (y*fb.Width + x) * 3
			fb.color[i] = c.R
			fb.color[i+1] = c.G
			fb.color[i+2] = c.B
		}
	}
}

// scaleBackground rescales the static background image to frame size.
func (fb *FrameBuffer) scaleBackground(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func lerpColor(a, b Color, t float64) Color {
	return RGB(
		uint8(float64(a.R)+(float64(b.R)-float64(a.R))*t),
		uint8(float64(a.G)+(float64(b.G)-float64(a.G))*t),
		uint8(float64(a.B)+(float64(b.B)-float64(a.B))*t),
	)
}

// Index returns the pixel index for (x, y), or -1 when out of bounds.
func (fb *FrameBuffer) Index(x, y int) int {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return -1
	}
	return y*fb.Width + x
}

// TryDepth atomically lowers the stored depth at idx to z and reports
// whether z won. A stored value already <= z leaves the cell untouched and
// returns false: some other writer owns (or will own) the pixel. This is
// the only synchronization point between concurrent pixel writers.
func (fb *FrameBuffer) TryDepth(idx int, z float64) bool {
	bits := math.Float64bits(z)
	for {
		old := atomic.LoadUint64(&fb.depth[idx])
		if old <= bits {
			return false
		}
		if atomic.CompareAndSwapUint64(&fb.depth[idx], old, bits) {
			return true
		}
	}
}

// StoreDepth unconditionally stores z at idx (z-buffering disabled path).
func (fb *FrameBuffer) StoreDepth(idx int, z float64) {
	atomic.StoreUint64(&fb.depth[idx], math.Float64bits(z))
}

// DepthAt returns the stored depth at (x, y); +Inf outside the frame.
func (fb *FrameBuffer) DepthAt(x, y int) float64 {
	idx := fb.Index(x, y)
	if idx < 0 {
		return math.Inf(1)
	}
	return math.Float64frombits(atomic.LoadUint64(&fb.depth[idx]))
}

// StoreColor writes the RGB bytes of pixel idx.
func (fb *FrameBuffer) StoreColor(idx int, c Color) {
	i := idx * 3
	fb.color[i] = c.R
	fb.color[i+1] = c.G
	fb.color[i+2] = c.B
}

// ColorAt returns the color of pixel (x, y); black outside the frame.
func (fb *FrameBuffer) ColorAt(x, y int) Color {
	idx := fb.Index(x, y)
	if idx < 0 {
		return Color{}
	}
	i := idx * 3
	return RGB(fb.color[i], fb.color[i+1], fb.color[i+2])
}

// DepthPlane returns a copy of the depth plane, +Inf for empty pixels.
func (fb *FrameBuffer) DepthPlane() []float64 {
	out := make([]float64, len(fb.depth))
	for i, bits := range fb.depth {
		out[i] = math.Float64frombits(bits)
	}
	return out
}

// ColorBytes returns the raw RGB byte plane (not a copy).
func (fb *FrameBuffer) ColorBytes() []uint8 {
	return fb.color
}

// ToImage converts the color plane to a standard Go image.RGBA.
func (fb *FrameBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.ColorAt(x, y))
		}
	}
	return img
}

// SavePNG saves the color plane as a PNG file.
func (fb *FrameBuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, fb.ToImage())
}

// SaveDepthPNG saves the depth plane as a normalized grayscale PNG: the
// nearest depth maps to white, the farthest finite depth to dark gray,
// empty pixels to black.
func (fb *FrameBuffer) SaveDepthPNG(path string) error {
	depths := fb.DepthPlane()

	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, d := range depths {
		if math.IsInf(d, 1) {
			continue
		}
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}

	img := image.NewGray(image.Rect(0, 0, fb.Width, fb.Height))
	if minD <= maxD {
		span := maxD - minD
		if span == 0 {
			span = 1
		}
		for i, d := range depths {
			if math.IsInf(d, 1) {
				continue
			}
			t := (d - minD) / span
			img.Pix[i] = uint8(255 - t*200)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}
