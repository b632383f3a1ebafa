package render

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// Rasterizer scan-converts assembled triangles into a frame buffer. One
// instance serves a single frame; it holds only read-only state besides the
// frame buffer, whose atomic depth plane arbitrates concurrent writers.
type Rasterizer struct {
	fb     *FrameBuffer
	set    *Settings
	shadow *ShadowMap // nil when shadow mapping is off
}

// NewRasterizer creates a rasterizer for one frame.
func NewRasterizer(fb *FrameBuffer, set *Settings, shadow *ShadowMap) *Rasterizer {
	return &Rasterizer{fb: fb, set: set, shadow: shadow}
}

// Draw rasterizes the triangle list and reports the strategy used. The
// output is identical across strategies and worker counts: the depth test
// alone decides pixel ownership, so scheduling order never shows in the
// image.
func (r *Rasterizer) Draw(tris []TriangleRecord) Strategy {
	strategy := ChooseStrategy(tris, r.fb.Width, r.fb.Height)

	workers := r.set.WorkerCount()
	if workers <= 1 || len(tris) == 0 {
		for i := range tris {
			r.shadeTriangle(&tris[i], 0, r.fb.Height)
		}
		return strategy
	}

	switch strategy {
	case PixelParallel:
		r.drawPixelParallel(tris, workers)
	case Mixed:
		r.drawMixed(tris, workers)
	default:
		r.drawTriangleParallel(tris, workers)
	}
	return strategy
}

// drawTriangleParallel shards the triangle list into contiguous chunks.
func (r *Rasterizer) drawTriangleParallel(tris []TriangleRecord, workers int) {
	var g errgroup.Group
	chunk := (len(tris) + workers - 1) / workers
	for lo := 0; lo < len(tris); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(tris))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				r.shadeTriangle(&tris[i], 0, r.fb.Height)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never fail
}

// drawPixelParallel rasterizes triangles one at a time, splitting each
// triangle's row span across workers. Triangles too short to split run on
// the calling goroutine.
func (r *Rasterizer) drawPixelParallel(tris []TriangleRecord, workers int) {
	for i := range tris {
		t := &tris[i]
		y0, y1 := r.rowSpan(t)
		if y1-y0 < 2*workers {
			r.shadeTriangle(t, y0, y1)
			continue
		}

		var g errgroup.Group
		band := (y1 - y0 + workers - 1) / workers
		for y := y0; y < y1; y += band {
			lo, hi := y, min(y+band, y1)
			g.Go(func() error {
				r.shadeTriangle(t, lo, hi)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never fail
	}
}

// drawMixed splits the list by screen area and runs the pixel-parallel
// strategy on the large group while the small group runs
// triangle-parallel, both at the same time.
func (r *Rasterizer) drawMixed(tris []TriangleRecord, workers int) {
	threshold := mixedAreaFraction * float64(r.fb.Width) * float64(r.fb.Height)

	var large, small []TriangleRecord
	for i := range tris {
		if screenArea2(&tris[i])/2 >= threshold {
			large = append(large, tris[i])
		} else {
			small = append(small, tris[i])
		}
	}

	half := max(workers/2, 1)
	var g errgroup.Group
	g.Go(func() error {
		r.drawPixelParallel(large, half)
		return nil
	})
	g.Go(func() error {
		r.drawTriangleParallel(small, half)
		return nil
	})
	g.Wait() //nolint:errcheck // workers never fail
}

// rowSpan returns the clamped inclusive-exclusive row range covered by t's
// screen bounding box.
func (r *Rasterizer) rowSpan(t *TriangleRecord) (int, int) {
	minY := math.Min(t.Screen[0].Y, math.Min(t.Screen[1].Y, t.Screen[2].Y))
	maxY := math.Max(t.Screen[0].Y, math.Max(t.Screen[1].Y, t.Screen[2].Y))

	y0 := int(math.Floor(minY))
	y1 := int(math.Ceil(maxY)) + 1
	return max(y0, 0), min(y1, r.fb.Height)
}
