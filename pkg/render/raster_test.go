package render

import (
	"math"
	"testing"

	"github.com/softrast/softrast/pkg/math3d"
)

// flatTri builds a pre-transformed screen-space triangle shaded as a flat
// color, bypassing lighting.
func flatTri(x0, y0, x1, y1, x2, y2, z float64, c math3d.Vec3) TriangleRecord {
	return TriangleRecord{
		Screen: [3]math3d.Vec3{
			math3d.V3(x0, y0, z), math3d.V3(x1, y1, z), math3d.V3(x2, y2, z),
		},
		ViewPos: [3]math3d.Vec3{
			math3d.V3(0, 0, -z), math3d.V3(1, 0, -z), math3d.V3(0, 1, -z),
		},
		BaseColor: c,
		Alpha:     1,
		View:      ViewUnlit,
	}
}

// rasterSettings renders flat colors with no gamma and a black background.
func rasterSettings() *Settings {
	set := DefaultSettings()
	set.Multithreaded = false
	set.UseGamma = false
	set.Background = BackgroundSolid
	set.BackgroundTop = RGB(0, 0, 0)
	set.GroundPlane = false
	return set
}

func clearedBuffer(set *Settings, w, h int) *FrameBuffer {
	fb := NewFrameBuffer(w, h)
	fb.Clear(set)
	return fb
}

var red = math3d.V3(1, 0, 0)
var green = math3d.V3(0, 1, 0)

func TestRasterizeSingleTriangle(t *testing.T) {
	set := rasterSettings()
	fb := clearedBuffer(set, 64, 64)

	tri := flatTri(10, 10, 50, 10, 10, 50, 5, red)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	inside := [][2]int{{11, 11}, {30, 12}, {12, 30}, {20, 20}}
	for _, p := range inside {
		if got := fb.ColorAt(p[0], p[1]); got != RGB(255, 0, 0) {
			t.Errorf("pixel (%d,%d) = %v, want red", p[0], p[1], got)
		}
		if got := fb.DepthAt(p[0], p[1]); got != 5 {
			t.Errorf("depth (%d,%d) = %v, want 5", p[0], p[1], got)
		}
	}

	outside := [][2]int{{5, 5}, {50, 50}, {60, 10}, {10, 60}}
	for _, p := range outside {
		if got := fb.ColorAt(p[0], p[1]); got != RGB(0, 0, 0) {
			t.Errorf("pixel (%d,%d) = %v, want background", p[0], p[1], got)
		}
		if !math.IsInf(fb.DepthAt(p[0], p[1]), 1) {
			t.Errorf("depth (%d,%d) should stay empty", p[0], p[1])
		}
	}
}

func TestRasterizeCloserTriangleWins(t *testing.T) {
	set := rasterSettings()

	far := flatTri(5, 5, 40, 5, 5, 40, 5, red)
	near := flatTri(10, 10, 35, 10, 10, 35, 2, green)

	// Both submission orders must end with the near triangle on top.
	for _, order := range [][]TriangleRecord{{far, near}, {near, far}} {
		fb := clearedBuffer(set, 64, 64)
		NewRasterizer(fb, set, nil).Draw(order)

		if got := fb.ColorAt(20, 20); got != RGB(0, 255, 0) {
			t.Errorf("overlap pixel = %v, want green", got)
		}
		if got := fb.DepthAt(20, 20); got != 2 {
			t.Errorf("overlap depth = %v, want 2", got)
		}
		// A pixel covered only by the far triangle keeps its color.
		if got := fb.ColorAt(6, 6); got != RGB(255, 0, 0) {
			t.Errorf("far-only pixel = %v, want red", got)
		}
	}
}

func TestRasterizeZBufferDisabled(t *testing.T) {
	set := rasterSettings()
	set.UseZBuffer = false

	near := flatTri(5, 5, 40, 5, 5, 40, 2, green)
	far := flatTri(5, 5, 40, 5, 5, 40, 5, red)

	fb := clearedBuffer(set, 64, 64)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{near, far})

	// Painter order: the far triangle drew last and wins.
	if got := fb.ColorAt(10, 10); got != RGB(255, 0, 0) {
		t.Errorf("pixel = %v, want last-drawn red", got)
	}
}

// gridTris tiles the frame with non-overlapping triangles of distinct
// colors and depths. No contention between triangles means every strategy
// must produce bit-identical planes.
func gridTris(w, h, tile int) []TriangleRecord {
	var tris []TriangleRecord
	i := 0
	for y := 0; y+tile <= h; y += tile {
		for x := 0; x+tile <= w; x += tile {
			fx, fy, ft := float64(x), float64(y), float64(tile)
			z := 1 + float64(i%7)
			c := FaceColor(i)
			tris = append(tris,
				flatTri(fx, fy, fx+ft, fy, fx, fy+ft, z, c),
				flatTri(fx+ft, fy, fx+ft, fy+ft, fx, fy+ft, z, c),
			)
			i++
		}
	}
	return tris
}

func TestStrategiesProduceIdenticalOutput(t *testing.T) {
	const w, h = 96, 96
	set := rasterSettings()
	tris := gridTris(w, h, 8)

	render := func(draw func(*Rasterizer)) (*FrameBuffer, []float64) {
		fb := clearedBuffer(set, w, h)
		draw(NewRasterizer(fb, set, nil))
		return fb, fb.DepthPlane()
	}

	refFB, refDepth := render(func(r *Rasterizer) {
		for i := range tris {
			r.shadeTriangle(&tris[i], 0, h)
		}
	})

	strategies := map[string]func(*Rasterizer){
		"triangle-parallel": func(r *Rasterizer) { r.drawTriangleParallel(tris, 4) },
		"pixel-parallel":    func(r *Rasterizer) { r.drawPixelParallel(tris, 4) },
		"mixed":             func(r *Rasterizer) { r.drawMixed(tris, 4) },
	}

	for name, draw := range strategies {
		t.Run(name, func(t *testing.T) {
			fb, depth := render(draw)

			for i := range refDepth {
				if depth[i] != refDepth[i] {
					t.Fatalf("depth plane differs at %d: %v vs %v", i, depth[i], refDepth[i])
				}
			}
			got := fb.ColorBytes()
			want := refFB.ColorBytes()
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("color plane differs at byte %d", i)
				}
			}
		})
	}
}

func TestRasterizeTwiceMatchesOnce(t *testing.T) {
	set := rasterSettings()
	tri := flatTri(10, 10, 50, 10, 10, 50, 5, red)

	once := clearedBuffer(set, 64, 64)
	NewRasterizer(once, set, nil).Draw([]TriangleRecord{tri})

	twice := clearedBuffer(set, 64, 64)
	NewRasterizer(twice, set, nil).Draw([]TriangleRecord{tri, tri})

	wantDepth := once.DepthPlane()
	for i, d := range twice.DepthPlane() {
		if d != wantDepth[i] {
			t.Fatalf("depth plane differs at %d after duplicate submission", i)
		}
	}
	want := once.ColorBytes()
	for i, c := range twice.ColorBytes() {
		if c != want[i] {
			t.Fatalf("color plane differs at byte %d after duplicate submission", i)
		}
	}
}

func TestPerspectiveDepthRoundTrip(t *testing.T) {
	const w, h = 200, 200
	set := rasterSettings()

	proj := math3d.Perspective(math.Pi/2, 1, 0.1, 100)
	pts := []math3d.Vec3{
		math3d.V3(-1.5, -1.5, -2),
		math3d.V3(1.5, -1.5, -4),
		math3d.V3(0, 1.5, -3),
		// An interior point on the triangle's plane (weights 0.4/0.3/0.3).
		math3d.V3(-0.15, -0.6, -2.9),
	}
	geo := TransformGeometry(pts, nil, math3d.Identity(), math3d.Identity(), proj, w, h, false, 1)

	tri := TriangleRecord{
		Screen:      [3]math3d.Vec3{geo.Screen[0], geo.Screen[1], geo.Screen[2]},
		ViewPos:     [3]math3d.Vec3{pts[0], pts[1], pts[2]},
		BaseColor:   red,
		Alpha:       1,
		View:        ViewUnlit,
		Perspective: true,
	}

	fb := clearedBuffer(set, w, h)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	// The rasterized depth at the point's pixel must match the depth of
	// the directly transformed point, up to sub-pixel interpolation error.
	px, py := int(geo.Screen[3].X), int(geo.Screen[3].Y)
	got := fb.DepthAt(px, py)
	want := geo.Screen[3].Z
	if math.Abs(got-want) > 0.05 {
		t.Errorf("depth at (%d,%d) = %v, want %v from direct transform", px, py, got, want)
	}
}

func TestPerspectiveEdgePixelFallsBackToLinearDepth(t *testing.T) {
	set := rasterSettings()

	// The inside test tolerates slightly negative barycentrics on shared
	// edges. With an extreme depth spread the interpolated 1/z at such a
	// pixel can go negative; depth must then fall back to linear
	// interpolation instead of dropping the pixel.
	tri := TriangleRecord{
		Screen: [3]math3d.Vec3{
			math3d.V3(0, 0, 1e-6),
			math3d.V3(9.9995, 0, 1000),
			math3d.V3(0, 9.9995, 1000),
		},
		BaseColor:   red,
		Alpha:       1,
		View:        ViewUnlit,
		Perspective: true,
	}

	fb := clearedBuffer(set, 16, 16)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	// Pixel (5,4) sits a hair outside the hypotenuse, inside the edge
	// tolerance, and its 1/z sum is negative.
	got := fb.DepthAt(5, 4)
	if math.IsInf(got, 1) {
		t.Fatal("edge pixel dropped instead of taking linear depth")
	}
	if math.Abs(got-1000) > 1 {
		t.Errorf("edge pixel depth = %v, want ~1000 from linear interpolation", got)
	}
}

func TestRasterizeWireframe(t *testing.T) {
	set := rasterSettings()
	set.Wireframe = true

	fb := clearedBuffer(set, 64, 64)
	tri := flatTri(10, 10, 50, 10, 10, 50, 5, red)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	// Interior stays background, the edge gets drawn.
	if got := fb.ColorAt(20, 20); got != RGB(0, 0, 0) {
		t.Errorf("interior pixel = %v, want background", got)
	}
	if got := fb.ColorAt(20, 10); got != RGB(255, 0, 0) {
		t.Errorf("edge pixel = %v, want red", got)
	}
}

func TestRasterizeAlphaBlend(t *testing.T) {
	set := rasterSettings()

	tri := flatTri(10, 10, 50, 10, 10, 50, 5, red)
	tri.Alpha = 0.5

	fb := clearedBuffer(set, 64, 64)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	got := fb.ColorAt(20, 20)
	if got.R < 126 || got.R > 128 || got.G != 0 || got.B != 0 {
		t.Errorf("blended pixel = %v, want ~half red over black", got)
	}
}

func TestRasterizeTransparentTriangleSkipped(t *testing.T) {
	set := rasterSettings()

	tri := flatTri(10, 10, 50, 10, 10, 50, 5, red)
	tri.Alpha = 0.005

	fb := clearedBuffer(set, 64, 64)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	if !math.IsInf(fb.DepthAt(20, 20), 1) {
		t.Error("near-invisible triangle should not touch the depth plane")
	}
}

func TestRasterizeDegenerateTriangle(t *testing.T) {
	set := rasterSettings()

	// All three vertices on one line.
	tri := flatTri(10, 10, 20, 20, 30, 30, 5, red)

	fb := clearedBuffer(set, 64, 64)
	NewRasterizer(fb, set, nil).Draw([]TriangleRecord{tri})

	if !math.IsInf(fb.DepthAt(20, 20), 1) {
		t.Error("degenerate triangle should rasterize nothing")
	}
}

func BenchmarkRasterizeGrid(b *testing.B) {
	const w, h = 256, 256
	set := rasterSettings()
	tris := gridTris(w, h, 16)
	fb := NewFrameBuffer(w, h)

	for b.Loop() {
		fb.Clear(set)
		NewRasterizer(fb, set, nil).Draw(tris)
	}
}
