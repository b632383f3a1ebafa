package render

import (
	"math"

	"github.com/softrast/softrast/pkg/math3d"
)

// ShadowMap is a depth-only render of the scene from the primary light,
// queried during shading to decide whether a point is lit. Built once per
// frame before rasterization; read-only afterwards, so pixel workers share
// it freely.
type ShadowMap struct {
	size  int
	depth []float64 // Distance from the light, +Inf when empty

	lightView math3d.Mat4
	lightVP   math3d.Mat4
	fromView  math3d.Mat4 // Camera view space -> world

	bias     float64
	strength float64
}

// NewShadowMap renders worldTris from light's point of view into a
// size x size depth map. cameraView is the camera's view matrix, needed so
// Factor can accept camera view-space positions.
func NewShadowMap(worldTris [][3]math3d.Vec3, light Light, cameraView math3d.Mat4, set *Settings) *ShadowMap {
	if len(worldTris) == 0 {
		return nil
	}

	size := set.ShadowMapSize
	if size <= 0 {
		size = 1024
	}

	center, radius := boundingSphere(worldTris)
	if radius == 0 {
		radius = 1
	}

	dist := set.ShadowDistance
	if dist <= 0 {
		dist = 2*radius + 1
	}

	var eye math3d.Vec3
	if light.Kind == Point {
		eye = light.Position
	} else {
		eye = center.Sub(light.Direction.Scale(dist))
	}

	up := math3d.Up()
	if math.Abs(center.Sub(eye).Normalize().Dot(up)) > 0.99 {
		up = math3d.V3(1, 0, 0)
	}

	sm := &ShadowMap{
		size:     size,
		depth:    make([]float64, size*size),
		bias:     set.ShadowBias,
		strength: set.ShadowStrength,
	}
	for i := range sm.depth {
		sm.depth[i] = math.Inf(1)
	}

	sm.lightView = math3d.LookAt(eye, center, up)
	far := eye.Distance(center) + 2*radius
	proj := math3d.Orthographic(-radius, radius, -radius, radius, 0.1, far)
	sm.lightVP = proj.Mul(sm.lightView)
	sm.fromView = cameraView.Inverse()

	for _, tri := range worldTris {
		sm.rasterize(tri)
	}
	return sm
}

// rasterize splats one world-space triangle into the depth map, keeping
// the nearest distance per texel. Triangles entirely outside the light's
// clip cube are skipped.
func (sm *ShadowMap) rasterize(tri [3]math3d.Vec3) {
	var px, py, pd [3]float64
	outside := 0
	for i, w := range tri {
		clip := sm.lightVP.MulVec4(math3d.V4FromV3(w, 1))
		if math.Abs(clip.W) < wEpsilon {
			return
		}
		ndc := clip.PerspectiveDivide()
		if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
			outside++
		}
		px[i] = (ndc.X + 1) * 0.5 * float64(sm.size)
		py[i] = (1 - ndc.Y) * 0.5 * float64(sm.size)
		pd[i] = -sm.lightView.MulVec3(w).Z
	}
	if outside == 3 {
		return
	}

	area2 := (px[1]-px[0])*(py[2]-py[0]) - (py[1]-py[0])*(px[2]-px[0])
	if math.Abs(area2) < degenerateArea2 {
		return
	}
	invArea2 := 1 / area2

	minX := max(int(math.Floor(math.Min(px[0], math.Min(px[1], px[2])))), 0)
	maxX := min(int(math.Ceil(math.Max(px[0], math.Max(px[1], px[2])))), sm.size-1)
	minY := max(int(math.Floor(math.Min(py[0], math.Min(py[1], py[2])))), 0)
	maxY := min(int(math.Ceil(math.Max(py[0], math.Max(py[1], py[2])))), sm.size-1)

	for y := minY; y <= maxY; y++ {
		cy := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			cx := float64(x) + 0.5

			w0 := ((px[1]-cx)*(py[2]-cy) - (py[1]-cy)*(px[2]-cx)) * invArea2
			w1 := ((px[2]-cx)*(py[0]-cy) - (py[2]-cy)*(px[0]-cx)) * invArea2
			w2 := 1 - w0 - w1
			if w0 < insideEpsilon || w1 < insideEpsilon || w2 < insideEpsilon {
				continue
			}

			d := w0*pd[0] + w1*pd[1] + w2*pd[2]
			idx := y*sm.size + x
			if d < sm.depth[idx] {
				sm.depth[idx] = d
			}
		}
	}
}

// Factor returns the light attenuation for a camera view-space point: 1
// when lit or outside the map, 1-strength when a nearer occluder shadows
// it.
func (sm *ShadowMap) Factor(viewPos math3d.Vec3) float64 {
	world := sm.fromView.MulVec3(viewPos)

	clip := sm.lightVP.MulVec4(math3d.V4FromV3(world, 1))
	if math.Abs(clip.W) < wEpsilon {
		return 1
	}
	ndc := clip.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 {
		return 1
	}

	x := int((ndc.X + 1) * 0.5 * float64(sm.size))
	y := int((1 - ndc.Y) * 0.5 * float64(sm.size))
	if x < 0 || x >= sm.size || y < 0 || y >= sm.size {
		return 1
	}

	stored := sm.depth[y*sm.size+x]
	if math.IsInf(stored, 1) {
		return 1
	}

	current := -sm.lightView.MulVec3(world).Z
	if current-sm.bias > stored {
		return 1 - sm.strength
	}
	return 1
}

// boundingSphere returns a center and radius enclosing all triangles.
func boundingSphere(tris [][3]math3d.Vec3) (math3d.Vec3, float64) {
	lo := tris[0][0]
	hi := tris[0][0]
	for _, tri := range tris {
		for _, v := range tri {
			lo = lo.Min(v)
			hi = hi.Max(v)
		}
	}
	center := lo.Add(hi).Scale(0.5)
	return center, hi.Sub(lo).Len() / 2
}
