package render

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/softrast/softrast/pkg/math3d"
)

// Geometry holds the transformed vertex streams for one object, in the
// original vertex order: screen pixel coordinates with view-space depth,
// view-space positions, and view-space normals.
type Geometry struct {
	// Screen holds pixel X/Y and the positive view-space distance in Z.
	Screen  []math3d.Vec3
	ViewPos []math3d.Vec3
	Normal  []math3d.Vec3
}

// wSentinel replaces the projected position of vertices whose clip-space w
// is numerically zero; such vertices land far outside any screen bound and
// are rejected pixel by pixel rather than failing the frame.
const wSentinel = -1e12

// wEpsilon is the near-zero guard for the perspective division.
const wEpsilon = 1e-9

// TransformGeometry projects model-space positions and normals into screen
// space for a width x height target. parallel selects the data-parallel
// variant; both variants run the same per-vertex code and produce
// bit-identical output.
func TransformGeometry(positions, normals []math3d.Vec3, model, view, proj math3d.Mat4, width, height int, parallel bool, workers int) *Geometry {
	geo := &Geometry{
		Screen:  make([]math3d.Vec3, len(positions)),
		ViewPos: make([]math3d.Vec3, len(positions)),
		Normal:  make([]math3d.Vec3, len(positions)),
	}

	modelView := view.Mul(model)
	mvp := proj.Mul(modelView)
	normalMat := math3d.NormalMatrix(modelView)

	transformRange := func(lo, hi int) {
		w := float64(width)
		h := float64(height)
		for i := lo; i < hi; i++ {
			viewPos := modelView.MulVec3(positions[i])
			geo.ViewPos[i] = viewPos

			if i < len(normals) {
				geo.Normal[i] = normalMat.MulVec3(normals[i]).Normalize()
			}

			clip := mvp.MulVec4(math3d.V4FromV3(positions[i], 1))
			if math.Abs(clip.W) < wEpsilon {
				geo.Screen[i] = math3d.V3(wSentinel, wSentinel, math.Inf(1))
				continue
			}

			ndc := clip.PerspectiveDivide()
			geo.Screen[i] = math3d.V3(
				(ndc.X+1)*0.5*w,
				(1-ndc.Y)*0.5*h, // NDC +1 maps to pixel row 0
				-viewPos.Z,      // positive distance in front of the camera
			)
		}
	}

	if !parallel || workers <= 1 || len(positions) < 2*workers {
		transformRange(0, len(positions))
		return geo
	}

	var g errgroup.Group
	chunk := (len(positions) + workers - 1) / workers
	for lo := 0; lo < len(positions); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(positions))
		g.Go(func() error {
			transformRange(lo, hi)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never fail

	return geo
}
