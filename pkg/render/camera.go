package render

import (
	"math"

	"github.com/softrast/softrast/pkg/math3d"
)

// Camera holds a look-from/look-at pose and either a perspective or an
// orthographic projection. Matrices are recomputed on every call: a frame
// asks for them a handful of times, so caching them behind dirty flags
// would buy nothing and invite hidden mutation through shared references.
type Camera struct {
	From math3d.Vec3
	At   math3d.Vec3
	Up   math3d.Vec3

	projection Projection
	fov        float64 // Vertical FOV in radians (perspective)
	orthoW     float64 // View volume width (orthographic)
	orthoH     float64
	aspect     float64
	near, far  float64
}

// NewCamera creates a camera at (0,0,5) looking at the origin with a
// 60 degree perspective projection.
func NewCamera() *Camera {
	return &Camera{
		From:       math3d.V3(0, 0, 5),
		At:         math3d.Zero3(),
		Up:         math3d.Up(),
		projection: Perspective,
		fov:        math.Pi / 3,
		orthoW:     4,
		orthoH:     3,
		aspect:     16.0 / 9.0,
		near:       0.1,
		far:        1000,
	}
}

// SetPose sets the camera position, target and up vector.
func (c *Camera) SetPose(from, at, up math3d.Vec3) {
	c.From = from
	c.At = at
	c.Up = up
}

// SetPerspective switches to perspective projection with the given
// vertical FOV (radians).
func (c *Camera) SetPerspective(fov float64) {
	c.projection = Perspective
	c.fov = fov
}

// SetOrthographic switches to orthographic projection with the given view
// volume extents.
func (c *Camera) SetOrthographic(width, height float64) {
	c.projection = Orthographic
	c.orthoW = width
	c.orthoH = height
}

// SetAspectRatio sets the width/height ratio used by the perspective
// projection.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.aspect = aspect
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.near = near
	c.far = far
}

// Projection returns the current projection kind.
func (c *Camera) Projection() Projection {
	return c.projection
}

// ViewMatrix returns the view matrix for the current pose.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookAt(c.From, c.At, c.Up)
}

// ProjectionMatrix returns the projection matrix for the current
// parameters.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projection == Orthographic {
		hw, hh := c.orthoW/2, c.orthoH/2
		return math3d.Orthographic(-hw, hw, -hh, hh, c.near, c.far)
	}
	return math3d.Perspective(c.fov, c.aspect, c.near, c.far)
}

// ViewProjectionMatrix returns the combined projection * view matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}
