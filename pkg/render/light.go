package render

import (
	"github.com/softrast/softrast/pkg/math3d"
)

// LightKind discriminates directional from point lights.
type LightKind int

const (
	// Directional lights shine along a constant direction.
	Directional LightKind = iota
	// Point lights radiate from a position with quadratic falloff.
	Point
)

// Light is a single scene light. Direction points from the light toward
// the scene. Attenuation holds the constant/linear/quadratic coefficients
// for point lights.
type Light struct {
	Kind        LightKind
	Direction   math3d.Vec3
	Position    math3d.Vec3
	Color       math3d.Vec3 // Linear RGB
	Intensity   float64
	Attenuation [3]float64
	Enabled     bool
}

// NewDirectionalLight creates an enabled directional light.
func NewDirectionalLight(dir, color math3d.Vec3, intensity float64) Light {
	return Light{
		Kind:      Directional,
		Direction: dir.Normalize(),
		Color:     color,
		Intensity: intensity,
		Enabled:   true,
	}
}

// NewPointLight creates an enabled point light with the given attenuation.
func NewPointLight(pos, color math3d.Vec3, intensity float64, attenuation [3]float64) Light {
	if attenuation == [3]float64{} {
		attenuation = [3]float64{1, 0, 0}
	}
	return Light{
		Kind:        Point,
		Position:    pos,
		Color:       color,
		Intensity:   intensity,
		Attenuation: attenuation,
		Enabled:     true,
	}
}

// InViewSpace returns a copy of the light with its geometry transformed by
// the view matrix, so shading can work entirely in view space.
func (l Light) InViewSpace(view math3d.Mat4) Light {
	out := l
	switch l.Kind {
	case Directional:
		out.Direction = view.MulVec3Dir(l.Direction).Normalize()
	case Point:
		out.Position = view.MulVec3(l.Position)
	}
	return out
}

// Sample returns the unit direction from p toward the light and the
// attenuated radiance arriving at p. Both p and the light must share one
// coordinate space.
func (l Light) Sample(p math3d.Vec3) (dir, radiance math3d.Vec3) {
	switch l.Kind {
	case Point:
		toLight := l.Position.Sub(p)
		d := toLight.Len()
		if d == 0 {
			return math3d.Up(), l.Color.Scale(l.Intensity)
		}
		att := l.Attenuation[0] + l.Attenuation[1]*d + l.Attenuation[2]*d*d
		if att <= 0 {
			att = 1
		}
		return toLight.Scale(1 / d), l.Color.Scale(l.Intensity / att)
	default:
		return l.Direction.Negate().Normalize(), l.Color.Scale(l.Intensity)
	}
}

// AmbientLight is the scene-wide ambient term.
type AmbientLight struct {
	Color     math3d.Vec3
	Intensity float64
}

// Radiance returns the ambient contribution as linear RGB.
func (a AmbientLight) Radiance() math3d.Vec3 {
	return a.Color.Scale(a.Intensity)
}
