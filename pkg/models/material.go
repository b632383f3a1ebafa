package models

import (
	"image"

	"github.com/softrast/softrast/pkg/math3d"
)

// Material is one shared property set supporting two shading views.
// The Blinn-Phong view reads Diffuse/Specular/Shininess/AmbientFactor; the
// PBR view reads BaseColor/Metallic/Roughness/Occlusion/Emissive. Which
// view applies is decided at shading time, not stored here.
type Material struct {
	Name string

	// Blinn-Phong view.
	Diffuse       math3d.Vec3 // Linear RGB
	Specular      math3d.Vec3
	Shininess     float64
	AmbientFactor float64

	// PBR (Cook-Torrance) view over the same material.
	BaseColor  math3d.Vec3 // Linear RGB
	Metallic   float64
	Roughness  float64
	Occlusion  float64 // Baked ambient occlusion multiplier
	Emissive   math3d.Vec3
	Subsurface float64 // Additive subsurface term for non-metals

	Alpha float64 // Material opacity in [0,1]

	// Optional texture handles (decoded images, nil if absent).
	BaseTexture image.Image
	NormalMap   image.Image
}

// DefaultMaterial returns a neutral gray material usable under either view.
func DefaultMaterial() *Material {
	gray := math3d.V3(0.5, 0.5, 0.5)
	return &Material{
		Name:          "default",
		Diffuse:       gray,
		Specular:      math3d.V3(0.04, 0.04, 0.04),
		Shininess:     32,
		AmbientFactor: 1,
		BaseColor:     gray,
		Metallic:      0,
		Roughness:     0.8,
		Occlusion:     1,
		Alpha:         1,
	}
}
