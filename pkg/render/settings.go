package render

import (
	"image"
	"runtime"
)

// Projection selects how view space maps to the screen.
type Projection int

const (
	// Perspective projects through a vertical field of view.
	Perspective Projection = iota
	// Orthographic projects through a fixed view volume.
	Orthographic
)

// BackgroundMode selects how the color buffer is initialized.
type BackgroundMode int

const (
	// BackgroundSolid fills with the top background color.
	BackgroundSolid BackgroundMode = iota
	// BackgroundGradient blends top to bottom background colors by row.
	BackgroundGradient
	// BackgroundImage composites a static image scaled to the frame.
	BackgroundImage
)

// Settings is the per-frame feature bundle handed to the renderer.
// Everything here is validated by the surrounding layers; the core treats
// the values as trusted.
type Settings struct {
	Projection Projection

	UseZBuffer  bool
	UseLighting bool
	UsePhong    bool // Per-pixel Blinn-Phong
	UsePBR      bool // Per-pixel Cook-Torrance; wins over UsePhong
	UseTexture  bool
	Colorize    bool // Procedural per-face colors
	UseGamma    bool

	BackfaceCulling    bool
	Wireframe          bool
	CullSmallTriangles bool
	MinTriangleArea    float64 // Screen-space area threshold in px²

	Alpha float64 // Global opacity multiplier

	EnhancedAO     bool
	AOStrength     float64
	SoftShadows    bool
	ShadowStrength float64

	ShadowMapping  bool
	ShadowMapSize  int
	ShadowBias     float64
	ShadowDistance float64 // Light offset from scene center; 0 = auto

	Background       BackgroundMode
	BackgroundTop    Color
	BackgroundBottom Color
	BackgroundImg    image.Image

	GroundPlane  bool
	GroundColor  Color
	GroundHeight float64 // Fraction of image height covered from the bottom

	Multithreaded bool
	Workers       int // 0 = NumCPU
}

// DefaultSettings returns the settings used when no config overrides them.
func DefaultSettings() *Settings {
	return &Settings{
		Projection:       Perspective,
		UseZBuffer:       true,
		UseLighting:      true,
		UsePhong:         true,
		UseTexture:       true,
		UseGamma:         true,
		BackfaceCulling:  true,
		MinTriangleArea:  0.05,
		Alpha:            1,
		AOStrength:       0.5,
		ShadowStrength:   0.5,
		ShadowMapSize:    1024,
		ShadowBias:       0.005,
		Background:       BackgroundGradient,
		BackgroundTop:    RGB(40, 50, 70),
		BackgroundBottom: RGB(10, 12, 18),
		GroundColor:      RGB(60, 60, 60),
		GroundHeight:     0.25,
		Multithreaded:    true,
	}
}

// WorkerCount resolves the effective worker count for parallel regions.
func (s *Settings) WorkerCount() int {
	if !s.Multithreaded {
		return 1
	}
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}
