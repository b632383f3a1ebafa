// Package config loads TOML scene descriptions and render settings.
package config

import (
	"fmt"
	"image"
	_ "image/jpeg" // Background and texture decoding
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/softrast/softrast/pkg/log"
	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
	"github.com/softrast/softrast/pkg/render"
)

var logger = log.New("config")

// Config is the top-level TOML document: frame output, feature toggles,
// camera, lights and model references.
type Config struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	Output      string `toml:"output"`
	DepthOutput string `toml:"depth_output"`

	Render     RenderConfig     `toml:"render"`
	Camera     CameraConfig     `toml:"camera"`
	Ambient    AmbientConfig    `toml:"ambient"`
	Background BackgroundConfig `toml:"background"`
	Ground     GroundConfig     `toml:"ground"`
	Shadow     ShadowConfig     `toml:"shadow"`
	Lights     []LightConfig    `toml:"lights"`
	Models     []ModelConfig    `toml:"models"`
}

// RenderConfig mirrors the renderer feature toggles.
type RenderConfig struct {
	Projection string `toml:"projection"` // "perspective" or "orthographic"

	ZBuffer  bool `toml:"zbuffer"`
	Lighting bool `toml:"lighting"`
	Phong    bool `toml:"phong"`
	PBR      bool `toml:"pbr"`
	Texture  bool `toml:"texture"`
	Colorize bool `toml:"colorize"`
	Gamma    bool `toml:"gamma"`

	BackfaceCulling    bool    `toml:"backface_culling"`
	Wireframe          bool    `toml:"wireframe"`
	CullSmallTriangles bool    `toml:"cull_small_triangles"`
	MinTriangleArea    float64 `toml:"min_triangle_area"`

	Alpha float64 `toml:"alpha"`

	EnhancedAO     bool    `toml:"enhanced_ao"`
	AOStrength     float64 `toml:"ao_strength"`
	SoftShadows    bool    `toml:"soft_shadows"`
	ShadowStrength float64 `toml:"shadow_strength"`

	Multithreaded bool `toml:"multithreaded"`
	Workers       int  `toml:"workers"`
}

// CameraConfig describes the camera pose and projection.
type CameraConfig struct {
	From [3]float64 `toml:"from"`
	At   [3]float64 `toml:"at"`
	Up   [3]float64 `toml:"up"`

	FOV         float64 `toml:"fov"` // Vertical FOV in degrees
	OrthoWidth  float64 `toml:"ortho_width"`
	OrthoHeight float64 `toml:"ortho_height"`
	Near        float64 `toml:"near"`
	Far         float64 `toml:"far"`
}

// AmbientConfig is the scene-wide ambient light.
type AmbientConfig struct {
	Color     [3]float64 `toml:"color"`
	Intensity float64    `toml:"intensity"`
}

// LightConfig describes one scene light.
type LightConfig struct {
	Kind        string     `toml:"kind"` // "directional" or "point"
	Direction   [3]float64 `toml:"direction"`
	Position    [3]float64 `toml:"position"`
	Color       [3]float64 `toml:"color"`
	Intensity   float64    `toml:"intensity"`
	Attenuation [3]float64 `toml:"attenuation"`
	Disabled    bool       `toml:"disabled"`
}

// ModelConfig references a glTF file with an optional transform.
type ModelConfig struct {
	Path      string     `toml:"path"`
	Translate [3]float64 `toml:"translate"`
	Rotate    [3]float64 `toml:"rotate"` // Euler XYZ in degrees
	Scale     float64    `toml:"scale"`
}

// BackgroundConfig selects how the frame is cleared.
type BackgroundConfig struct {
	Mode   string   `toml:"mode"` // "solid", "gradient" or "image"
	Top    [3]uint8 `toml:"top"`
	Bottom [3]uint8 `toml:"bottom"`
	Image  string   `toml:"image"`
}

// GroundConfig draws a fake ground band at the bottom of the frame.
type GroundConfig struct {
	Enabled bool     `toml:"enabled"`
	Color   [3]uint8 `toml:"color"`
	Height  float64  `toml:"height"`
}

// ShadowConfig controls the shadow-map pass.
type ShadowConfig struct {
	Enabled  bool    `toml:"enabled"`
	Size     int     `toml:"size"`
	Bias     float64 `toml:"bias"`
	Distance float64 `toml:"distance"`
}

// Default returns the configuration used when a field is absent from the
// TOML document.
func Default() *Config {
	return &Config{
		Width:  1280,
		Height: 720,
		Output: "render.png",
		Render: RenderConfig{
			Projection:      "perspective",
			ZBuffer:         true,
			Lighting:        true,
			Phong:           true,
			Texture:         true,
			Gamma:           true,
			BackfaceCulling: true,
			MinTriangleArea: 0.05,
			Alpha:           1,
			AOStrength:      0.5,
			ShadowStrength:  0.5,
			Multithreaded:   true,
		},
		Camera: CameraConfig{
			From:        [3]float64{0, 0, 5},
			Up:          [3]float64{0, 1, 0},
			FOV:         60,
			OrthoWidth:  4,
			OrthoHeight: 3,
			Near:        0.1,
			Far:         1000,
		},
		Ambient: AmbientConfig{
			Color:     [3]float64{1, 1, 1},
			Intensity: 0.1,
		},
		Background: BackgroundConfig{
			Mode:   "gradient",
			Top:    [3]uint8{40, 50, 70},
			Bottom: [3]uint8{10, 12, 18},
		},
		Ground: GroundConfig{
			Color:  [3]uint8{60, 60, 60},
			Height: 0.25,
		},
		Shadow: ShadowConfig{
			Size: 1024,
			Bias: 0.005,
		},
	}
}

// Load reads and decodes path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Settings converts the configuration into renderer settings. baseDir
// anchors relative asset paths.
func (c *Config) Settings(baseDir string) *render.Settings {
	set := render.DefaultSettings()

	switch c.Render.Projection {
	case "perspective":
		set.Projection = render.Perspective
	default:
		// Anything else falls back to orthographic rather than failing.
		set.Projection = render.Orthographic
	}

	set.UseZBuffer = c.Render.ZBuffer
	set.UseLighting = c.Render.Lighting
	set.UsePhong = c.Render.Phong
	set.UsePBR = c.Render.PBR
	set.UseTexture = c.Render.Texture
	set.Colorize = c.Render.Colorize
	set.UseGamma = c.Render.Gamma

	set.BackfaceCulling = c.Render.BackfaceCulling
	set.Wireframe = c.Render.Wireframe
	set.CullSmallTriangles = c.Render.CullSmallTriangles
	set.MinTriangleArea = c.Render.MinTriangleArea
	set.Alpha = c.Render.Alpha

	set.EnhancedAO = c.Render.EnhancedAO
	set.AOStrength = c.Render.AOStrength
	set.SoftShadows = c.Render.SoftShadows
	set.ShadowStrength = c.Render.ShadowStrength

	set.ShadowMapping = c.Shadow.Enabled
	if c.Shadow.Size > 0 {
		set.ShadowMapSize = c.Shadow.Size
	}
	if c.Shadow.Bias > 0 {
		set.ShadowBias = c.Shadow.Bias
	}
	set.ShadowDistance = c.Shadow.Distance

	set.Multithreaded = c.Render.Multithreaded
	set.Workers = c.Render.Workers

	switch c.Background.Mode {
	case "solid":
		set.Background = render.BackgroundSolid
	case "image":
		set.Background = render.BackgroundImage
	default:
		set.Background = render.BackgroundGradient
	}
	set.BackgroundTop = rgb(c.Background.Top)
	set.BackgroundBottom = rgb(c.Background.Bottom)
	if set.Background == render.BackgroundImage && c.Background.Image != "" {
		img, err := loadImage(resolve(baseDir, c.Background.Image))
		if err != nil {
			logger.Warningf("background image: %v", err)
			set.Background = render.BackgroundGradient
		} else {
			set.BackgroundImg = img
		}
	}

	set.GroundPlane = c.Ground.Enabled
	set.GroundColor = rgb(c.Ground.Color)
	set.GroundHeight = c.Ground.Height

	return set
}

// Scene builds the renderable scene: models loaded from disk, camera and
// lights. baseDir anchors relative model paths.
func (c *Config) Scene(baseDir string) (*render.Scene, error) {
	scene := &render.Scene{
		Camera: c.camera(),
		Ambient: render.AmbientLight{
			Color:     vec3(c.Ambient.Color),
			Intensity: c.Ambient.Intensity,
		},
	}

	for _, lc := range c.Lights {
		scene.Lights = append(scene.Lights, lc.light())
	}

	loader := models.GLTFLoader{GenerateNormals: true, GenerateTangents: true}
	for _, mc := range c.Models {
		m, err := loader.Load(resolve(baseDir, mc.Path))
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", mc.Path, err)
		}
		m.Transform = mc.transform()
		scene.Models = append(scene.Models, m)
		logger.Debugf("loaded %s: %d vertices, %d triangles", mc.Path, m.VertexCount(), m.TriangleCount())
	}

	return scene, nil
}

func (c *Config) camera() *render.Camera {
	cam := render.NewCamera()
	cam.SetPose(vec3(c.Camera.From), vec3(c.Camera.At), vec3(c.Camera.Up))
	cam.SetClipPlanes(c.Camera.Near, c.Camera.Far)
	if c.Render.Projection == "perspective" {
		cam.SetPerspective(c.Camera.FOV * degToRad)
	} else {
		cam.SetOrthographic(c.Camera.OrthoWidth, c.Camera.OrthoHeight)
	}
	return cam
}

func (lc LightConfig) light() render.Light {
	var l render.Light
	if lc.Kind == "point" {
		l = render.NewPointLight(vec3(lc.Position), vec3(lc.Color), lc.Intensity, lc.Attenuation)
	} else {
		l = render.NewDirectionalLight(vec3(lc.Direction), vec3(lc.Color), lc.Intensity)
	}
	l.Enabled = !lc.Disabled
	return l
}

func (mc ModelConfig) transform() math3d.Mat4 {
	scale := mc.Scale
	if scale == 0 {
		scale = 1
	}
	m := math3d.ScaleUniform(scale)
	m = math3d.RotateX(mc.Rotate[0] * degToRad).Mul(m)
	m = math3d.RotateY(mc.Rotate[1] * degToRad).Mul(m)
	m = math3d.RotateZ(mc.Rotate[2] * degToRad).Mul(m)
	return math3d.Translate(vec3(mc.Translate)).Mul(m)
}

const degToRad = math.Pi / 180

func vec3(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}

func rgb(a [3]uint8) render.Color {
	return render.RGB(a[0], a[1], a[2])
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
