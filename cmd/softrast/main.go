// softrast - CPU software rasterizer
// Renders TOML-described scenes of glTF models to PNG, with an optional
// live terminal preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/softrast/softrast/pkg/config"
	"github.com/softrast/softrast/pkg/log"
	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
	"github.com/softrast/softrast/pkg/render"
)

var (
	output    = flag.String("o", "", "Output PNG path (overrides config)")
	depthOut  = flag.String("depth", "", "Depth map PNG path")
	width     = flag.Int("width", 0, "Frame width (overrides config)")
	height    = flag.Int("height", 0, "Frame height (overrides config)")
	preview   = flag.Bool("preview", false, "Show the render in the terminal instead of writing files")
	turntable = flag.Int("turntable", 0, "Render N orbiting frames (render_000.png ...)")
	targetFPS = flag.Int("fps", 30, "Preview FPS")
	verbose   = flag.Bool("v", false, "Debug logging")
)

var logger = log.New("softrast")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "softrast - CPU software rasterizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: softrast [options] <scene.toml|model.glb>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if *verbose {
		log.SetLevel(log.Debug)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, scene, err := loadInput(path)
	if err != nil {
		return err
	}

	if *output != "" {
		cfg.Output = *output
	}
	if *depthOut != "" {
		cfg.DepthOutput = *depthOut
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}

	set := cfg.Settings(filepath.Dir(path))
	renderer := render.NewRenderer(set)

	if *preview {
		return runPreview(renderer, scene)
	}
	if *turntable > 0 {
		return runTurntable(renderer, scene, cfg, *turntable)
	}

	fb := render.NewFrameBuffer(cfg.Width, cfg.Height)
	stats := renderer.RenderFrame(scene, fb)
	logger.Infof("rendered %d triangles (%s) in %v", stats.Triangles, stats.Strategy, stats.Elapsed)

	if err := fb.SavePNG(cfg.Output); err != nil {
		return err
	}
	logger.Infof("wrote %s", cfg.Output)

	if cfg.DepthOutput != "" {
		if err := fb.SaveDepthPNG(cfg.DepthOutput); err != nil {
			return err
		}
		logger.Infof("wrote %s", cfg.DepthOutput)
	}
	return nil
}

// loadInput accepts either a TOML scene description or a bare glTF model,
// which renders with default settings and a single key light.
func loadInput(path string) (*config.Config, *render.Scene, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		scene, err := cfg.Scene(filepath.Dir(path))
		if err != nil {
			return nil, nil, err
		}
		return cfg, scene, nil

	case ".glb", ".gltf":
		loader := models.GLTFLoader{GenerateNormals: true, GenerateTangents: true}
		m, err := loader.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load model: %w", err)
		}
		fitModel(m)

		cfg := config.Default()
		scene := &render.Scene{
			Models: []*models.Model{m},
			Camera: render.NewCamera(),
			Lights: []render.Light{
				render.NewDirectionalLight(math3d.V3(-0.5, -1, -0.3), math3d.V3(1, 1, 1), 1),
			},
			Ambient: render.AmbientLight{Color: math3d.V3(1, 1, 1), Intensity: 0.1},
		}
		return cfg, scene, nil

	default:
		return nil, nil, fmt.Errorf("unsupported input: %s (use .toml, .glb or .gltf)", path)
	}
}

// fitModel centers the model and scales it to a 2-unit box so the default
// camera frames it.
func fitModel(m *models.Model) {
	size := m.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim == 0 {
		return
	}
	scale := 2.0 / maxDim
	m.Transform = math3d.ScaleUniform(scale).Mul(math3d.Translate(m.Center().Negate()))
}

// runTurntable renders count frames orbiting the camera target, with the
// orbit angle spring-eased so the sequence starts fast and settles.
func runTurntable(renderer *render.Renderer, scene *render.Scene, cfg *config.Config, count int) error {
	fb := render.NewFrameBuffer(cfg.Width, cfg.Height)

	base := filepath.Base(cfg.Output)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Dir(cfg.Output)

	orbit := newOrbit(scene.Camera, count)
	for i := range count {
		orbit.step()

		stats := renderer.RenderFrame(scene, fb)
		name := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", stem, i))
		if err := fb.SavePNG(name); err != nil {
			return err
		}
		logger.Infof("frame %d/%d: %d triangles (%s) in %v", i+1, count, stats.Triangles, stats.Strategy, stats.Elapsed)
	}
	return nil
}

// runPreview renders an endless turntable into the terminal until Esc,
// q or Ctrl+C.
func runPreview(renderer *render.Renderer, scene *render.Scene) error {
	term, err := render.NewTerminalPreview()
	if err != nil {
		return err
	}
	defer term.Close()

	w, h := term.FrameSize()
	fb := render.NewFrameBuffer(w, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	go func() {
		for ev := range term.Events() {
			if key, ok := ev.(uv.KeyPressEvent); ok {
				if key.MatchString("escape") || key.MatchString("q") || key.MatchString("ctrl+c") {
					cancel()
					return
				}
			}
		}
	}()

	orbit := newOrbit(scene.Camera, *targetFPS*8)
	frameTime := time.Second / time.Duration(*targetFPS)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		orbit.advance()
		renderer.RenderFrame(scene, fb)
		if err := term.Show(fb); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		if elapsed := time.Since(start); elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
	}
}

// orbit animates the camera around its target. The angle chases a full
// revolution through a critically damped spring, so motion eases in and
// out instead of stepping linearly.
type orbit struct {
	cam    *render.Camera
	radius float64
	elev   float64 // Height above the target
	angle0 float64

	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newOrbit(cam *render.Camera, frames int) *orbit {
	offset := cam.From.Sub(cam.At)
	fps := max(frames, 1)
	return &orbit{
		cam:    cam,
		radius: math.Hypot(offset.X, offset.Z),
		elev:   offset.Y,
		angle0: math.Atan2(offset.X, offset.Z),
		spring: harmonica.NewSpring(harmonica.FPS(fps), 0.8, 1.0),
	}
}

// step eases the angle toward a full revolution across the sequence.
func (o *orbit) step() {
	o.pos, o.vel = o.spring.Update(o.pos, o.vel, 2*math.Pi)
	o.apply()
}

// advance keeps orbiting indefinitely for the live preview.
func (o *orbit) advance() {
	o.pos, o.vel = o.spring.Update(o.pos, o.vel, o.pos+math.Pi/2)
	o.apply()
}

func (o *orbit) apply() {
	a := o.angle0 + o.pos
	from := math3d.V3(
		o.cam.At.X+o.radius*math.Sin(a),
		o.cam.At.Y+o.elev,
		o.cam.At.Z+o.radius*math.Cos(a),
	)
	o.cam.SetPose(from, o.cam.At, math3d.Up())
}
