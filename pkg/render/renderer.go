package render

import (
	"time"

	"github.com/softrast/softrast/pkg/log"
	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
)

var logger = log.New("render")

// Scene is everything a frame renders: models with their transforms, the
// camera, and the lights.
type Scene struct {
	Models  []*models.Model
	Camera  *Camera
	Lights  []Light
	Ambient AmbientLight
}

// FrameStats summarizes one rendered frame.
type FrameStats struct {
	Triangles int // Triangles surviving assembly
	Strategy  Strategy
	Elapsed   time.Duration
}

// Renderer drives the full frame pipeline: clear, optional shadow pass,
// geometry transform, triangle assembly, parallel rasterization. Reusable
// across frames; the texture cache persists between them.
type Renderer struct {
	Set      *Settings
	textures *TextureCache
}

// NewRenderer creates a renderer with the given settings.
func NewRenderer(set *Settings) *Renderer {
	if set == nil {
		set = DefaultSettings()
	}
	return &Renderer{
		Set:      set,
		textures: NewTextureCache(),
	}
}

// RenderFrame renders scene into fb and returns per-frame statistics.
func (r *Renderer) RenderFrame(scene *Scene, fb *FrameBuffer) FrameStats {
	start := time.Now()
	set := r.Set

	cam := scene.Camera
	if cam == nil {
		cam = NewCamera()
	}
	cam.SetAspectRatio(float64(fb.Width) / float64(fb.Height))
	set.Projection = cam.Projection()

	fb.Clear(set)

	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()

	vsLights := make([]Light, 0, len(scene.Lights))
	for _, l := range scene.Lights {
		if l.Enabled {
			vsLights = append(vsLights, l.InViewSpace(view))
		}
	}

	var shadow *ShadowMap
	if set.ShadowMapping {
		if key, ok := firstEnabledLight(scene.Lights); ok {
			shadowStart := time.Now()
			shadow = r.buildShadowMap(scene, key, view)
			logger.Debugf("shadow pass: %v", time.Since(shadowStart))
		}
	}

	for _, m := range scene.Models {
		r.textures.Prewarm(m.Materials)
	}

	var tris []TriangleRecord
	baseFace := 0
	parallel := set.WorkerCount() > 1

	transformStart := time.Now()
	for _, m := range scene.Models {
		positions, normals, offsets := flattenModel(m)
		geo := TransformGeometry(positions, normals, m.Transform, view, proj,
			fb.Width, fb.Height, parallel, set.WorkerCount())

		recs := AssembleTriangles(AssembleInput{
			Model:         m,
			Geo:           geo,
			Offsets:       offsets,
			ModelView:     view.Mul(m.Transform),
			Set:           set,
			Lights:        vsLights,
			Ambient:       scene.Ambient,
			Textures:      r.textures,
			BaseFaceIndex: baseFace,
		})
		tris = append(tris, recs...)
		baseFace += m.TriangleCount()
	}
	logger.Debugf("transform+assembly: %v, %d triangles", time.Since(transformStart), len(tris))

	rasterStart := time.Now()
	strategy := NewRasterizer(fb, set, shadow).Draw(tris)
	logger.Debugf("raster (%s): %v", strategy, time.Since(rasterStart))

	return FrameStats{
		Triangles: len(tris),
		Strategy:  strategy,
		Elapsed:   time.Since(start),
	}
}

// firstEnabledLight returns the light the shadow pass renders from:
// the first enabled one, in scene order.
func firstEnabledLight(lights []Light) (Light, bool) {
	for _, l := range lights {
		if l.Enabled {
			return l, true
		}
	}
	return Light{}, false
}

// buildShadowMap gathers world-space triangles from every model and
// renders the depth map from the given light.
func (r *Renderer) buildShadowMap(scene *Scene, light Light, view math3d.Mat4) *ShadowMap {
	var tris [][3]math3d.Vec3
	for _, m := range scene.Models {
		for _, mesh := range m.Meshes {
			for _, face := range mesh.Faces {
				if face.V[0] >= len(mesh.Vertices) || face.V[1] >= len(mesh.Vertices) || face.V[2] >= len(mesh.Vertices) {
					continue
				}
				tris = append(tris, [3]math3d.Vec3{
					m.Transform.MulVec3(mesh.Vertices[face.V[0]].Position),
					m.Transform.MulVec3(mesh.Vertices[face.V[1]].Position),
					m.Transform.MulVec3(mesh.Vertices[face.V[2]].Position),
				})
			}
		}
	}
	return NewShadowMap(tris, light, view, r.Set)
}

// flattenModel concatenates every mesh's vertex streams and records each
// mesh's base offset into the combined arrays.
func flattenModel(m *models.Model) (positions, normals []math3d.Vec3, offsets []int) {
	total := m.VertexCount()
	positions = make([]math3d.Vec3, 0, total)
	normals = make([]math3d.Vec3, 0, total)
	offsets = make([]int, len(m.Meshes))

	for i, mesh := range m.Meshes {
		offsets[i] = len(positions)
		for _, v := range mesh.Vertices {
			positions = append(positions, v.Position)
			normals = append(normals, v.Normal)
		}
	}
	return positions, normals, offsets
}
