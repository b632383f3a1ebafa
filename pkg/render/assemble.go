package render

import (
	"image"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
)

// MaterialView selects how a material's shared property set is interpreted
// at shading time.
type MaterialView int

const (
	// ViewUnlit uses the resolved base color without lighting.
	ViewUnlit MaterialView = iota
	// ViewBlinnPhong reads diffuse/specular/shininess.
	ViewBlinnPhong
	// ViewPBR reads base color/metallic/roughness (Cook-Torrance).
	ViewPBR
)

// TriangleRecord is the self-contained unit of work for rasterization.
// Built fresh each frame, never mutated afterwards, and consumed read-only
// by many parallel workers.
type TriangleRecord struct {
	Screen  [3]math3d.Vec3 // Pixel X/Y, view-space distance in Z
	ViewPos [3]math3d.Vec3
	Normal  [3]math3d.Vec3
	UV      [3]math3d.Vec2

	Tangent   [3]math3d.Vec3 // View space, for normal mapping
	Bitangent [3]math3d.Vec3

	HasNormals  bool
	HasUV       bool
	HasTangents bool

	BaseColor math3d.Vec3 // Resolved linear color (texture fallback)
	Alpha     float64
	Texture   *Texture // nil unless an image texture applies
	NormalMap *Texture

	Material *models.Material // nil for the gray fallback
	View     MaterialView

	Lights  []Light // View-space, enabled lights only (shared, read-only)
	Ambient AmbientLight

	Perspective bool
	FaceIndex   int // Global face index, stable across frames
}

// TextureCache maps decoded material images to engine textures so each
// image is converted once per run. Prewarm before any parallel phase;
// lookups afterwards are read-only.
type TextureCache struct {
	base   map[image.Image]*Texture
	normal map[image.Image]*Texture
}

// NewTextureCache creates an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{
		base:   make(map[image.Image]*Texture),
		normal: make(map[image.Image]*Texture),
	}
}

// Prewarm converts every texture referenced by mats.
func (tc *TextureCache) Prewarm(mats []*models.Material) {
	for _, m := range mats {
		if m == nil {
			continue
		}
		if m.BaseTexture != nil {
			tc.Base(m.BaseTexture)
		}
		if m.NormalMap != nil {
			tc.Normal(m.NormalMap)
		}
	}
}

// Base returns the linear color texture for img, converting on first use.
func (tc *TextureCache) Base(img image.Image) *Texture {
	if img == nil {
		return nil
	}
	if t, ok := tc.base[img]; ok {
		return t
	}
	t := TextureFromImage(img, true)
	t.Filter = FilterBilinear
	tc.base[img] = t
	return t
}

// Normal returns the normal-map texture for img (no sRGB decode).
func (tc *TextureCache) Normal(img image.Image) *Texture {
	if img == nil {
		return nil
	}
	if t, ok := tc.normal[img]; ok {
		return t
	}
	t := TextureFromImage(img, false)
	t.Filter = FilterBilinear
	tc.normal[img] = t
	return t
}

// AssembleInput bundles the frame-scoped state triangle assembly reads.
type AssembleInput struct {
	Model     *models.Model
	Geo       *Geometry
	Offsets   []int // Per-mesh base index into the Geo streams
	ModelView math3d.Mat4

	Set      *Settings
	Lights   []Light // View-space, enabled only
	Ambient  AmbientLight
	Textures *TextureCache

	// BaseFaceIndex offsets this model's global face indices so procedural
	// face colors stay stable when multiple models render per frame.
	BaseFaceIndex int
}

// AssembleTriangles walks every mesh's index triples and emits one
// TriangleRecord per surviving triangle. Malformed triangles (indices past
// the transformed arrays) are skipped silently; backface and small-area
// culling apply when enabled. Meshes are processed in parallel; results
// keep mesh order.
func AssembleTriangles(in AssembleInput) []TriangleRecord {
	perMesh := make([][]TriangleRecord, len(in.Model.Meshes))

	faceBase := make([]int, len(in.Model.Meshes))
	next := in.BaseFaceIndex
	for i, mesh := range in.Model.Meshes {
		faceBase[i] = next
		next += len(mesh.Faces)
	}

	workers := in.Set.WorkerCount()
	if workers <= 1 || len(in.Model.Meshes) == 1 {
		for i := range in.Model.Meshes {
			perMesh[i] = assembleMesh(in, i, faceBase[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range in.Model.Meshes {
			g.Go(func() error {
				perMesh[i] = assembleMesh(in, i, faceBase[i])
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never fail
	}

	var out []TriangleRecord
	for _, recs := range perMesh {
		out = append(out, recs...)
	}
	return out
}

// assembleMesh emits the records of one mesh.
func assembleMesh(in AssembleInput, meshIdx, faceBase int) []TriangleRecord {
	mesh := in.Model.Meshes[meshIdx]
	offset := in.Offsets[meshIdx]
	geo := in.Geo
	set := in.Set

	view := ViewUnlit
	if set.UseLighting {
		switch {
		case set.UsePBR:
			view = ViewPBR
		case set.UsePhong:
			view = ViewBlinnPhong
		}
	}

	records := make([]TriangleRecord, 0, len(mesh.Faces))

	for fi, face := range mesh.Faces {
		i0 := offset + face.V[0]
		i1 := offset + face.V[1]
		i2 := offset + face.V[2]

		// Defensive bound check: malformed triangles are dropped, never
		// surfaced as errors.
		if i0 < 0 || i1 < 0 || i2 < 0 ||
			i0 >= len(geo.Screen) || i1 >= len(geo.Screen) || i2 >= len(geo.Screen) {
			continue
		}

		p0, p1, p2 := geo.ViewPos[i0], geo.ViewPos[i1], geo.ViewPos[i2]

		if set.BackfaceCulling {
			faceNormal := p1.Sub(p0).Cross(p2.Sub(p0))
			// The camera sits at the view-space origin.
			if faceNormal.Dot(p0.Negate()) <= 0 {
				continue
			}
		}

		s0, s1, s2 := geo.Screen[i0], geo.Screen[i1], geo.Screen[i2]

		if set.CullSmallTriangles {
			area2 := (s1.X-s0.X)*(s2.Y-s0.Y) - (s1.Y-s0.Y)*(s2.X-s0.X)
			if area2 < 0 {
				area2 = -area2
			}
			if area2/2 < set.MinTriangleArea {
				continue
			}
		}

		faceIndex := faceBase + fi
		rec := TriangleRecord{
			Screen:      [3]math3d.Vec3{s0, s1, s2},
			ViewPos:     [3]math3d.Vec3{p0, p1, p2},
			HasNormals:  mesh.HasNormals(),
			Alpha:       1,
			Lights:      in.Lights,
			Ambient:     in.Ambient,
			Perspective: set.Projection == Perspective,
			FaceIndex:   faceIndex,
			View:        view,
		}
		if rec.HasNormals {
			rec.Normal = [3]math3d.Vec3{geo.Normal[i0], geo.Normal[i1], geo.Normal[i2]}
		}

		v0 := mesh.Vertices[face.V[0]]
		v1 := mesh.Vertices[face.V[1]]
		v2 := mesh.Vertices[face.V[2]]
		rec.UV = [3]math3d.Vec2{v0.UV, v1.UV, v2.UV}
		rec.HasUV = rec.UV[0] != rec.UV[1] || rec.UV[1] != rec.UV[2] || v0.UV != (math3d.Vec2{})

		mat := in.Model.Material(face.Material)
		rec.Material = mat
		if mat != nil {
			rec.Alpha = mat.Alpha
		}

		resolveTriangleColor(&rec, mat, in, faceIndex)

		if rec.NormalMap != nil {
			rec.Tangent = [3]math3d.Vec3{
				in.ModelView.MulVec3Dir(v0.Tangent).Normalize(),
				in.ModelView.MulVec3Dir(v1.Tangent).Normalize(),
				in.ModelView.MulVec3Dir(v2.Tangent).Normalize(),
			}
			rec.Bitangent = [3]math3d.Vec3{
				in.ModelView.MulVec3Dir(v0.Bitangent).Normalize(),
				in.ModelView.MulVec3Dir(v1.Bitangent).Normalize(),
				in.ModelView.MulVec3Dir(v2.Bitangent).Normalize(),
			}
			rec.HasTangents = true
		}

		records = append(records, rec)
	}

	return records
}

// resolveTriangleColor applies the texture-source priority: material image
// texture > procedural face color > material flat color > uniform gray.
func resolveTriangleColor(rec *TriangleRecord, mat *models.Material, in AssembleInput, faceIndex int) {
	rec.BaseColor = math3d.V3(0.5, 0.5, 0.5)

	if mat != nil {
		if rec.View == ViewBlinnPhong {
			rec.BaseColor = mat.Diffuse
		} else {
			rec.BaseColor = mat.BaseColor
		}
	}

	switch {
	case in.Set.UseTexture && mat != nil && mat.BaseTexture != nil && rec.HasUV:
		rec.Texture = in.Textures.Base(mat.BaseTexture)
		if mat.NormalMap != nil {
			rec.NormalMap = in.Textures.Normal(mat.NormalMap)
		}
	case in.Set.Colorize:
		rec.BaseColor = FaceColor(faceIndex)
	}
}

// FaceColor derives a deterministic pseudo-random linear color from a
// global face index, so repeated frames reproduce the same colors.
func FaceColor(faceIndex int) math3d.Vec3 {
	rng := rand.New(rand.NewPCG(0x5eed5eed, uint64(faceIndex)))
	return math3d.V3(
		0.25+0.7*rng.Float64(),
		0.25+0.7*rng.Float64(),
		0.25+0.7*rng.Float64(),
	)
}
