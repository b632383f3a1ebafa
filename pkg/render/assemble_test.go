package render

import (
	"image"
	"testing"

	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
)

// assembleFixture is a single front-facing triangle 5 units in front of
// the camera, already transformed.
func assembleFixture() (*models.Model, *Geometry) {
	mesh := models.NewMesh("tri")
	mesh.Vertices = []models.Vertex{
		{Position: math3d.V3(0, 0, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 0)},
		{Position: math3d.V3(1, 0, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(1, 0)},
		{Position: math3d.V3(0, 1, 0), Normal: math3d.V3(0, 0, 1), UV: math3d.V2(0, 1)},
	}
	mesh.Faces = []models.Face{{V: [3]int{0, 1, 2}, Material: -1}}

	model := models.NewModel("test")
	model.Meshes = []*models.Mesh{mesh}

	geo := &Geometry{
		Screen: []math3d.Vec3{
			math3d.V3(10, 40, 5), math3d.V3(40, 40, 5), math3d.V3(10, 10, 5),
		},
		ViewPos: []math3d.Vec3{
			math3d.V3(0, 0, -5), math3d.V3(1, 0, -5), math3d.V3(0, 1, -5),
		},
		Normal: []math3d.Vec3{
			math3d.V3(0, 0, 1), math3d.V3(0, 0, 1), math3d.V3(0, 0, 1),
		},
	}
	return model, geo
}

func assembleWith(t *testing.T, model *models.Model, geo *Geometry, set *Settings) []TriangleRecord {
	t.Helper()
	return AssembleTriangles(AssembleInput{
		Model:     model,
		Geo:       geo,
		Offsets:   []int{0},
		ModelView: math3d.Identity(),
		Set:       set,
		Textures:  NewTextureCache(),
	})
}

func serialSettings() *Settings {
	set := DefaultSettings()
	set.Multithreaded = false
	return set
}

func TestAssembleEmitsFrontFace(t *testing.T) {
	model, geo := assembleFixture()
	recs := assembleWith(t, model, geo, serialSettings())
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if !recs[0].HasNormals {
		t.Error("fixture has normals")
	}
	if recs[0].Alpha != 1 {
		t.Errorf("alpha = %v, want 1", recs[0].Alpha)
	}
}

func TestAssembleBackfaceCull(t *testing.T) {
	model, geo := assembleFixture()
	// Reverse the winding so the face points away from the camera.
	model.Meshes[0].Faces[0].V = [3]int{0, 2, 1}

	set := serialSettings()
	recs := assembleWith(t, model, geo, set)
	if len(recs) != 0 {
		t.Fatalf("backface survived culling: %d records", len(recs))
	}

	set.BackfaceCulling = false
	recs = assembleWith(t, model, geo, set)
	if len(recs) != 1 {
		t.Fatalf("culling disabled but got %d records", len(recs))
	}
}

func TestAssembleSkipsOutOfRangeIndices(t *testing.T) {
	model, geo := assembleFixture()
	model.Meshes[0].Faces = append(model.Meshes[0].Faces,
		models.Face{V: [3]int{0, 1, 99}},
		models.Face{V: [3]int{-2, 1, 2}},
	)

	recs := assembleWith(t, model, geo, serialSettings())
	if len(recs) != 1 {
		t.Fatalf("got %d records, want only the valid triangle", len(recs))
	}
}

func TestAssembleSmallTriangleCull(t *testing.T) {
	model, geo := assembleFixture()
	// Shrink the screen footprint to half a pixel squared.
	geo.Screen = []math3d.Vec3{
		math3d.V3(10, 10, 5), math3d.V3(11, 10, 5), math3d.V3(10, 9, 5),
	}

	set := serialSettings()
	set.CullSmallTriangles = true
	set.MinTriangleArea = 1.0

	recs := assembleWith(t, model, geo, set)
	if len(recs) != 0 {
		t.Fatalf("sub-threshold triangle survived: %d records", len(recs))
	}

	set.MinTriangleArea = 0.25
	recs = assembleWith(t, model, geo, set)
	if len(recs) != 1 {
		t.Fatal("triangle above threshold was culled")
	}
}

func TestAssembleColorizeDeterministic(t *testing.T) {
	model, geo := assembleFixture()
	set := serialSettings()
	set.Colorize = true

	a := assembleWith(t, model, geo, set)
	b := assembleWith(t, model, geo, set)
	if a[0].BaseColor != b[0].BaseColor {
		t.Error("face color changed between runs")
	}
	if a[0].BaseColor != FaceColor(0) {
		t.Error("face color should derive from the global face index")
	}
	if FaceColor(0) == FaceColor(1) {
		t.Error("adjacent faces should get distinct colors")
	}
}

func TestAssembleColorSourcePriority(t *testing.T) {
	tex := image.NewRGBA(image.Rect(0, 0, 2, 2))

	t.Run("texture wins over colorize", func(t *testing.T) {
		model, geo := assembleFixture()
		model.Materials = []*models.Material{func() *models.Material {
			m := models.DefaultMaterial()
			m.BaseTexture = tex
			return m
		}()}
		model.Meshes[0].Faces[0].Material = 0

		set := serialSettings()
		set.Colorize = true
		recs := assembleWith(t, model, geo, set)
		if recs[0].Texture == nil {
			t.Fatal("material texture should be used")
		}
	})

	t.Run("texture disabled falls back to colorize", func(t *testing.T) {
		model, geo := assembleFixture()
		model.Materials = []*models.Material{func() *models.Material {
			m := models.DefaultMaterial()
			m.BaseTexture = tex
			return m
		}()}
		model.Meshes[0].Faces[0].Material = 0

		set := serialSettings()
		set.UseTexture = false
		set.Colorize = true
		recs := assembleWith(t, model, geo, set)
		if recs[0].Texture != nil {
			t.Fatal("texture should be off")
		}
		if recs[0].BaseColor != FaceColor(0) {
			t.Error("colorize should supply the color")
		}
	})

	t.Run("material color without texture or colorize", func(t *testing.T) {
		model, geo := assembleFixture()
		mat := models.DefaultMaterial()
		mat.Diffuse = math3d.V3(0.9, 0.1, 0.2)
		model.Materials = []*models.Material{mat}
		model.Meshes[0].Faces[0].Material = 0

		recs := assembleWith(t, model, geo, serialSettings())
		if recs[0].BaseColor != mat.Diffuse {
			t.Errorf("base color = %v, want material diffuse", recs[0].BaseColor)
		}
	})

	t.Run("no material means gray", func(t *testing.T) {
		model, geo := assembleFixture()
		recs := assembleWith(t, model, geo, serialSettings())
		if recs[0].BaseColor != math3d.V3(0.5, 0.5, 0.5) {
			t.Errorf("base color = %v, want gray fallback", recs[0].BaseColor)
		}
	})
}

func TestAssembleMaterialAlpha(t *testing.T) {
	model, geo := assembleFixture()
	mat := models.DefaultMaterial()
	mat.Alpha = 0.4
	model.Materials = []*models.Material{mat}
	model.Meshes[0].Faces[0].Material = 0

	recs := assembleWith(t, model, geo, serialSettings())
	if recs[0].Alpha != 0.4 {
		t.Errorf("alpha = %v, want 0.4", recs[0].Alpha)
	}
}

func TestAssembleShadingView(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   MaterialView
	}{
		{"phong", func(s *Settings) {}, ViewBlinnPhong},
		{"pbr wins over phong", func(s *Settings) { s.UsePBR = true }, ViewPBR},
		{"lighting off", func(s *Settings) { s.UseLighting = false }, ViewUnlit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model, geo := assembleFixture()
			set := serialSettings()
			tc.mutate(set)
			recs := assembleWith(t, model, geo, set)
			if recs[0].View != tc.want {
				t.Errorf("view = %v, want %v", recs[0].View, tc.want)
			}
		})
	}
}
