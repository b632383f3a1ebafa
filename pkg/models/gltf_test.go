package models

import (
	"math"
	"testing"

	"github.com/qmuntal/gltf"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestGLTFLoaderDefaults(t *testing.T) {
	loader := NewGLTFLoader()
	if !loader.GenerateNormals {
		t.Error("GenerateNormals should default to true")
	}
	if !loader.GenerateTangents {
		t.Error("GenerateTangents should default to true")
	}
}

func TestConvertMaterial(t *testing.T) {
	base := [4]float64{0.8, 0.2, 0.1, 0.9}
	metallic := 0.0
	roughness := 0.5

	gmat := &gltf.Material{
		Name: "paint",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}

	mat := convertMaterial(&gltf.Document{}, "", 0, gmat)

	if mat.Name != "paint" {
		t.Errorf("name = %q", mat.Name)
	}
	if mat.BaseColor.X != 0.8 || mat.Alpha != 0.9 {
		t.Errorf("base color = %v, alpha = %v", mat.BaseColor, mat.Alpha)
	}
	if mat.Roughness != 0.5 {
		t.Errorf("roughness = %v", mat.Roughness)
	}

	// The derived Blinn-Phong view: dielectric diffuse matches base color,
	// specular stays at the dielectric floor, shininess grows as roughness
	// shrinks.
	if mat.Diffuse != mat.BaseColor {
		t.Errorf("dielectric diffuse = %v, want base color", mat.Diffuse)
	}
	if math.Abs(mat.Specular.X-0.04) > 1e-9 {
		t.Errorf("dielectric specular = %v, want 0.04", mat.Specular.X)
	}
	if mat.Shininess != 2/(0.5*0.5) {
		t.Errorf("shininess = %v", mat.Shininess)
	}
}

func TestConvertMaterialMetal(t *testing.T) {
	base := [4]float64{1, 0.8, 0.3, 1}
	metallic := 1.0

	gmat := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  &metallic,
		},
	}

	mat := convertMaterial(&gltf.Document{}, "", 3, gmat)

	if mat.Name != "material-3" {
		t.Errorf("fallback name = %q", mat.Name)
	}
	// Metals have no diffuse; specular takes the base tint.
	if mat.Diffuse.X != 0 {
		t.Errorf("metal diffuse = %v, want 0", mat.Diffuse)
	}
	if mat.Specular.Sub(mat.BaseColor).Len() > 1e-9 {
		t.Errorf("metal specular = %v, want base color", mat.Specular)
	}
}

func TestDecodeTextureBadIndex(t *testing.T) {
	doc := &gltf.Document{}
	if img := decodeTexture(doc, "", 0); img != nil {
		t.Error("missing texture index should decode to nil")
	}
	if img := decodeTexture(doc, "", -1); img != nil {
		t.Error("negative index should decode to nil")
	}
}
