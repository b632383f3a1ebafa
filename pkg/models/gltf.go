package models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/softrast/softrast/pkg/math3d"
)

// GLTFLoader loads glTF/GLB files into the Model format.
type GLTFLoader struct {
	// GenerateNormals computes smooth normals when the file has none.
	GenerateNormals bool
	// GenerateTangents computes tangent frames when the file has none.
	GenerateTangents bool
}

// NewGLTFLoader creates a loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		GenerateNormals:  true,
		GenerateTangents: true,
	}
}

// LoadGLB loads a glTF or binary glTF file with default options.
func LoadGLB(path string) (*Model, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a glTF or GLB file and returns a Model.
func (l *GLTFLoader) Load(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	model := NewModel(filepath.Base(path))

	for i, mat := range doc.Materials {
		model.Materials = append(model.Materials, convertMaterial(doc, path, i, mat))
	}

	for _, gm := range doc.Meshes {
		mesh, err := l.processMesh(doc, gm)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", gm.Name, err)
		}
		if len(mesh.Faces) == 0 {
			continue
		}

		mesh.CalculateBounds()
		if l.GenerateNormals && !mesh.HasNormals() {
			mesh.CalculateSmoothNormals()
		}
		if l.GenerateTangents {
			mesh.CalculateTangents()
		}
		model.Meshes = append(model.Meshes, mesh)
	}

	return model, nil
}

// processMesh extracts geometry from one glTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, gm *gltf.Mesh) (*Mesh, error) {
	mesh := NewMesh(gm.Name)

	for _, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Lines, points etc have no place in a triangle rasterizer.
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return nil, fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = readVec2Accessor(doc, uvIdx)
			if err != nil {
				return nil, fmt.Errorf("read uvs: %w", err)
			}
		}

		matIdx := -1
		if prim.Material != nil {
			matIdx = *prim.Material
		}

		baseVertex := len(mesh.Vertices)

		for i := range positions {
			v := Vertex{Position: positions[i]}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			if i < len(uvs) {
				// glTF uses a top-left UV origin; flip V to bottom-left.
				v.UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		appendFace := func(a, b, c int) {
			mesh.Faces = append(mesh.Faces, Face{
				// glTF is CCW front-facing; the screen-space Y flip makes
				// our engine CW, so swap the winding here.
				V:        [3]int{baseVertex + a, baseVertex + c, baseVertex + b},
				Material: matIdx,
			})
		}

		if prim.Indices != nil {
			indices, err := readIndices(doc, *prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
			for i := 0; i+2 < len(indices); i += 3 {
				appendFace(indices[i], indices[i+1], indices[i+2])
			}
		} else {
			for i := 0; i+2 < len(positions); i += 3 {
				appendFace(i, i+1, i+2)
			}
		}
	}

	return mesh, nil
}

// convertMaterial maps a glTF PBR material onto the shared property set,
// deriving the Blinn-Phong view from the PBR factors.
func convertMaterial(doc *gltf.Document, path string, idx int, gmat *gltf.Material) *Material {
	mat := DefaultMaterial()
	mat.Name = gmat.Name
	if mat.Name == "" {
		mat.Name = fmt.Sprintf("material-%d", idx)
	}

	if pbr := gmat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			f := *pbr.BaseColorFactor
			mat.BaseColor = math3d.V3(f[0], f[1], f[2])
			mat.Alpha = f[3]
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			mat.BaseTexture = decodeTexture(doc, path, pbr.BaseColorTexture.Index)
		}
	}
	mat.Emissive = math3d.V3(gmat.EmissiveFactor[0], gmat.EmissiveFactor[1], gmat.EmissiveFactor[2])
	if gmat.NormalTexture != nil && gmat.NormalTexture.Index != nil {
		mat.NormalMap = decodeTexture(doc, path, *gmat.NormalTexture.Index)
	}

	// Blinn-Phong view derived from the PBR factors: diffuse follows base
	// color, specular blends toward base color with metallic, shininess
	// grows as roughness shrinks.
	mat.Diffuse = mat.BaseColor.Scale(1 - mat.Metallic)
	mat.Specular = math3d.V3(0.04, 0.04, 0.04).Lerp(mat.BaseColor, mat.Metallic)
	mat.Shininess = 2 / math.Max(1e-3, mat.Roughness*mat.Roughness)

	return mat
}

// decodeTexture resolves a glTF texture index to a decoded image.
// Returns nil on any failure; a missing texture is not an error.
func decodeTexture(doc *gltf.Document, path string, texIdx int) image.Image {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil
	}
	tex := doc.Textures[texIdx]
	if tex.Source == nil || *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return nil
	}
	gimg := doc.Images[*tex.Source]

	var data []byte
	switch {
	case gimg.BufferView != nil:
		bv := doc.BufferViews[*gimg.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil {
			return nil
		}
		start := bv.ByteOffset
		end := start + bv.ByteLength
		if end > len(buf.Data) {
			return nil
		}
		data = buf.Data[start:end]
	case gimg.URI != "":
		b, err := os.ReadFile(filepath.Join(filepath.Dir(path), gimg.URI))
		if err != nil {
			return nil
		}
		data = b
	default:
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

// readVec3Accessor reads Vec3 data from a glTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}

	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return result, nil
}

// readVec2Accessor reads Vec2 data from a glTF accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}

	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return result, nil
}

// readIndices reads index data from a glTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case []uint8:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint16:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint32:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

// readAccessorData reads raw data from a glTF accessor.
func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	count := accessor.Count

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12 // 3 floats * 4 bytes
		}
		result := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8 // 2 floats * 4 bytes
		}
		result := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorScalar:
		if stride == 0 {
			switch accessor.ComponentType {
			case gltf.ComponentUbyte:
				stride = 1
			case gltf.ComponentUshort:
				stride = 2
			case gltf.ComponentUint:
				stride = 4
			}
		}

		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result := make([]uint8, count)
			for i := range count {
				result[i] = bufData[start+i*stride]
			}
			return result, nil
		case gltf.ComponentUshort:
			result := make([]uint16, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
			}
			return result, nil
		case gltf.ComponentUint:
			result := make([]uint32, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint32(bufData[offset]) |
					uint32(bufData[offset+1])<<8 |
					uint32(bufData[offset+2])<<16 |
					uint32(bufData[offset+3])<<24
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
