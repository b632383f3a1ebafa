package render

import (
	"math"

	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
)

// alphaCutoff rejects triangles too transparent to matter.
const alphaCutoff = 0.01

// insideEpsilon tolerates tiny negative barycentrics so pixels on shared
// edges are not dropped by both triangles.
const insideEpsilon = -1e-4

// degenerateArea2 rejects triangles with no usable screen area.
const degenerateArea2 = 1e-12

// wireWidth is the edge half-width in pixels for wireframe rendering.
const wireWidth = 1.0

// fallbackMaterial shades faces with no material of their own.
var fallbackMaterial = models.DefaultMaterial()

// shadeTriangle rasterizes one triangle into rows [yLo, yHi). Every pixel
// runs the full per-pixel pipeline: coverage, depth, shading, heuristics,
// blending, encode.
func (r *Rasterizer) shadeTriangle(t *TriangleRecord, yLo, yHi int) {
	set := r.set
	fb := r.fb

	effAlpha := t.Alpha * set.Alpha
	if effAlpha <= alphaCutoff {
		return
	}

	s0, s1, s2 := t.Screen[0], t.Screen[1], t.Screen[2]

	// Signed twice-area; also the barycentric denominator.
	area2 := (s1.X-s0.X)*(s2.Y-s0.Y) - (s1.Y-s0.Y)*(s2.X-s0.X)
	if math.Abs(area2) < degenerateArea2 {
		return
	}
	invArea2 := 1 / area2

	minX := int(math.Floor(math.Min(s0.X, math.Min(s1.X, s2.X))))
	maxX := int(math.Ceil(math.Max(s0.X, math.Max(s1.X, s2.X))))
	minY := int(math.Floor(math.Min(s0.Y, math.Min(s1.Y, s2.Y))))
	maxY := int(math.Ceil(math.Max(s0.Y, math.Max(s1.Y, s2.Y))))

	minX = max(minX, 0)
	maxX = min(maxX, fb.Width-1)
	minY = max(minY, yLo)
	maxY = min(maxY, yHi-1)
	if minX > maxX || minY > maxY {
		return
	}

	z0, z1, z2 := s0.Z, s1.Z, s2.Z
	perspectiveOK := t.Perspective && z0 > 0 && z1 > 0 && z2 > 0 &&
		!math.IsInf(z0, 0) && !math.IsInf(z1, 0) && !math.IsInf(z2, 0)

	var iz0, iz1, iz2 float64
	if perspectiveOK {
		iz0, iz1, iz2 = 1/z0, 1/z1, 1/z2
	}

	curvature := triangleCurvature(t)

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5

			// Barycentric coordinates of the pixel center.
			w0 := ((s1.X-px)*(s2.Y-py) - (s1.Y-py)*(s2.X-px)) * invArea2
			w1 := ((s2.X-px)*(s0.Y-py) - (s2.Y-py)*(s0.X-px)) * invArea2
			w2 := 1 - w0 - w1

			if w0 < insideEpsilon || w1 < insideEpsilon || w2 < insideEpsilon {
				continue
			}

			if set.Wireframe && !nearEdge(px, py, s0, s1, s2) {
				continue
			}

			// Depth: perspective-correct via 1/z when possible, linear
			// otherwise (orthographic or unreliable vertex depths).
			var z, pw0, pw1, pw2 float64
			if perspectiveOK {
				invZ := w0*iz0 + w1*iz1 + w2*iz2
				if invZ > 0 {
					z = 1 / invZ
					pw0 = w0 * iz0 * z
					pw1 = w1 * iz1 * z
					pw2 = w2 * iz2 * z
				} else {
					// Edge-tolerance pixels can push the 1/z sum
					// non-positive; interpolate linearly instead of
					// dropping the pixel.
					z = w0*z0 + w1*z1 + w2*z2
					pw0, pw1, pw2 = w0, w1, w2
				}
			} else {
				z = w0*z0 + w1*z1 + w2*z2
				pw0, pw1, pw2 = w0, w1, w2
			}
			if z <= 0 || !isFinite(z) {
				continue
			}

			idx := fb.Index(x, y)
			if idx < 0 {
				continue
			}
			if set.UseZBuffer {
				if !fb.TryDepth(idx, z) {
					continue
				}
			} else {
				fb.StoreDepth(idx, z)
			}

			c := r.pixelColor(t, pw0, pw1, pw2, w0, w1, w2, curvature)

			if effAlpha < 1 {
				dst := fb.ColorAt(x, y)
				enc := EncodeColor(c, set.UseGamma)
				fb.StoreColor(idx, blendColor(enc, dst, effAlpha))
				continue
			}

			fb.StoreColor(idx, EncodeColor(c, set.UseGamma))
		}
	}
}

// pixelColor runs shading plus the screen-space heuristics for one pixel.
// pw are the perspective-corrected attribute weights, w the plain
// barycentrics used by the edge-proximity term.
func (r *Rasterizer) pixelColor(t *TriangleRecord, pw0, pw1, pw2, w0, w1, w2, curvature float64) math3d.Vec3 {
	set := r.set

	base := t.BaseColor
	var u, v float64
	if t.HasUV {
		u = pw0*t.UV[0].X + pw1*t.UV[1].X + pw2*t.UV[2].X
		v = pw0*t.UV[0].Y + pw1*t.UV[1].Y + pw2*t.UV[2].Y
	}
	if t.Texture != nil {
		base = t.Texture.Sample(u, v)
	}

	if t.View == ViewUnlit || !t.HasNormals {
		return base
	}

	pos := math3d.V3(
		pw0*t.ViewPos[0].X+pw1*t.ViewPos[1].X+pw2*t.ViewPos[2].X,
		pw0*t.ViewPos[0].Y+pw1*t.ViewPos[1].Y+pw2*t.ViewPos[2].Y,
		pw0*t.ViewPos[0].Z+pw1*t.ViewPos[1].Z+pw2*t.ViewPos[2].Z,
	)

	n := math3d.V3(
		pw0*t.Normal[0].X+pw1*t.Normal[1].X+pw2*t.Normal[2].X,
		pw0*t.Normal[0].Y+pw1*t.Normal[1].Y+pw2*t.Normal[2].Y,
		pw0*t.Normal[0].Z+pw1*t.Normal[1].Z+pw2*t.Normal[2].Z,
	).Normalize()

	if t.NormalMap != nil && t.HasTangents {
		n = perturbNormal(t, n, u, v, pw0, pw1, pw2)
	}

	mat := t.Material
	if mat == nil {
		mat = fallbackMaterial
	}

	var c math3d.Vec3
	if t.View == ViewPBR {
		c = shadePBR(mat, base, n, pos, t.Lights, t.Ambient)
	} else {
		c = shadeBlinnPhong(mat, base, n, pos, t.Lights, t.Ambient)
	}

	if set.EnhancedAO {
		c = c.Scale(aoFactor(n, w0, w1, w2, curvature, set.AOStrength))
	}
	if set.SoftShadows {
		c = c.Scale(softShadowFactor(t, n, pos, curvature, set.ShadowStrength))
	}
	if r.shadow != nil {
		c = c.Scale(r.shadow.Factor(pos))
	}

	return c
}

// perturbNormal applies a tangent-space normal map sample through the
// interpolated TBN frame.
func perturbNormal(t *TriangleRecord, n math3d.Vec3, u, v, pw0, pw1, pw2 float64) math3d.Vec3 {
	tan := math3d.V3(
		pw0*t.Tangent[0].X+pw1*t.Tangent[1].X+pw2*t.Tangent[2].X,
		pw0*t.Tangent[0].Y+pw1*t.Tangent[1].Y+pw2*t.Tangent[2].Y,
		pw0*t.Tangent[0].Z+pw1*t.Tangent[1].Z+pw2*t.Tangent[2].Z,
	)
	bit := math3d.V3(
		pw0*t.Bitangent[0].X+pw1*t.Bitangent[1].X+pw2*t.Bitangent[2].X,
		pw0*t.Bitangent[0].Y+pw1*t.Bitangent[1].Y+pw2*t.Bitangent[2].Y,
		pw0*t.Bitangent[0].Z+pw1*t.Bitangent[1].Z+pw2*t.Bitangent[2].Z,
	)

	// Re-orthogonalize against the interpolated normal.
	tan = tan.Sub(n.Scale(n.Dot(tan)))
	if tan.LenSq() < 1e-12 {
		return n
	}
	tan = tan.Normalize()
	bit = bit.Sub(n.Scale(n.Dot(bit))).Sub(tan.Scale(tan.Dot(bit)))
	if bit.LenSq() < 1e-12 {
		bit = n.Cross(tan)
	} else {
		bit = bit.Normalize()
	}

	s := t.NormalMap.SampleNormal(u, v)
	return tan.Scale(s.X).Add(bit.Scale(s.Y)).Add(n.Scale(s.Z)).Normalize()
}

// triangleCurvature measures how much the vertex normals disagree; flat
// triangles score 0, tightly curved ones approach 1.
func triangleCurvature(t *TriangleRecord) float64 {
	if !t.HasNormals {
		return 0
	}
	d := (1 - t.Normal[0].Dot(t.Normal[1])) +
		(1 - t.Normal[1].Dot(t.Normal[2])) +
		(1 - t.Normal[2].Dot(t.Normal[0]))
	return math3d.Clamp01(d)
}

// aoFactor darkens pixels whose geometry suggests occlusion: surfaces not
// facing up, near triangle edges, on curved regions. Purely screen-space,
// no ray casting.
func aoFactor(n math3d.Vec3, w0, w1, w2, curvature, strength float64) float64 {
	upward := 1 - math3d.Clamp01(n.Y)
	edge := math3d.Clamp01(1 - 3*math.Min(w0, math.Min(w1, w2)))
	ao := upward * edge * curvature
	return math3d.Clamp01(1 - strength*ao)
}

// softShadowFactor darkens pixels facing away from the primary light,
// scaled by distance and curvature. A contact-shadow impression without a
// shadow map.
func softShadowFactor(t *TriangleRecord, n, pos math3d.Vec3, curvature, strength float64) float64 {
	if len(t.Lights) == 0 {
		return 1
	}
	lightDir, _ := t.Lights[0].Sample(pos)
	facing := 1 - math.Max(n.Dot(lightDir), 0)

	d := pos.Len()
	falloff := d / (d + 8)

	s := facing * falloff * (0.3 + 0.7*curvature)
	return math3d.Clamp01(1 - strength*s)
}

// nearEdge reports whether the pixel center lies within wireWidth pixels
// of any triangle edge.
func nearEdge(px, py float64, s0, s1, s2 math3d.Vec3) bool {
	return edgeDistance(px, py, s0, s1) <= wireWidth ||
		edgeDistance(px, py, s1, s2) <= wireWidth ||
		edgeDistance(px, py, s2, s0) <= wireWidth
}

// edgeDistance is the perpendicular distance from (px, py) to line a-b.
func edgeDistance(px, py float64, a, b math3d.Vec3) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return math.Hypot(px-a.X, py-a.Y)
	}
	return math.Abs((px-a.X)*dy-(py-a.Y)*dx) / l
}

// blendColor mixes src over dst with opacity a in encoded space.
func blendColor(src, dst Color, a float64) Color {
	return RGB(
		uint8(float64(src.R)*a+float64(dst.R)*(1-a)),
		uint8(float64(src.G)*a+float64(dst.G)*(1-a)),
		uint8(float64(src.B)*a+float64(dst.B)*(1-a)),
	)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
