package render

import (
	"math"

	"github.com/softrast/softrast/pkg/math3d"
	"github.com/softrast/softrast/pkg/models"
)

// Shading math for both lighting models. Everything runs in view space on
// linear RGB; the camera sits at the origin, so the view vector of a point
// p is simply -p normalized.

// shadeBlinnPhong evaluates the Blinn-Phong model at a surface point.
// base is the resolved diffuse color (texture sample or flat color).
func shadeBlinnPhong(mat *models.Material, base, n, p math3d.Vec3, lights []Light, ambient AmbientLight) math3d.Vec3 {
	viewDir := p.Negate().Normalize()

	out := ambient.Radiance().Scale(mat.AmbientFactor).Mul(base)

	for _, l := range lights {
		lightDir, radiance := l.Sample(p)

		ndl := n.Dot(lightDir)
		if ndl <= 0 {
			continue
		}

		diffuse := base.Scale(ndl)

		halfDir := lightDir.Add(viewDir).Normalize()
		ndh := math.Max(n.Dot(halfDir), 0)
		specular := mat.Specular.Scale(math.Pow(ndh, mat.Shininess))

		out = out.Add(radiance.Mul(diffuse.Add(specular)))
	}

	return out.Add(mat.Emissive)
}

// shadePBR evaluates a Cook-Torrance microfacet model with a GGX normal
// distribution, Smith geometry term and Schlick Fresnel.
func shadePBR(mat *models.Material, base, n, p math3d.Vec3, lights []Light, ambient AmbientLight) math3d.Vec3 {
	viewDir := p.Negate().Normalize()
	ndv := math.Max(n.Dot(viewDir), 1e-4)

	roughness := math.Max(mat.Roughness, 0.04)
	f0 := math3d.V3(0.04, 0.04, 0.04).Lerp(base, mat.Metallic)

	out := ambient.Radiance().Mul(base).Scale(mat.Occlusion)

	for _, l := range lights {
		lightDir, radiance := l.Sample(p)

		ndl := n.Dot(lightDir)
		if ndl <= 0 {
			if mat.Subsurface > 0 {
				// Wrapped diffuse lets a little light bleed past the
				// terminator for translucent materials.
				wrap := (ndl + mat.Subsurface) / (1 + mat.Subsurface)
				if wrap > 0 {
					out = out.Add(radiance.Mul(base).Scale(wrap * mat.Subsurface / math.Pi))
				}
			}
			continue
		}

		halfDir := lightDir.Add(viewDir).Normalize()
		ndh := math.Max(n.Dot(halfDir), 0)
		hdv := math.Max(halfDir.Dot(viewDir), 0)

		d := distributionGGX(ndh, roughness)
		g := geometrySmith(ndv, ndl, roughness)
		f := fresnelSchlick(hdv, f0)

		specular := f.Scale(d * g / (4*ndv*ndl + 1e-4))

		kd := math3d.V3(1, 1, 1).Sub(f).Scale(1 - mat.Metallic)
		diffuse := kd.Mul(base).Scale(1 / math.Pi)

		out = out.Add(radiance.Mul(diffuse.Add(specular)).Scale(ndl * mat.Occlusion))
	}

	return out.Add(mat.Emissive)
}

// distributionGGX is the Trowbridge-Reitz normal distribution function.
func distributionGGX(ndh, roughness float64) float64 {
	a := roughness * roughness
	a2 := a * a
	denom := ndh*ndh*(a2-1) + 1
	return a2 / (math.Pi*denom*denom + 1e-9)
}

// geometrySmith is the Smith height-correlated masking-shadowing term with
// Schlick-GGX for each direction.
func geometrySmith(ndv, ndl, roughness float64) float64 {
	k := (roughness + 1) * (roughness + 1) / 8
	gv := ndv / (ndv*(1-k) + k)
	gl := ndl / (ndl*(1-k) + k)
	return gv * gl
}

// fresnelSchlick approximates the Fresnel reflectance at angle cosTheta.
func fresnelSchlick(cosTheta float64, f0 math3d.Vec3) math3d.Vec3 {
	t := math.Pow(1-cosTheta, 5)
	return f0.Add(math3d.V3(1, 1, 1).Sub(f0).Scale(t))
}
