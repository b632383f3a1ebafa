package render

import (
	"math"
	"testing"

	"github.com/softrast/softrast/pkg/math3d"
)

func TestGammaRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 0.2, 0.5, 0.73, 1} {
		got := SRGBToLinear(LinearToSRGB(v))
		if math.Abs(got-v) > 1e-9 {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}

func TestGammaClamps(t *testing.T) {
	if LinearToSRGB(-0.5) != 0 || LinearToSRGB(2) != 1 {
		t.Error("LinearToSRGB should clamp to [0,1]")
	}
	if SRGBToLinear(-0.5) != 0 || SRGBToLinear(2) != 1 {
		t.Error("SRGBToLinear should clamp to [0,1]")
	}
}

func TestEncodeColor(t *testing.T) {
	tests := []struct {
		name     string
		c        math3d.Vec3
		useGamma bool
		want     Color
	}{
		{"black", math3d.Zero3(), true, RGB(0, 0, 0)},
		{"white", math3d.V3(1, 1, 1), true, RGB(255, 255, 255)},
		{"mid gray linear", math3d.V3(0.5, 0.5, 0.5), false, RGB(128, 128, 128)},
		{"overbright clamps", math3d.V3(3, 0, 0), false, RGB(255, 0, 0)},
		{"negative clamps", math3d.V3(-1, 0, 0), false, RGB(0, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EncodeColor(tc.c, tc.useGamma); got != tc.want {
				t.Errorf("EncodeColor = %v, want %v", got, tc.want)
			}
		})
	}

	// Gamma brightens mid tones: 0.5 linear encodes well above 128.
	enc := EncodeColor(math3d.V3(0.5, 0.5, 0.5), true)
	if enc.R <= 128 {
		t.Errorf("gamma-encoded mid gray = %v, want > 128", enc.R)
	}
}

func TestColorToLinearRoundTrip(t *testing.T) {
	c := RGB(180, 90, 45)
	lin := ColorToLinear(c)
	back := EncodeColor(lin, true)
	if back.R != c.R || back.G != c.G || back.B != c.B {
		t.Errorf("round trip %v -> %v", c, back)
	}
}

func TestTextureSampleModes(t *testing.T) {
	tex := NewCheckerTexture(4, 4, 2, math3d.V3(1, 1, 1), math3d.Zero3())
	tex.Filter = FilterNearest

	// Top-left texel is the first checker color; V=1 is the top row.
	if got := tex.Sample(0.1, 0.9); got != math3d.V3(1, 1, 1) {
		t.Errorf("top-left sample = %v, want white", got)
	}
	if got := tex.Sample(0.6, 0.9); got != math3d.Zero3() {
		t.Errorf("top-right sample = %v, want black", got)
	}

	t.Run("repeat wraps", func(t *testing.T) {
		if tex.Sample(1.1, 0.9) != tex.Sample(0.1, 0.9) {
			t.Error("repeat wrap should tile")
		}
	})

	t.Run("clamp pins to edge", func(t *testing.T) {
		clamped := NewCheckerTexture(4, 4, 2, math3d.V3(1, 1, 1), math3d.Zero3())
		clamped.WrapU, clamped.WrapV = WrapClamp, WrapClamp
		clamped.Filter = FilterNearest
		if clamped.Sample(5, 0.9) != clamped.Sample(0.99, 0.9) {
			t.Error("clamp should pin to the edge texel")
		}
	})

	t.Run("bilinear blends", func(t *testing.T) {
		grad := NewTexture(2, 1)
		grad.Texels[0] = math3d.Zero3()
		grad.Texels[1] = math3d.V3(1, 1, 1)
		grad.Filter = FilterBilinear
		mid := grad.Sample(0.5, 0.5)
		if math.Abs(mid.X-0.5) > 1e-9 {
			t.Errorf("midpoint sample = %v, want 0.5", mid.X)
		}
	})
}

func TestSampleNormalDecodes(t *testing.T) {
	tex := NewSolidTexture(math3d.V3(0.5, 0.5, 1))
	n := tex.SampleNormal(0.5, 0.5)
	if math.Abs(n.X) > 1e-9 || math.Abs(n.Y) > 1e-9 || math.Abs(n.Z-1) > 1e-9 {
		t.Errorf("decoded normal = %v, want +Z", n)
	}
}
