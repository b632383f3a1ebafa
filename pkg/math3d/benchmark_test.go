package math3d

import (
	"math"
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	m2 := Perspective(math.Pi/3, 16.0/9.0, 0.1, 100)

	for b.Loop() {
		_ = m2.Mul(m1)
	}
}

func BenchmarkMat4MulVec3(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(ScaleUniform(2))
	v := V3(0.3, -1.2, 4.5)

	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkMat4Inverse(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(ScaleUniform(2))

	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkNormalMatrix(b *testing.B) {
	m := RotateX(0.3).Mul(Scale(V3(2, 1, 0.5)))

	for b.Loop() {
		_ = NormalMatrix(m)
	}
}

func BenchmarkVec3Normalize(b *testing.B) {
	v := V3(3.1, -2.2, 0.7)

	for b.Loop() {
		_ = v.Normalize()
	}
}
