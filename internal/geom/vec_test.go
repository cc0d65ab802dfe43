package geom

import (
	"math"
	"testing"
)

func TestNormalizeOrZero(t *testing.T) {
	v := Vec2{X: 3, Y: 4}.NormalizeOrZero()
	if math.Abs(v.Length()-1.0) > 1e-9 {
		t.Errorf("expected unit length, got %f", v.Length())
	}

	// Zero input must stay zero, not become NaN.
	z := Vec2{}.NormalizeOrZero()
	if z.X != 0 || z.Y != 0 {
		t.Errorf("expected zero vector, got %+v", z)
	}
	if math.IsNaN(z.X) || math.IsNaN(z.Y) {
		t.Error("normalize of zero produced NaN")
	}

	z3 := Vec3{}.NormalizeOrZero()
	if z3.X != 0 || z3.Y != 0 || z3.Z != 0 {
		t.Errorf("expected zero vector, got %+v", z3)
	}
}

func TestPlaneProjection(t *testing.T) {
	p := Vec3{X: 1.5, Y: 7.0, Z: -2.5}
	flat := p.XZ()
	if flat.X != 1.5 || flat.Y != -2.5 {
		t.Errorf("XZ projection wrong: %+v", flat)
	}

	back := flat.ToVec3()
	if back.X != 1.5 || back.Y != 0 || back.Z != -2.5 {
		t.Errorf("ToVec3 wrong: %+v", back)
	}
}

func TestVecArithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 4, Y: 5, Z: 6}

	sum := a.Add(b)
	if sum != (Vec3{X: 5, Y: 7, Z: 9}) {
		t.Errorf("Add wrong: %+v", sum)
	}

	diff := b.Sub(a)
	if diff != (Vec3{X: 3, Y: 3, Z: 3}) {
		t.Errorf("Sub wrong: %+v", diff)
	}

	scaled := a.Scale(2)
	if scaled != (Vec3{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Scale wrong: %+v", scaled)
	}

	if math.Abs(Vec2{X: 3, Y: 4}.Length()-5.0) > 1e-9 {
		t.Error("Length wrong for 3-4-5 triangle")
	}
}
