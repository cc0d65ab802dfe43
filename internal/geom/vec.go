// Package geom provides the small vector types shared by the simulation,
// the flow field, and the API layer.
package geom

import "math"

// Vec2 is a planar vector. The simulation runs on the world XZ plane, so
// when a Vec2 carries a world-space quantity, X maps to world X and Y maps
// to world Z.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Length returns the magnitude of v.
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSq returns the squared magnitude of v. Cheaper than Length when
// only comparing distances.
func (v Vec2) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// NormalizeOrZero returns v scaled to unit length, or the zero vector when
// v is (near) zero. The simulation treats zero vectors as "no direction",
// so this never returns NaN components.
func (v Vec2) NormalizeOrZero() Vec2 {
	l := v.Length()
	if l < 1e-9 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// IsZero reports whether v has no meaningful direction.
func (v Vec2) IsZero() bool {
	return v.LengthSq() < 1e-12
}

// ToVec3 lifts a planar vector onto the ground plane: X stays X, Y becomes
// world Z, and the vertical component is zero.
func (v Vec2) ToVec3() Vec3 {
	return Vec3{X: v.X, Y: 0, Z: v.Y}
}

// Vec3 is a world-space vector. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Length returns the magnitude of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthSq returns the squared magnitude of v.
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// NormalizeOrZero returns v scaled to unit length, or the zero vector when
// v is (near) zero.
func (v Vec3) NormalizeOrZero() Vec3 {
	l := v.Length()
	if l < 1e-9 {
		return Vec3{}
	}
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// XZ projects v onto the ground plane, dropping the vertical component.
func (v Vec3) XZ() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}
