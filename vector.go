package main

import "math"

// Vec3 is a plain 3D vector. Value semantics everywhere: positions and
// rotations are copied, never aliased, so snapshots see a consistent state.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// RotateVector3 applies the intrinsic rotation Rx·Ry·Rz to v. Movement and
// aim vectors go through this one function so every observer derives the
// same facing from the same rotation.
func RotateVector3(v, rotation Vec3) Vec3 {
	sx, cx := math.Sincos(rotation.X)
	sy, cy := math.Sincos(rotation.Y)
	sz, cz := math.Sincos(rotation.Z)

	// Row-major Rx·Ry·Rz, composed by hand; the stage is small enough that
	// a matrix type would be more code than the product itself.
	m00 := cy * cz
	m01 := -cy * sz
	m02 := sy
	m10 := cx*sz + sx*sy*cz
	m11 := cx*cz - sx*sy*sz
	m12 := -sx * cy
	m20 := sx*sz - cx*sy*cz
	m21 := sx*cz + cx*sy*sz
	m22 := cx * cy

	return Vec3{
		X: m00*v.X + m01*v.Y + m02*v.Z,
		Y: m10*v.X + m11*v.Y + m12*v.Z,
		Z: m20*v.X + m21*v.Y + m22*v.Z,
	}
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// PlanarDistance returns the (x, y) Euclidean distance between two points,
// ignoring height. Collision in the arena is checked on the ground plane.
func PlanarDistance(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
