package main

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func vecNear(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < epsilon &&
		math.Abs(a.Y-b.Y) < epsilon &&
		math.Abs(a.Z-b.Z) < epsilon
}

func TestRotateVector3Identity(t *testing.T) {
	v := Vec3{Y: 0.8}
	got := RotateVector3(v, Vec3{})
	if !vecNear(got, v) {
		t.Errorf("identity rotation changed vector: got %+v, want %+v", got, v)
	}
}

func TestRotateVector3Yaw(t *testing.T) {
	// Positive yaw (Z) turns the forward vector toward -X.
	got := RotateVector3(Vec3{Y: 1}, Vec3{Z: math.Pi / 2})
	want := Vec3{X: -1}
	if !vecNear(got, want) {
		t.Errorf("quarter yaw: got %+v, want %+v", got, want)
	}

	got = RotateVector3(Vec3{Y: 1}, Vec3{Z: math.Pi})
	want = Vec3{Y: -1}
	if !vecNear(got, want) {
		t.Errorf("half yaw: got %+v, want %+v", got, want)
	}
}

func TestRotateVector3PreservesLength(t *testing.T) {
	v := Vec3{X: 3, Y: 4, Z: 12}
	got := RotateVector3(v, Vec3{X: 0.3, Y: -1.1, Z: 2.5})
	wantLen := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	gotLen := math.Sqrt(got.X*got.X + got.Y*got.Y + got.Z*got.Z)
	if math.Abs(gotLen-wantLen) > epsilon {
		t.Errorf("rotation changed length: got %v, want %v", gotLen, wantLen)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(500, -395, 395); got != 395 {
		t.Errorf("Clamp(500) = %v, want 395", got)
	}
	if got := Clamp(-500, -395, 395); got != -395 {
		t.Errorf("Clamp(-500) = %v, want -395", got)
	}
	if got := Clamp(42, -395, 395); got != 42 {
		t.Errorf("Clamp(42) = %v, want 42", got)
	}
}

func TestPlanarDistanceIgnoresHeight(t *testing.T) {
	a := Vec3{X: 3, Y: 0, Z: 100}
	b := Vec3{X: 0, Y: 4, Z: -50}
	if got := PlanarDistance(a, b); math.Abs(got-5) > epsilon {
		t.Errorf("PlanarDistance = %v, want 5", got)
	}
}

func TestForwardStepPerTick(t *testing.T) {
	// A 10ms tick moves a fighter 0.001 * MoveSpeed * 10 = 0.8 units.
	step := RotateVector3(Vec3{Y: 0.001 * MoveSpeed}, Vec3{}).Scale(10)
	if math.Abs(step.Y-0.8) > epsilon {
		t.Errorf("forward step = %v, want 0.8", step.Y)
	}
}
