// Package testutil provides shared test helpers and fixtures.
//
// This package centralises tracking fixtures and vector assertions used
// across the component tests.
package testutil

import (
	"math"
	"time"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// TB is the subset of testing.TB the assertions use.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// AssertVecNear checks every component of got against want.
func AssertVecNear(t TB, got, want mgl64.Vec3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("vector = %v, want %v (±%g)", got, want, tol)
			return
		}
	}
}

// AssertLevel checks that q keeps the up axis within tolDeg of vertical.
func AssertLevel(t TB, q mgl64.Quat, tolDeg float64) {
	t.Helper()
	if tilt := geometry.TiltDegrees(q); tilt > tolDeg {
		t.Errorf("tilt = %.6f°, want <= %g°", tilt, tolDeg)
	}
}

// TablePlane returns a level width × depth plane centred at center.
func TablePlane(id string, center mgl64.Vec3, width, depth float64) tracking.DetectedSurface {
	return TiltedPlane(id, center, width, depth, 0, 0)
}

// TiltedPlane returns a plane turned by yaw radians about the vertical
// and then tilted by tiltDeg about its local X axis.
func TiltedPlane(id string, center mgl64.Vec3, width, depth, yaw, tiltDeg float64) tracking.DetectedSurface {
	q := mgl64.QuatRotate(yaw, geometry.Up).Mul(mgl64.QuatRotate(mgl64.DegToRad(tiltDeg), mgl64.Vec3{1, 0, 0}))
	return tracking.DetectedSurface{
		ID:      id,
		Polygon: tracking.RectPolygon(width, depth),
		Pose:    tracking.PosePtr(center, q),
	}
}

// PointerAt returns a pointer at from aiming at target.
func PointerAt(id string, kind tracking.PointerKind, from, target mgl64.Vec3) tracking.Pointer {
	return tracking.Pointer{ID: id, Kind: kind, Pose: tracking.AimingPose(from, target)}
}

// FrameAt builds frame n of a stream starting at base with the given rate.
func FrameAt(base time.Time, n int, hz float64, surfaces []tracking.DetectedSurface, pointers []tracking.Pointer, events ...tracking.InputEvent) *tracking.Snapshot {
	return &tracking.Snapshot{
		Timestamp: base.Add(time.Duration(float64(n) / hz * float64(time.Second))),
		Surfaces:  surfaces,
		Pointers:  pointers,
		Signals:   events,
	}
}
