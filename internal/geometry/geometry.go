// Package geometry converts between pointer space, the pan/zoom content space
// and normalized poster coordinates.
//
// Normalized coordinates are fractions of the poster's unscaled width and
// height with the origin at the top-left corner. They do not depend on the
// poster's pixel dimensions or on the current zoom and pan.
package geometry

import (
	"errors"
	"math"
)

const (
	MinScale = 0.5
	MaxScale = 4.0

	// FlyToScale is the zoom level used when centering a pin from a deep link.
	FlyToScale = 2.0
)

// ErrUnavailable is returned while the poster has not been laid out yet.
// Callers retry after a short delay.
var ErrUnavailable = errors.New("geometry: poster not measured yet")

// Point is a position in whatever space the caller is working in.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an on-screen box: top-left corner plus size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Transform is the viewport's pan offset and zoom scale.
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Identity is the untransformed viewport.
var Identity = Transform{Scale: 1}

func (s Size) empty() bool {
	return !(s.W > 0) || !(s.H > 0)
}

// ToNormalized maps a pointer position onto the poster. box is the poster's
// rendered bounding box in the same space as pointer; since that box already
// carries the current scale, the zoom factor cancels out.
func ToNormalized(pointer Point, box Rect) (Point, error) {
	if (Size{W: box.W, H: box.H}).empty() {
		return Point{}, ErrUnavailable
	}
	return Point{
		X: (pointer.X - box.X) / box.W,
		Y: (pointer.Y - box.Y) / box.H,
	}, nil
}

// ToScreen computes the transform that centers normalized point n in the
// viewport at targetScale. measured is the content size as currently laid
// out, which includes currentScale, so the unscaled size is measured divided
// by currentScale.
func ToScreen(n Point, measured Size, currentScale, targetScale float64, viewport Size) (Transform, error) {
	if measured.empty() || viewport.empty() || !(currentScale > 0) || !(targetScale > 0) {
		return Transform{}, ErrUnavailable
	}
	unscaled := Unscale(measured, currentScale)
	return Transform{
		X:     viewport.W/2 - n.X*unscaled.W*targetScale,
		Y:     viewport.H/2 - n.Y*unscaled.H*targetScale,
		Scale: targetScale,
	}, nil
}

// Unscale recovers the poster's unscaled size from a measured size.
func Unscale(measured Size, scale float64) Size {
	return Size{W: measured.W / scale, H: measured.H / scale}
}

// RenderBox is the poster's on-screen box under t.
func (t Transform) RenderBox(unscaled Size) Rect {
	return Rect{
		X: t.X,
		Y: t.Y,
		W: unscaled.W * t.Scale,
		H: unscaled.H * t.Scale,
	}
}

// Apply places normalized point n in viewport space under t.
func (t Transform) Apply(n Point, unscaled Size) Point {
	return Point{
		X: t.X + n.X*unscaled.W*t.Scale,
		Y: t.Y + n.Y*unscaled.H*t.Scale,
	}
}

// ClampScale keeps a zoom level inside [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return math.Min(MaxScale, math.Max(MinScale, s))
}

// OnPoster reports whether n falls on the visible poster.
func OnPoster(n Point) bool {
	return n.X >= 0 && n.X <= 1 && n.Y >= 0 && n.Y <= 1
}
