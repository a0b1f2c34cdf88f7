package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestToNormalized(t *testing.T) {
	box := Rect{X: 100, Y: 50, W: 800, H: 400}

	got, err := ToNormalized(Point{X: 500, Y: 150}, box)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.X, tolerance)
	assert.InDelta(t, 0.25, got.Y, tolerance)

	got, err = ToNormalized(Point{X: 100, Y: 50}, box)
	require.NoError(t, err)
	assert.Equal(t, Point{}, got)
}

func TestToNormalizedUnavailable(t *testing.T) {
	for _, box := range []Rect{{}, {W: 10}, {H: 10}, {W: -1, H: 5}} {
		_, err := ToNormalized(Point{X: 1, Y: 1}, box)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
}

func TestToNormalizedScaleInvariant(t *testing.T) {
	unscaled := Size{W: 1200, H: 900}
	logical := Point{X: 0.3, Y: 0.7}

	for _, scale := range []float64{0.5, 1, 1.75, 2, 4} {
		tr := Transform{X: -137, Y: 42, Scale: scale}
		box := tr.RenderBox(unscaled)
		pointer := Point{X: box.X + logical.X*box.W, Y: box.Y + logical.Y*box.H}

		got, err := ToNormalized(pointer, box)
		require.NoError(t, err)
		assert.InDelta(t, logical.X, got.X, tolerance, "scale %v", scale)
		assert.InDelta(t, logical.Y, got.Y, tolerance, "scale %v", scale)
	}
}

func TestToScreenCentersPoint(t *testing.T) {
	viewport := Size{W: 1000, H: 600}
	unscaled := Size{W: 800, H: 400}
	current := 1.5
	measured := Size{W: unscaled.W * current, H: unscaled.H * current}

	tr, err := ToScreen(Point{X: 0.5, Y: 0.25}, measured, current, FlyToScale, viewport)
	require.NoError(t, err)
	assert.Equal(t, FlyToScale, tr.Scale)
	assert.InDelta(t, 500-0.5*800*2, tr.X, tolerance)
	assert.InDelta(t, 300-0.25*400*2, tr.Y, tolerance)

	center := tr.Apply(Point{X: 0.5, Y: 0.25}, unscaled)
	assert.InDelta(t, viewport.W/2, center.X, tolerance)
	assert.InDelta(t, viewport.H/2, center.Y, tolerance)
}

func TestRoundTrip(t *testing.T) {
	unscaled := Size{W: 1024, H: 768}
	viewport := Size{W: 1280, H: 720}
	points := []Point{{0, 0}, {1, 1}, {0.5, 0.25}, {0.123, 0.987}, {1, 0}}

	for _, scale := range []float64{0.5, 1, 3.2} {
		measured := Size{W: unscaled.W * scale, H: unscaled.H * scale}
		for _, p := range points {
			tr, err := ToScreen(p, measured, scale, scale, viewport)
			require.NoError(t, err)

			screen := tr.Apply(p, unscaled)
			back, err := ToNormalized(screen, tr.RenderBox(unscaled))
			require.NoError(t, err)
			assert.InDelta(t, p.X, back.X, tolerance)
			assert.InDelta(t, p.Y, back.Y, tolerance)
		}
	}
}

func TestToScreenUnavailable(t *testing.T) {
	good := Size{W: 10, H: 10}
	cases := []struct {
		name     string
		measured Size
		current  float64
		viewport Size
	}{
		{"unmeasured content", Size{}, 1, good},
		{"unmeasured viewport", good, 1, Size{}},
		{"zero scale", good, 0, good},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ToScreen(Point{X: 0.5, Y: 0.5}, tc.measured, tc.current, FlyToScale, tc.viewport)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClampScale(t *testing.T) {
	assert.Equal(t, MinScale, ClampScale(0.1))
	assert.Equal(t, MaxScale, ClampScale(9))
	assert.Equal(t, 2.0, ClampScale(2))
}

func TestOnPoster(t *testing.T) {
	assert.True(t, OnPoster(Point{X: 0, Y: 1}))
	assert.False(t, OnPoster(Point{X: 1.01, Y: 0.5}))
	assert.False(t, OnPoster(Point{X: 0.5, Y: -0.1}))
}
