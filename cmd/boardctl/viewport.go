package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"posterboard/internal/geometry"
)

// virtualViewport is a pan/zoom surface with no screen behind it. The poster
// starts fitted to the viewport width.
type virtualViewport struct {
	mu     sync.Mutex
	poster geometry.Size
	size   geometry.Size
	t      geometry.Transform
}

func newVirtualViewport(poster, size geometry.Size) *virtualViewport {
	scale := geometry.ClampScale(size.W / poster.W)
	return &virtualViewport{poster: poster, size: size, t: geometry.Transform{Scale: scale}}
}

func (v *virtualViewport) PosterBox() geometry.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.t.RenderBox(v.poster)
}

func (v *virtualViewport) ContentSize() geometry.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return geometry.Size{W: v.poster.W * v.t.Scale, H: v.poster.H * v.t.Scale}
}

func (v *virtualViewport) Transform() geometry.Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.t
}

func (v *virtualViewport) Size() geometry.Size {
	return v.size
}

// AnimateTo jumps straight to t.
func (v *virtualViewport) AnimateTo(t geometry.Transform, _ time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.t = t
}

type cliAlerter struct {
	w io.Writer
}

func (a *cliAlerter) Alert(msg string) { fmt.Fprintln(a.w, "error:", msg) }
func (a *cliAlerter) Warn(msg string)  { fmt.Fprintln(a.w, "warning:", msg) }
