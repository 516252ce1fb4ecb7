package render

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Surface displays render states.
type Surface interface {
	Draw(ctx context.Context, s State) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, s State) error

func (f SurfaceFunc) Draw(ctx context.Context, s State) error { return f(ctx, s) }

// TextSurface writes the info panel of every frame to w.
type TextSurface struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSurface returns a text panel writing to w.
func NewTextSurface(w io.Writer) *TextSurface {
	return &TextSurface{w: w}
}

func (t *TextSurface) Draw(_ context.Context, s State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "--- frame %d  %s ---\n%s\n\n", s.Frame, s.At.UTC().Format("2006-01-02 15:04:05 MST"), InfoText(s))
	return err
}
