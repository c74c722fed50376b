//go:build !linux

package capture

import (
	"context"

	"github.com/dkeye/tabletalk/internal/core"
)

// Capturer always fails off linux; the client still joins and renders
// remote media.
type Capturer struct {
	opts Options
}

func NewCapturer(opts Options) *Capturer { return &Capturer{opts: opts} }

func (c *Capturer) Capture(context.Context) ([]core.Track, error) {
	return nil, ErrCaptureUnavailable
}
