package core

import (
	"context"

	"github.com/dkeye/tabletalk/internal/domain"
)

// Track is an opaque handle to a local or remote media stream.
// Local tracks are owned by the session; remote tracks belong to the room
// adapter and are only referenced here.
type Track interface {
	ID() string
	Kind() domain.TrackKind
	Origin() domain.TrackOrigin
}

// Capturer requests local audio+video capture tracks.
type Capturer interface {
	// Capture blocks until the devices answer. An empty result with a nil
	// error is treated as a failure by the caller.
	Capture(ctx context.Context) ([]Track, error)
}
