package core

import (
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/go-gl/mathgl/mgl64"
)

// Element is a playable sink bound to a track (an audio or video element).
type Element interface {
	Kind() domain.TrackKind
	Close() error
}

// Renderer creates playable elements. autoStart marks elements that begin
// playback without a user gesture.
type Renderer interface {
	Attach(track Track, autoStart bool) (Element, error)
}

type PlaneID string

// Placement positions a square plane in the scene. Facing is the unit
// vector the plane's front points along.
type Placement struct {
	Position mgl64.Vec3
	Facing   mgl64.Vec3
	Size     float64
}

// Scene is the 3D rendering collaborator.
type Scene interface {
	AddPlane(surface *Surface, placement Placement) (PlaneID, error)
	RemovePlane(id PlaneID)
	PointCamera(position, target mgl64.Vec3)
}
