package render

import (
	"errors"
	"sync"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var ErrBadPlacement = errors.New("scene: placement needs a surface, a size and a facing")

type Plane struct {
	ID        core.PlaneID `json:"id"`
	SurfaceID string       `json:"surface_id"`
	TrackID   string       `json:"track_id"`
	Position  mgl64.Vec3   `json:"position"`
	Facing    mgl64.Vec3   `json:"facing"`
	Size      float64      `json:"size"`
}

type Camera struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
}

type Snapshot struct {
	Camera Camera  `json:"camera"`
	Planes []Plane `json:"planes"`
}

// Scene is an in-memory plane graph. It is safe for concurrent use so the
// status API can read it while the session rebuilds.
type Scene struct {
	mu     sync.RWMutex
	planes map[core.PlaneID]Plane
	order  []core.PlaneID
	camera Camera
}

func NewScene() *Scene {
	return &Scene{planes: make(map[core.PlaneID]Plane)}
}

func (s *Scene) AddPlane(surface *core.Surface, p core.Placement) (core.PlaneID, error) {
	if surface == nil || p.Size <= 0 || p.Facing.Len() == 0 {
		return "", ErrBadPlacement
	}
	id := core.PlaneID(uuid.NewString())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.planes[id] = Plane{
		ID:        id,
		SurfaceID: surface.ID(),
		TrackID:   surface.Track().ID(),
		Position:  p.Position,
		Facing:    p.Facing.Normalize(),
		Size:      p.Size,
	}
	s.order = append(s.order, id)
	return id, nil
}

func (s *Scene) RemovePlane(id core.PlaneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.planes[id]; !ok {
		return
	}
	delete(s.planes, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Scene) PointCamera(position, target mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = Camera{Position: position, Target: target}
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.planes)
}

// Snapshot returns the camera and the planes in placement order.
func (s *Scene) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{Camera: s.camera, Planes: make([]Plane, 0, len(s.order))}
	for _, id := range s.order {
		out.Planes = append(out.Planes, s.planes[id])
	}
	return out
}
