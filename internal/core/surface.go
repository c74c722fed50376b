package core

import (
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/google/uuid"
)

// Surface is the rendering target derived 1:1 from a track. It is never
// mutated after creation; a new track always produces a new surface.
type Surface struct {
	id        string
	track     Track
	category  domain.Category
	autoStart bool
	element   Element
}

func NewSurface(track Track, category domain.Category, autoStart bool, el Element) *Surface {
	return &Surface{
		id:        uuid.NewString(),
		track:     track,
		category:  category,
		autoStart: autoStart,
		element:   el,
	}
}

func (s *Surface) ID() string                 { return s.id }
func (s *Surface) Track() Track               { return s.track }
func (s *Surface) Kind() domain.TrackKind     { return s.track.Kind() }
func (s *Surface) Origin() domain.TrackOrigin { return s.track.Origin() }
func (s *Surface) Category() domain.Category  { return s.category }
func (s *Surface) AutoStart() bool            { return s.autoStart }
func (s *Surface) Element() Element           { return s.element }

// SurfaceDTO is a read-only view for APIs.
type SurfaceDTO struct {
	ID        string          `json:"id"`
	TrackID   string          `json:"track_id"`
	Category  domain.Category `json:"category"`
	AutoStart bool            `json:"auto_start"`
}

func (s *Surface) DTO() SurfaceDTO {
	return SurfaceDTO{ID: s.id, TrackID: s.track.ID(), Category: s.category, AutoStart: s.autoStart}
}
