package layout

import (
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Table owns the planes placed in the scene for the current roster.
type Table struct {
	scene  core.Scene
	placed []core.PlaneID
	last   Layout
	logger zerolog.Logger
}

func NewTable(scene core.Scene) *Table {
	return &Table{
		scene:  scene,
		last:   Compute(0),
		logger: log.With().Str("module", "layout.table").Logger(),
	}
}

// Rebuild tears down every placed plane and seats videos from scratch, in
// order. Placement errors skip that seat only.
func (t *Table) Rebuild(videos []*core.Surface) Layout {
	for _, id := range t.placed {
		t.scene.RemovePlane(id)
	}
	t.placed = t.placed[:0]

	l := Compute(len(videos))
	t.scene.PointCamera(l.Camera, mgl64.Vec3{})

	for i, video := range videos {
		seat := l.Seats[i]
		id, err := t.scene.AddPlane(video, core.Placement{
			Position: seat.Position,
			Facing:   seat.Facing,
			Size:     SurfaceSize,
		})
		if err != nil {
			t.logger.Error().Err(err).Int("seat", seat.Index).Str("surface", video.ID()).Msg("place surface")
			continue
		}
		t.placed = append(t.placed, id)
	}
	t.last = l
	t.logger.Info().Int("seats", l.SeatCount).Float64("radius", l.Radius).Msg("table rebuilt")
	return l
}

// Layout returns the most recent recomputation.
func (t *Table) Layout() Layout { return t.last }

// Placed returns the number of planes currently in the scene.
func (t *Table) Placed() int { return len(t.placed) }
