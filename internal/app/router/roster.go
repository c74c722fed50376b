package router

import (
	"slices"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

// Roster records remote tracks for the current room membership, in arrival
// order. It is cleared when the session leaves the room.
type Roster struct {
	entries []*core.Surface
}

func (r *Roster) add(s *core.Surface) {
	r.entries = append(r.entries, s)
}

func (r *Roster) remove(trackID string) (*core.Surface, bool) {
	for i, s := range r.entries {
		if s.Track().ID() == trackID {
			r.entries = slices.Delete(r.entries, i, i+1)
			return s, true
		}
	}
	return nil, false
}

func (r *Roster) clear() []*core.Surface {
	out := r.entries
	r.entries = nil
	return out
}

func (r *Roster) Len() int { return len(r.entries) }

// Surfaces returns every remote surface in arrival order.
func (r *Roster) Surfaces() []*core.Surface {
	return slices.Clone(r.entries)
}

// Videos returns the remote video surfaces in arrival order; this is the
// ordered roster that drives seat layout.
func (r *Roster) Videos() []*core.Surface {
	out := make([]*core.Surface, 0, len(r.entries))
	for _, s := range r.entries {
		if s.Kind() == domain.KindVideo {
			out = append(out, s)
		}
	}
	return out
}
