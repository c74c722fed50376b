// Package router turns media tracks into playable surfaces and delivers them
// to the listener category matching their origin and kind.
package router

import (
	"errors"
	"fmt"

	"github.com/dkeye/tabletalk/internal/app/events"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrUnknownKind = errors.New("unknown track kind")

type Router struct {
	renderer  core.Renderer
	listeners *events.Listeners
	roster    Roster
	logger    zerolog.Logger
}

func New(renderer core.Renderer, listeners *events.Listeners) *Router {
	return &Router{
		renderer:  renderer,
		listeners: listeners,
		logger:    log.With().Str("module", "router").Logger(),
	}
}

// Route creates exactly one surface for track and emits it. Remote surfaces
// start playback on their own and are recorded in the roster before the
// listeners run.
func (r *Router) Route(track core.Track) (*core.Surface, error) {
	origin := track.Origin()
	category, ok := domain.CategoryOf(origin, track.Kind())
	if !ok {
		return nil, fmt.Errorf("route track %s: %w %q", track.ID(), ErrUnknownKind, track.Kind())
	}
	ev, _ := r.listeners.Surface(category)

	autoStart := origin == domain.OriginRemote
	el, err := r.renderer.Attach(track, autoStart)
	if err != nil {
		return nil, fmt.Errorf("attach track %s: %w", track.ID(), err)
	}
	surface := core.NewSurface(track, category, autoStart, el)

	if origin == domain.OriginRemote {
		r.roster.add(surface)
	}
	r.logger.Debug().
		Str("track_id", track.ID()).
		Str("category", string(category)).
		Str("surface", surface.ID()).
		Msg("track routed")

	ev.Emit(surface)
	return surface, nil
}

// Remove drops a remote track from the roster, closes its element and emits
// RemoteRemoved. ok is false if the track was never routed.
func (r *Router) Remove(trackID string) (*core.Surface, bool) {
	surface, ok := r.roster.remove(trackID)
	if !ok {
		return nil, false
	}
	r.closeElement(surface)
	r.listeners.RemoteRemoved.Emit(surface)
	return surface, true
}

// Reset clears the roster at the end of a room membership and closes every
// remote element.
func (r *Router) Reset() int {
	cleared := r.roster.clear()
	for _, s := range cleared {
		r.closeElement(s)
	}
	return len(cleared)
}

func (r *Router) Roster() *Roster { return &r.roster }

func (r *Router) closeElement(s *core.Surface) {
	if el := s.Element(); el != nil {
		if err := el.Close(); err != nil {
			r.logger.Warn().Err(err).Str("surface", s.ID()).Msg("close element")
		}
	}
}
