// Package session is the client's state machine: it owns the signaling
// connection, the room, and the local tracks, and drives the router and the
// table from collaborator events.
//
// A Session is not safe for concurrent use. Its methods must run on the
// scheduler it was built with (or on one goroutine when the scheduler is
// loop.Inline); collaborator callbacks are posted there automatically.
package session

import (
	"slices"

	"github.com/dkeye/tabletalk/internal/app/events"
	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/app/loop"
	"github.com/dkeye/tabletalk/internal/app/router"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators a Session drives. Scene and Scheduler are
// optional.
type Deps struct {
	Options   core.ConnectionOptions
	Signaling core.ConnectionFactory
	Capture   core.Capturer
	Renderer  core.Renderer
	Scene     core.Scene
	Scheduler loop.Scheduler
}

type Session struct {
	opts    core.ConnectionOptions
	factory core.ConnectionFactory
	capture core.Capturer
	sched   loop.Scheduler
	events  *events.Listeners
	router  *router.Router
	table   *layout.Table

	state  domain.State
	conn   core.Connection
	room   core.Room
	tracks []core.Track
	layout layout.Layout

	logger zerolog.Logger
}

func New(d Deps) *Session {
	ls := events.New()
	s := &Session{
		opts:    d.Options,
		factory: d.Signaling,
		capture: d.Capture,
		sched:   d.Scheduler,
		events:  ls,
		router:  router.New(d.Renderer, ls),
		layout:  layout.Compute(0),
		logger:  log.With().Str("module", "session").Logger(),
	}
	if s.sched == nil {
		s.sched = loop.Inline{}
	}
	if d.Scene != nil {
		s.table = layout.NewTable(d.Scene)
	}
	return s
}

// Events exposes the listener registry.
func (s *Session) Events() *events.Listeners { return s.events }

func (s *Session) State() domain.State                     { return s.state }
func (s *Session) ConnectionState() domain.ConnectionState { return s.state.Connection }
func (s *Session) RoomState() domain.RoomState             { return s.state.Room }

// LocalTracks returns a copy of the held local tracks in acquisition order.
func (s *Session) LocalTracks() []core.Track { return slices.Clone(s.tracks) }

// RemoteSurfaces returns the remote roster in arrival order.
func (s *Session) RemoteSurfaces() []*core.Surface { return s.router.Roster().Surfaces() }

func (s *Session) RemoteCount() int { return s.router.Roster().Len() }

// Layout returns the seat layout from the last roster change.
func (s *Session) Layout() layout.Layout { return s.layout }

func (s *Session) post(fn func()) {
	if !s.sched.Post(fn) {
		s.logger.Debug().Msg("event dropped, scheduler stopped")
	}
}

func (s *Session) setConnectionState(to domain.ConnectionState) {
	from := s.state.Connection
	if from == to {
		return
	}
	if !from.CanTransition(to) {
		s.logger.Warn().Stringer("from", from).Stringer("to", to).Msg("illegal connection transition")
		return
	}
	s.state.Connection = to
	s.logger.Info().Stringer("from", from).Stringer("to", to).Msg("connection state")
	s.events.ConnectionStateChange.Emit(to)
}

func (s *Session) setRoomState(to domain.RoomState) {
	from := s.state.Room
	if from == to {
		return
	}
	if !from.CanTransition(to) {
		s.logger.Warn().Stringer("from", from).Stringer("to", to).Msg("illegal room transition")
		return
	}
	s.state.Room = to
	s.logger.Info().Stringer("from", from).Stringer("to", to).Msg("room state")
	s.events.RoomStateChange.Emit(to)
}
