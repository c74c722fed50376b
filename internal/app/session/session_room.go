package session

import (
	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

// JoinRoom issues a join. It reports false, with no side effects, unless the
// session is connected and not in or joining a room. roomID and displayName
// go to the connection as given; the server rejects what it won't accept
// through the left event. true means the join was requested, not that it
// completed.
func (s *Session) JoinRoom(roomID, displayName string) bool {
	if !s.state.CanJoin() {
		s.logger.Debug().
			Stringer("connection", s.state.Connection).
			Stringer("room", s.state.Room).
			Msg("join ignored")
		return false
	}

	room, err := s.conn.NewRoom(roomID, core.RoomOptions{OpenBridgeChannel: true})
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("create room")
		return false
	}

	s.room = room
	s.setRoomState(domain.RoomPending)

	room.OnJoined(func() {
		s.post(func() { s.onJoined(room) })
	})
	room.OnLeft(func() {
		s.post(func() { s.onLeft(room) })
	})
	room.OnTrackAdded(func(t core.Track) {
		s.post(func() { s.onTrackAdded(room, t) })
	})
	room.OnTrackRemoved(func(t core.Track) {
		s.post(func() { s.onTrackRemoved(room, t) })
	})

	room.SetDisplayName(displayName)
	if err := room.Join(); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("join room")
		s.releaseRoom()
		return true
	}
	s.logger.Info().Str("room_id", roomID).Str("name", displayName).Msg("join requested")
	return true
}

// LeaveRoom asks the room to leave. The left event completes the transition.
func (s *Session) LeaveRoom() bool {
	if !s.state.CanLeave() || s.room == nil {
		return false
	}
	if err := s.room.Leave(); err != nil {
		s.logger.Error().Err(err).Msg("leave room")
		s.releaseRoom()
	}
	return true
}

func (s *Session) onJoined(room core.Room) {
	if room != s.room || s.state.Room != domain.RoomPending {
		s.logger.Debug().Stringer("room", s.state.Room).Msg("stale joined event")
		return
	}
	s.setRoomState(domain.InRoom)
	for _, t := range s.tracks {
		s.publish(room, t)
	}
	s.logger.Info().Int("tracks", len(s.tracks)).Msg("held tracks flushed")
}

func (s *Session) onLeft(room core.Room) {
	if room != s.room {
		s.logger.Debug().Msg("left event from released room")
		return
	}
	s.releaseRoom()
}

// releaseRoom ends the room membership: the handle is dropped, the remote
// roster is cleared and the table is emptied.
func (s *Session) releaseRoom() {
	s.room = nil
	s.setRoomState(domain.NoRoom)
	if n := s.router.Reset(); n > 0 {
		s.logger.Info().Int("remote_tracks", n).Msg("remote roster cleared")
	}
	s.relayout()
}

func (s *Session) onTrackAdded(room core.Room, t core.Track) {
	if room != s.room {
		return
	}
	if t.Origin() == domain.OriginLocal {
		return
	}
	surface, err := s.router.Route(t)
	if err != nil {
		s.logger.Warn().Err(err).Msg("remote track dropped")
		return
	}
	if surface.Kind() == domain.KindVideo {
		s.relayout()
	}
}

func (s *Session) onTrackRemoved(room core.Room, t core.Track) {
	if room != s.room {
		return
	}
	surface, ok := s.router.Remove(t.ID())
	if ok && surface.Kind() == domain.KindVideo {
		s.relayout()
	}
}

// relayout recomputes every seat for the current roster.
func (s *Session) relayout() {
	videos := s.router.Roster().Videos()
	if s.table != nil {
		s.layout = s.table.Rebuild(videos)
	} else {
		s.layout = layout.Compute(len(videos))
	}
	s.events.LayoutChange.Emit(s.layout)
}
