package session

import (
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

// Connect requests a new signaling session. It reports false, with no side
// effects, unless the session is unconnected.
func (s *Session) Connect() bool {
	if !s.state.CanConnect() {
		s.logger.Warn().Stringer("state", s.state.Connection).Msg("connect ignored")
		return false
	}

	conn, err := s.factory.NewConnection(s.opts)
	s.setConnectionState(domain.ConnectionPending)
	if err != nil {
		s.logger.Error().Err(err).Msg("create connection")
		s.setConnectionState(domain.Unconnected)
		return true
	}
	s.conn = conn

	conn.OnEstablished(func() {
		s.post(func() { s.onEstablished(conn) })
	})
	conn.OnFailed(func(err error) {
		s.post(func() { s.onConnectionLost(conn, err) })
	})
	conn.OnDisconnected(func() {
		s.post(func() { s.onConnectionLost(conn, nil) })
	})
	conn.Connect()
	return true
}

// Disconnect asks the signaling collaborator to close the current
// connection. The disconnected event completes the transition.
func (s *Session) Disconnect() bool {
	if s.conn == nil {
		return false
	}
	s.conn.Disconnect()
	return true
}

func (s *Session) onEstablished(conn core.Connection) {
	if conn != s.conn {
		s.logger.Debug().Msg("established from discarded connection")
		return
	}
	s.setConnectionState(domain.Connected)
}

// onConnectionLost handles both failure and disconnect: the handle is
// discarded and any room on it is released.
func (s *Session) onConnectionLost(conn core.Connection, err error) {
	if conn != s.conn {
		s.logger.Debug().Msg("lifecycle event from discarded connection")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("connection failed")
	} else {
		s.logger.Info().Msg("connection closed")
	}
	s.conn = nil
	s.setConnectionState(domain.Unconnected)
	if s.room != nil || s.state.Room != domain.NoRoom {
		s.releaseRoom()
	}
}
