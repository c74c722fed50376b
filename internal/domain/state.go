package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownState = errors.New("unknown state")

// ConnectionState is the signaling axis of a client session.
type ConnectionState int

const (
	Unconnected ConnectionState = iota
	ConnectionPending
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case ConnectionPending:
		return "connection-pending"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// RoomState is the room-membership axis, independent of ConnectionState.
type RoomState int

const (
	NoRoom RoomState = iota
	RoomPending
	InRoom
)

func (s RoomState) String() string {
	switch s {
	case NoRoom:
		return "no-room"
	case RoomPending:
		return "room-pending"
	case InRoom:
		return "in-room"
	}
	return "unknown"
}

func (s ConnectionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s RoomState) MarshalText() ([]byte, error)       { return []byte(s.String()), nil }

func (s *ConnectionState) UnmarshalText(b []byte) error {
	for _, c := range []ConnectionState{Unconnected, ConnectionPending, Connected} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("%w: connection state %q", ErrUnknownState, b)
}

func (s *RoomState) UnmarshalText(b []byte) error {
	for _, r := range []RoomState{NoRoom, RoomPending, InRoom} {
		if r.String() == string(b) {
			*s = r
			return nil
		}
	}
	return fmt.Errorf("%w: room state %q", ErrUnknownState, b)
}

// Legal transitions per axis.
var connectionTransitions = map[ConnectionState][]ConnectionState{
	Unconnected:       {ConnectionPending},
	ConnectionPending: {Connected, Unconnected},
	Connected:         {Unconnected},
}

var roomTransitions = map[RoomState][]RoomState{
	NoRoom:      {RoomPending},
	RoomPending: {InRoom, NoRoom},
	InRoom:      {NoRoom},
}

func (s ConnectionState) CanTransition(to ConnectionState) bool {
	for _, next := range connectionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s RoomState) CanTransition(to RoomState) bool {
	for _, next := range roomTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// State reads both axes together.
type State struct {
	Connection ConnectionState `json:"connection"`
	Room       RoomState       `json:"room"`
}

// CanConnect reports whether a new signaling connection may be requested.
func (s State) CanConnect() bool { return s.Connection == Unconnected }

// CanJoin reports whether a room join may be issued.
func (s State) CanJoin() bool { return s.Connection == Connected && s.Room == NoRoom }

// CanLeave reports whether the current room may be left.
func (s State) CanLeave() bool { return s.Connection == Connected && s.Room == InRoom }

// CanPublish reports whether local tracks go straight to the room transport.
func (s State) CanPublish() bool { return s.Room == InRoom }
