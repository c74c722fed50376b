package events

import (
	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

// Listeners groups every event the session publishes.
type Listeners struct {
	ConnectionStateChange Event[domain.ConnectionState]
	RoomStateChange       Event[domain.RoomState]

	LocalAudio  Event[*core.Surface]
	LocalVideo  Event[*core.Surface]
	RemoteAudio Event[*core.Surface]
	RemoteVideo Event[*core.Surface]

	// RemoteRemoved fires when a remote track leaves the room.
	RemoteRemoved Event[*core.Surface]
	// CaptureFailed fires when local capture is denied or yields nothing.
	CaptureFailed Event[error]
	LayoutChange  Event[layout.Layout]
}

func New() *Listeners {
	return &Listeners{}
}

// Surface returns the event a surface of category c is delivered on.
func (l *Listeners) Surface(c domain.Category) (*Event[*core.Surface], bool) {
	switch c {
	case domain.CategoryLocalAudio:
		return &l.LocalAudio, true
	case domain.CategoryLocalVideo:
		return &l.LocalVideo, true
	case domain.CategoryRemoteAudio:
		return &l.RemoteAudio, true
	case domain.CategoryRemoteVideo:
		return &l.RemoteVideo, true
	}
	return nil, false
}
