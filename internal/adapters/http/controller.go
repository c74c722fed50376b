package http

import (
	"context"
	"errors"

	"github.com/dkeye/tabletalk/internal/adapters/render"
	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/app/loop"
	"github.com/dkeye/tabletalk/internal/app/session"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

var ErrUnavailable = errors.New("client is shutting down")

// Controller is what the API needs from the running client.
type Controller interface {
	State(ctx context.Context) (StateResponse, error)
	Layout(ctx context.Context) (LayoutResponse, error)
	Connect(ctx context.Context) (bool, error)
	Disconnect(ctx context.Context) (bool, error)
	Join(ctx context.Context, room, name string) (bool, error)
	Leave(ctx context.Context) (bool, error)
	Collect(ctx context.Context) error
}

type TrackDTO struct {
	ID   string           `json:"id"`
	Kind domain.TrackKind `json:"kind"`
}

type StateResponse struct {
	Connection  domain.ConnectionState `json:"connection"`
	Room        domain.RoomState       `json:"room"`
	LocalTracks []TrackDTO             `json:"local_tracks"`
	Remote      []core.SurfaceDTO      `json:"remote"`
}

type LayoutResponse struct {
	Layout layout.Layout    `json:"layout"`
	Scene  *render.Snapshot `json:"scene,omitempty"`
}

// SessionController runs every call on the session's event loop.
type SessionController struct {
	Loop    *loop.Loop
	Session *session.Session
	// Scene is optional.
	Scene *render.Scene
}

func (sc *SessionController) do(ctx context.Context, fn func()) error {
	if err := sc.Loop.Do(ctx, fn); err != nil {
		if errors.Is(err, loop.ErrStopped) {
			return ErrUnavailable
		}
		return err
	}
	return nil
}

func (sc *SessionController) State(ctx context.Context) (StateResponse, error) {
	var st StateResponse
	err := sc.do(ctx, func() {
		s := sc.Session
		st.Connection = s.ConnectionState()
		st.Room = s.RoomState()
		st.LocalTracks = make([]TrackDTO, 0)
		for _, t := range s.LocalTracks() {
			st.LocalTracks = append(st.LocalTracks, TrackDTO{ID: t.ID(), Kind: t.Kind()})
		}
		st.Remote = make([]core.SurfaceDTO, 0)
		for _, surf := range s.RemoteSurfaces() {
			st.Remote = append(st.Remote, surf.DTO())
		}
	})
	return st, err
}

func (sc *SessionController) Layout(ctx context.Context) (LayoutResponse, error) {
	var out LayoutResponse
	err := sc.do(ctx, func() {
		out.Layout = sc.Session.Layout()
		if sc.Scene != nil {
			snap := sc.Scene.Snapshot()
			out.Scene = &snap
		}
	})
	return out, err
}

func (sc *SessionController) Connect(ctx context.Context) (bool, error) {
	var ok bool
	err := sc.do(ctx, func() { ok = sc.Session.Connect() })
	return ok, err
}

func (sc *SessionController) Disconnect(ctx context.Context) (bool, error) {
	var ok bool
	err := sc.do(ctx, func() { ok = sc.Session.Disconnect() })
	return ok, err
}

func (sc *SessionController) Join(ctx context.Context, room, name string) (bool, error) {
	var ok bool
	err := sc.do(ctx, func() { ok = sc.Session.JoinRoom(room, name) })
	return ok, err
}

func (sc *SessionController) Leave(ctx context.Context) (bool, error) {
	var ok bool
	err := sc.do(ctx, func() { ok = sc.Session.LeaveRoom() })
	return ok, err
}

// Collect starts capture; the outcome arrives as session events.
func (sc *SessionController) Collect(ctx context.Context) error {
	return sc.do(ctx, func() { sc.Session.CollectTracks(context.WithoutCancel(ctx)) })
}
