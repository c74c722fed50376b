package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/go-gl/mathgl/mgl64"
)

// journal is shared by the fakes so tests can assert cross-collaborator
// ordering.
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

type fakeTrack struct {
	id     string
	kind   domain.TrackKind
	origin domain.TrackOrigin
}

func (f *fakeTrack) ID() string                 { return f.id }
func (f *fakeTrack) Kind() domain.TrackKind     { return f.kind }
func (f *fakeTrack) Origin() domain.TrackOrigin { return f.origin }

func localVideo(id string) *fakeTrack {
	return &fakeTrack{id: id, kind: domain.KindVideo, origin: domain.OriginLocal}
}

func localAudio(id string) *fakeTrack {
	return &fakeTrack{id: id, kind: domain.KindAudio, origin: domain.OriginLocal}
}

func remoteVideo(id string) *fakeTrack {
	return &fakeTrack{id: id, kind: domain.KindVideo, origin: domain.OriginRemote}
}

func remoteAudio(id string) *fakeTrack {
	return &fakeTrack{id: id, kind: domain.KindAudio, origin: domain.OriginRemote}
}

type fakeElement struct {
	kind   domain.TrackKind
	closed bool
}

func (f *fakeElement) Kind() domain.TrackKind { return f.kind }

func (f *fakeElement) Close() error {
	f.closed = true
	return nil
}

type fakeRenderer struct {
	log *journal
}

func (f *fakeRenderer) Attach(t core.Track, autoStart bool) (core.Element, error) {
	f.log.add("attach:%s:%t", t.ID(), autoStart)
	return &fakeElement{kind: t.Kind()}, nil
}

type fakeRoom struct {
	id      string
	opts    core.RoomOptions
	log     *journal
	name    string
	joins   int
	leaves  int
	joinErr error
	addErr  error

	joined       func()
	left         func()
	trackAdded   func(core.Track)
	trackRemoved func(core.Track)
}

func (f *fakeRoom) SetDisplayName(name string) { f.name = name }

func (f *fakeRoom) AddTrack(t core.Track) error {
	f.log.add("publish:%s", t.ID())
	return f.addErr
}

func (f *fakeRoom) Join() error {
	f.joins++
	return f.joinErr
}

func (f *fakeRoom) Leave() error {
	f.leaves++
	return nil
}

func (f *fakeRoom) OnJoined(fn func())                 { f.joined = fn }
func (f *fakeRoom) OnLeft(fn func())                   { f.left = fn }
func (f *fakeRoom) OnTrackAdded(fn func(core.Track))   { f.trackAdded = fn }
func (f *fakeRoom) OnTrackRemoved(fn func(core.Track)) { f.trackRemoved = fn }

type fakeConn struct {
	log         *journal
	connects    int
	disconnects int
	rooms       []*fakeRoom
	roomErr     error
	joinErr     error

	established  func()
	failed       func(error)
	disconnected func()
}

func (f *fakeConn) Connect()    { f.connects++ }
func (f *fakeConn) Disconnect() { f.disconnects++ }

func (f *fakeConn) OnEstablished(fn func())  { f.established = fn }
func (f *fakeConn) OnFailed(fn func(error))  { f.failed = fn }
func (f *fakeConn) OnDisconnected(fn func()) { f.disconnected = fn }

func (f *fakeConn) NewRoom(roomID string, opts core.RoomOptions) (core.Room, error) {
	if f.roomErr != nil {
		return nil, f.roomErr
	}
	r := &fakeRoom{id: roomID, opts: opts, log: f.log, joinErr: f.joinErr}
	f.rooms = append(f.rooms, r)
	return r, nil
}

func (f *fakeConn) room() *fakeRoom {
	if len(f.rooms) == 0 {
		return nil
	}
	return f.rooms[len(f.rooms)-1]
}

type fakeFactory struct {
	log   *journal
	conns []*fakeConn
	opts  []core.ConnectionOptions
	err   error
}

func (f *fakeFactory) NewConnection(opts core.ConnectionOptions) (core.Connection, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{log: f.log}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) conn() *fakeConn {
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

type fakeCapturer struct {
	tracks []core.Track
	err    error
}

func (f *fakeCapturer) Capture(ctx context.Context) ([]core.Track, error) {
	return f.tracks, f.err
}

type fakeScene struct {
	planes int
	camera mgl64.Vec3
}

func (f *fakeScene) AddPlane(*core.Surface, core.Placement) (core.PlaneID, error) {
	f.planes++
	return core.PlaneID(fmt.Sprint(f.planes)), nil
}

func (f *fakeScene) RemovePlane(core.PlaneID)           { f.planes-- }
func (f *fakeScene) PointCamera(position, _ mgl64.Vec3) { f.camera = position }

var errBoom = errors.New("boom")

// recorder captures every event the session emits, in order.
type recorder struct {
	events  []string
	layouts []layout.Layout
	errs    []error
}

func watch(s *Session) *recorder {
	r := &recorder{}
	ls := s.Events()
	ls.ConnectionStateChange.On(func(st domain.ConnectionState) { r.events = append(r.events, "conn:"+st.String()) })
	ls.RoomStateChange.On(func(st domain.RoomState) { r.events = append(r.events, "room:"+st.String()) })
	for _, c := range []domain.Category{
		domain.CategoryLocalAudio,
		domain.CategoryLocalVideo,
		domain.CategoryRemoteAudio,
		domain.CategoryRemoteVideo,
	} {
		ev, _ := ls.Surface(c)
		ev.On(func(surf *core.Surface) { r.events = append(r.events, string(c)+":"+surf.Track().ID()) })
	}
	ls.RemoteRemoved.On(func(surf *core.Surface) { r.events = append(r.events, "removed:"+surf.Track().ID()) })
	ls.CaptureFailed.On(func(err error) { r.errs = append(r.errs, err) })
	ls.LayoutChange.On(func(l layout.Layout) { r.layouts = append(r.layouts, l) })
	return r
}

func (r *recorder) reset() {
	r.events = nil
	r.layouts = nil
	r.errs = nil
}
