package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/app/loop"
	"github.com/dkeye/tabletalk/internal/app/session"
	"github.com/dkeye/tabletalk/internal/config"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockController struct {
	state     StateResponse
	accept    bool
	err       error
	joined    []JoinRequest
	collected int
}

func (m *mockController) State(context.Context) (StateResponse, error) { return m.state, m.err }

func (m *mockController) Layout(context.Context) (LayoutResponse, error) {
	return LayoutResponse{Layout: layout.Compute(2)}, m.err
}

func (m *mockController) Connect(context.Context) (bool, error)    { return m.accept, m.err }
func (m *mockController) Disconnect(context.Context) (bool, error) { return m.accept, m.err }
func (m *mockController) Leave(context.Context) (bool, error)      { return m.accept, m.err }

func (m *mockController) Join(_ context.Context, room, name string) (bool, error) {
	m.joined = append(m.joined, JoinRequest{Room: room, Name: name})
	return m.accept, m.err
}

func (m *mockController) Collect(context.Context) error {
	m.collected++
	return m.err
}

func serve(t *testing.T, ctl Controller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&config.Config{Mode: "test"}, ctl)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Actions(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		ctl        *mockController
		wantStatus int
	}{
		{name: "connect accepted", method: http.MethodPost, path: "/api/connect", ctl: &mockController{accept: true}, wantStatus: http.StatusOK},
		{name: "connect refused", method: http.MethodPost, path: "/api/connect", ctl: &mockController{}, wantStatus: http.StatusConflict},
		{name: "disconnect", method: http.MethodPost, path: "/api/disconnect", ctl: &mockController{accept: true}, wantStatus: http.StatusOK},
		{name: "leave refused", method: http.MethodPost, path: "/api/room/leave", ctl: &mockController{}, wantStatus: http.StatusConflict},
		{name: "join", method: http.MethodPost, path: "/api/room/join", body: `{"room":"lobby","name":"ann"}`, ctl: &mockController{accept: true}, wantStatus: http.StatusOK},
		{name: "join without room", method: http.MethodPost, path: "/api/room/join", body: `{"name":"ann"}`, ctl: &mockController{accept: true}, wantStatus: http.StatusBadRequest},
		{name: "join bad json", method: http.MethodPost, path: "/api/room/join", body: `{`, ctl: &mockController{accept: true}, wantStatus: http.StatusBadRequest},
		{name: "collect", method: http.MethodPost, path: "/api/tracks/collect", ctl: &mockController{}, wantStatus: http.StatusAccepted},
		{name: "loop stopped", method: http.MethodPost, path: "/api/connect", ctl: &mockController{err: ErrUnavailable}, wantStatus: http.StatusServiceUnavailable},
		{name: "timeout", method: http.MethodGet, path: "/api/state", ctl: &mockController{err: context.DeadlineExceeded}, wantStatus: http.StatusGatewayTimeout},
		{name: "other error", method: http.MethodGet, path: "/api/layout", ctl: &mockController{err: errors.New("boom")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.ctl, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_JoinForwardsRequest(t *testing.T) {
	ctl := &mockController{accept: true}
	w := serve(t, ctl, http.MethodPost, "/api/room/join", `{"room":"lobby","name":"ann"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, ctl.joined, 1)
	assert.Equal(t, JoinRequest{Room: "lobby", Name: "ann"}, ctl.joined[0])

	var resp ActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
}

func TestRouter_Layout(t *testing.T) {
	w := serve(t, &mockController{}, http.MethodGet, "/api/layout", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LayoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Layout.SeatCount)
	assert.InDelta(t, 30.0, resp.Layout.Radius, 1e-9)
	assert.Len(t, resp.Layout.Seats, 2)
	assert.Nil(t, resp.Scene)
}

// instantConnection is established as soon as Connect is called.
type instantConnection struct {
	established func()
	lost        func()
}

func (c *instantConnection) Connect()                 { c.established() }
func (c *instantConnection) Disconnect()              { c.lost() }
func (c *instantConnection) OnEstablished(fn func())  { c.established = fn }
func (c *instantConnection) OnFailed(func(error))     {}
func (c *instantConnection) OnDisconnected(fn func()) { c.lost = fn }
func (c *instantConnection) NewRoom(string, core.RoomOptions) (core.Room, error) {
	return nil, errors.New("rooms are not supported here")
}

type instantFactory struct{}

func (instantFactory) NewConnection(core.ConnectionOptions) (core.Connection, error) {
	return &instantConnection{}, nil
}

func TestSessionController_RunsOnLoop(t *testing.T) {
	l := loop.New(16)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	s := session.New(session.Deps{Signaling: instantFactory{}, Scheduler: l})
	ctl := &SessionController{Loop: l, Session: s}

	w := serve(t, ctl, http.MethodPost, "/api/connect", "")
	require.Equal(t, http.StatusOK, w.Code)

	var st StateResponse
	require.Eventually(t, func() bool {
		w := serve(t, ctl, http.MethodGet, "/api/state", "")
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &st) != nil {
			return false
		}
		return st.Connection == domain.Connected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.NoRoom, st.Room)
	assert.Empty(t, st.LocalTracks)

	w = serve(t, ctl, http.MethodPost, "/api/connect", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	cancel()
	<-l.Done()
	w = serve(t, ctl, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
