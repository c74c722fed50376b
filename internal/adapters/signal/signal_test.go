package signal

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers join and leave frames and records every frame it sees.
type fakeServer struct {
	*httptest.Server
	reply func(typ string) []any

	mu     sync.Mutex
	frames []map[string]any
	nodes  []string
}

func newFakeServer(t *testing.T, reply func(typ string) []any) *fakeServer {
	t.Helper()
	fs := &fakeServer{reply: reply}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.nodes = append(fs.nodes, r.Header.Get("X-Client-Node"))
		fs.mu.Unlock()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, frame)
			fs.mu.Unlock()
			typ, _ := frame["type"].(string)
			for _, out := range fs.reply(typ) {
				if err := ws.WriteJSON(out); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) framesOf(typ string) []map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []map[string]any
	for _, f := range fs.frames {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func acceptingServer(typ string) []any {
	switch typ {
	case msgJoin:
		return []any{map[string]any{"type": msgRoomState, "room": "lobby", "count": 1}}
	case msgLeave:
		return []any{map[string]any{"type": msgLeft}}
	}
	return nil
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func signalOnce() (chan struct{}, func()) {
	ch := make(chan struct{})
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

func connect(t *testing.T, endpoint string) core.Connection {
	t.Helper()
	conn, err := NewConnector(nil, 0).NewConnection(core.ConnectionOptions{
		Endpoint:   endpoint,
		MUC:        "conference.example.org",
		ClientNode: "https://example.org/client",
	})
	require.NoError(t, err)
	return conn
}

func TestConnector_RejectsNonWebsocketEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "http scheme", endpoint: "http://example.org/http-bind"},
		{name: "empty", endpoint: ""},
		{name: "garbage", endpoint: "::not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConnector(nil, 0).NewConnection(core.ConnectionOptions{Endpoint: tt.endpoint})
			assert.ErrorIs(t, err, ErrBadEndpoint)
		})
	}
}

func TestConnection_DialFailureFiresFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	conn := connect(t, endpoint)
	failed, fire := signalOnce()
	var got error
	conn.OnFailed(func(err error) {
		got = err
		fire()
	})
	conn.OnEstablished(func() { t.Error("established on a dead endpoint") })

	conn.Connect()
	wait(t, failed, "failed")
	assert.Error(t, got)
}

func TestConnection_JoinAndLeave(t *testing.T) {
	fs := newFakeServer(t, acceptingServer)
	conn := connect(t, fs.wsURL())

	established, fireEstablished := signalOnce()
	disconnected, fireDisconnected := signalOnce()
	conn.OnEstablished(fireEstablished)
	conn.OnDisconnected(fireDisconnected)
	conn.Connect()
	wait(t, established, "established")

	room, err := conn.NewRoom("lobby", core.RoomOptions{OpenBridgeChannel: true})
	require.NoError(t, err)

	joined, fireJoined := signalOnce()
	left, fireLeft := signalOnce()
	room.OnJoined(fireJoined)
	room.OnLeft(fireLeft)
	room.SetDisplayName("ann")

	require.NoError(t, room.Join())
	wait(t, joined, "joined")

	joins := fs.framesOf(msgJoin)
	require.Len(t, joins, 1)
	assert.Equal(t, "lobby@conference.example.org", joins[0]["room"])
	assert.Equal(t, "ann", joins[0]["name"])
	assert.Equal(t, true, joins[0]["bridge"])

	assert.ErrorIs(t, room.Join(), ErrAlreadyJoined)

	require.NoError(t, room.Leave())
	wait(t, left, "left")

	conn.Disconnect()
	wait(t, disconnected, "disconnected")

	fs.mu.Lock()
	assert.Equal(t, []string{"https://example.org/client"}, fs.nodes)
	fs.mu.Unlock()
}

func TestRoom_ServerErrorBeforeJoinIsALeave(t *testing.T) {
	fs := newFakeServer(t, func(typ string) []any {
		if typ == msgJoin {
			return []any{map[string]any{"type": msgError, "error": "room is full"}}
		}
		return nil
	})
	conn := connect(t, fs.wsURL())
	established, fireEstablished := signalOnce()
	conn.OnEstablished(fireEstablished)
	conn.Connect()
	wait(t, established, "established")
	t.Cleanup(conn.Disconnect)

	room, err := conn.NewRoom("lobby", core.RoomOptions{})
	require.NoError(t, err)
	left, fireLeft := signalOnce()
	room.OnLeft(fireLeft)
	room.OnJoined(func() { t.Error("joined a full room") })

	require.NoError(t, room.Join())
	wait(t, left, "left")

	// A left room frees the slot for the next one.
	_, err = conn.NewRoom("lobby", core.RoomOptions{})
	assert.NoError(t, err)
}

func TestConnection_SingleLiveRoom(t *testing.T) {
	conn := connect(t, "ws://127.0.0.1:1/signal")

	_, err := conn.NewRoom("lobby", core.RoomOptions{})
	require.NoError(t, err)
	_, err = conn.NewRoom("other", core.RoomOptions{})
	assert.ErrorIs(t, err, ErrRoomActive)
}

func TestConnection_DisconnectBeforeConnect(t *testing.T) {
	conn := connect(t, "ws://127.0.0.1:1/signal")
	disconnected, fire := signalOnce()
	conn.OnDisconnected(fire)

	conn.Disconnect()
	wait(t, disconnected, "disconnected")

	_, err := conn.NewRoom("lobby", core.RoomOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnection_TrySendBeforeEstablished(t *testing.T) {
	conn := connect(t, "ws://127.0.0.1:1/signal")
	assert.ErrorIs(t, conn.(*Connection).TrySend([]byte(`{}`)), ErrClosed)
}

func TestRoom_FailedRequestsFreeTheConnection(t *testing.T) {
	tests := []struct {
		name string
		fail func(core.Room) error
	}{
		{name: "join", fail: func(r core.Room) error { return r.Join() }},
		{name: "leave", fail: func(r core.Room) error { return r.Leave() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Never dialed, so every frame fails to send.
			conn := connect(t, "ws://127.0.0.1:1/signal")
			room, err := conn.NewRoom("lobby", core.RoomOptions{})
			require.NoError(t, err)
			room.OnLeft(func() { t.Error("left event for a room that was never joined") })

			assert.ErrorIs(t, tt.fail(room), ErrClosed)

			_, err = conn.NewRoom("lobby", core.RoomOptions{})
			assert.NoError(t, err)
		})
	}
}

func TestConnection_DisconnectDuringDial(t *testing.T) {
	// Accepts TCP but never answers the websocket handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	conn := connect(t, "ws://"+ln.Addr().String()+"/signal")
	disconnected, fire := signalOnce()
	conn.OnDisconnected(fire)
	conn.OnFailed(func(err error) { t.Errorf("failed after disconnect: %v", err) })
	conn.OnEstablished(func() { t.Error("established without a handshake") })

	conn.Connect()
	conn.Disconnect()
	wait(t, disconnected, "disconnected")
}
