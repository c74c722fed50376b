// Package signal is the signaling collaborator: a websocket client for the
// room server's JSON protocol, carrying one pion peer connection per room.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
	ErrBadEndpoint  = errors.New("signal endpoint must be a ws(s) url")
	ErrRoomActive   = errors.New("connection already has an active room")
)

const sendBuffer = 32

// Connector creates signaling connections.
type Connector struct {
	Dialer     *websocket.Dialer
	ICEServers []string
	PingPeriod time.Duration
}

func NewConnector(iceServers []string, pingPeriod time.Duration) *Connector {
	return &Connector{
		Dialer:     websocket.DefaultDialer,
		ICEServers: iceServers,
		PingPeriod: pingPeriod,
	}
}

func (f *Connector) NewConnection(opts core.ConnectionOptions) (core.Connection, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, fmt.Errorf("%w: %q", ErrBadEndpoint, opts.Endpoint)
	}
	return &Connection{
		opts:       opts,
		dialer:     f.Dialer,
		iceServers: f.ICEServers,
		pingPeriod: f.PingPeriod,
		send:       make(chan []byte, sendBuffer),
		logger:     log.With().Str("module", "signal").Str("node", opts.ClientNode).Logger(),
	}, nil
}

// Connection is one websocket signaling session. It is single use: once it
// fails or disconnects it never reconnects.
type Connection struct {
	opts       core.ConnectionOptions
	dialer     *websocket.Dialer
	iceServers []string
	pingPeriod time.Duration
	send       chan []byte
	logger     zerolog.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	cancel  context.CancelFunc
	started bool
	closed  bool
	room    *Room

	onEstablished  func()
	onFailed       func(error)
	onDisconnected func()
	terminal       sync.Once
}

func (c *Connection) OnEstablished(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEstablished = fn
}

func (c *Connection) OnFailed(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailed = fn
}

func (c *Connection) OnDisconnected(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected = fn
}

// Connect dials in the background. Established or failed fires once the
// dial completes.
func (c *Connection) Connect() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Connection) run(ctx context.Context) {
	header := http.Header{}
	if c.opts.ClientNode != "" {
		header.Set("X-Client-Node", c.opts.ClientNode)
	}
	c.logger.Info().Str("endpoint", c.opts.Endpoint).Msg("dialing")
	ws, _, err := c.dialer.DialContext(ctx, c.opts.Endpoint, header)
	if err != nil {
		if ctx.Err() != nil {
			// Disconnect cancelled the dial.
			c.fireDisconnected()
			return
		}
		c.fireFailed(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		c.fireDisconnected()
		return
	}
	c.ws = ws
	established := c.onEstablished
	c.mu.Unlock()

	c.logger.Info().Msg("signaling established")
	if established != nil {
		established()
	}

	go c.writePump(ctx, ws)
	c.readPump(ctx, ws)
	c.shutdown()
	c.fireDisconnected()
}

// Disconnect closes the websocket; the disconnected event follows.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	c.shutdown()
	if !started {
		go c.fireDisconnected()
	}
}

func (c *Connection) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws, cancel, room := c.ws, c.cancel, c.room
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		_ = ws.Close()
	}
	if room != nil {
		room.closePeer()
	}
}

func (c *Connection) fireFailed(err error) {
	c.terminal.Do(func() {
		c.mu.Lock()
		c.closed = true
		fn := c.onFailed
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("signaling failed")
		if fn != nil {
			fn(err)
		}
	})
}

func (c *Connection) fireDisconnected() {
	c.terminal.Do(func() {
		c.mu.Lock()
		fn := c.onDisconnected
		c.mu.Unlock()
		c.logger.Info().Msg("signaling disconnected")
		if fn != nil {
			fn()
		}
	})
}

// NewRoom creates the room object for roomID inside the MUC namespace.
// Only one live room exists per connection.
func (c *Connection) NewRoom(roomID string, opts core.RoomOptions) (core.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.room != nil && !c.room.isLeft() {
		return nil, ErrRoomActive
	}
	r := newRoom(c, roomID, opts)
	c.room = r
	return r, nil
}

func (c *Connection) currentRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// TrySend queues a frame for the write pump without blocking.
func (c *Connection) TrySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return ErrClosed
	}
	select {
	case c.send <- frame:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Connection) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return c.TrySend(b)
}
