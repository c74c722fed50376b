package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/tabletalk/internal/adapters/rtc"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var (
	ErrNotJoined      = errors.New("room has no media transport yet")
	ErrNotPublishable = errors.New("track cannot be published")
	ErrAlreadyJoined  = errors.New("room join already issued")
)

// Room is a conference on a signaling connection with its own peer
// connection to the bridge.
type Room struct {
	conn   *Connection
	id     string
	jid    string
	opts   core.RoomOptions
	logger zerolog.Logger

	mu      sync.Mutex
	name    string
	peer    *rtc.PeerConnection
	bridge  *webrtc.DataChannel
	issued  bool
	joined  bool
	left    bool
	remotes map[string]*rtc.RemoteTrack

	onJoined       func()
	onLeft         func()
	onTrackAdded   func(core.Track)
	onTrackRemoved func(core.Track)
}

func newRoom(c *Connection, roomID string, opts core.RoomOptions) *Room {
	jid := domain.RoomID(roomID).JID(c.opts.MUC)
	return &Room{
		conn:    c,
		id:      roomID,
		jid:     jid,
		opts:    opts,
		remotes: make(map[string]*rtc.RemoteTrack),
		logger:  c.logger.With().Str("room", jid).Logger(),
	}
}

func (r *Room) JID() string { return r.jid }

func (r *Room) OnJoined(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onJoined = fn
}

func (r *Room) OnLeft(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLeft = fn
}

func (r *Room) OnTrackAdded(fn func(core.Track)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTrackAdded = fn
}

func (r *Room) OnTrackRemoved(fn func(core.Track)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTrackRemoved = fn
}

// SetDisplayName stores the name for the join; once joined it renames the
// member on the server.
func (r *Room) SetDisplayName(name string) {
	r.mu.Lock()
	r.name = name
	joined := r.joined
	r.mu.Unlock()
	if joined {
		if err := r.conn.sendJSON(renameMessage{Type: msgRename, Name: name}); err != nil {
			r.logger.Warn().Err(err).Msg("rename")
		}
	}
}

// Join opens the media transport and asks the server to join the room.
func (r *Room) Join() error {
	r.mu.Lock()
	if r.issued {
		r.mu.Unlock()
		return ErrAlreadyJoined
	}
	r.issued = true
	name := r.name
	r.mu.Unlock()

	peer, err := rtc.NewPeerConnection(rtc.Options{ICEServers: r.conn.iceServers, Tag: r.jid})
	if err != nil {
		r.abandon()
		return err
	}
	peer.OnICECandidate(r.sendCandidate)
	peer.OnTrack(r.addRemote)
	peer.OnNegotiationNeeded(r.negotiate)
	peer.OnClosed(func() { r.logger.Info().Msg("media transport closed") })
	peer.Start(context.Background())

	var bridge *webrtc.DataChannel
	if r.opts.OpenBridgeChannel {
		if bridge, err = peer.OpenDataChannel(rtc.BridgeChannelLabel); err != nil {
			peer.Close()
			r.abandon()
			return err
		}
		bridge.OnMessage(func(msg webrtc.DataChannelMessage) {
			r.logger.Debug().Int("bytes", len(msg.Data)).Msg("bridge message")
		})
	}

	r.mu.Lock()
	r.peer = peer
	r.bridge = bridge
	r.mu.Unlock()

	err = r.conn.sendJSON(joinMessage{
		Type:   msgJoin,
		Room:   r.jid,
		Name:   name,
		Node:   r.conn.opts.ClientNode,
		P2P:    r.conn.opts.P2P,
		Bridge: r.opts.OpenBridgeChannel,
	})
	if err != nil {
		r.abandon()
		return err
	}
	if err := peer.AddRecvOnly(); err != nil {
		r.logger.Warn().Err(err).Msg("recvonly transceivers")
	}
	return nil
}

// Leave asks the server to leave. If the request cannot be sent the room is
// dropped locally and no left event follows.
func (r *Room) Leave() error {
	if err := r.conn.sendJSON(envelope{Type: msgLeave}); err != nil {
		r.abandon()
		return err
	}
	return nil
}

// AddTrack publishes a local track on the room's peer connection.
func (r *Room) AddTrack(track core.Track) error {
	lt, ok := track.(rtc.LocalTrack)
	if !ok {
		return ErrNotPublishable
	}
	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		return ErrNotJoined
	}
	_, err := peer.AddLocalTrack(lt.TrackLocal())
	return err
}

func (r *Room) negotiate() {
	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		return
	}
	offer, err := peer.CreateAndSetOffer()
	if err != nil {
		r.logger.Error().Err(err).Msg("create offer")
		return
	}
	if err := r.conn.sendJSON(sdpMessage{Type: msgOffer, SDP: offer.SDP}); err != nil {
		r.logger.Error().Err(err).Msg("send offer")
	}
}

func (r *Room) sendCandidate(ci webrtc.ICECandidateInit) {
	msg := candidateMessage{Type: msgCandidate, Candidate: ci.Candidate}
	if ci.SDPMid != nil {
		msg.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		msg.SDPMLineIndex = *ci.SDPMLineIndex
	}
	if err := r.conn.sendJSON(msg); err != nil {
		r.logger.Warn().Err(err).Msg("send candidate")
	}
}

func (r *Room) addRemote(t *rtc.RemoteTrack) {
	r.mu.Lock()
	if r.left {
		r.mu.Unlock()
		return
	}
	r.remotes[t.ID()] = t
	fn := r.onTrackAdded
	r.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (r *Room) handleJoined(data []byte) {
	var p roomStateMessage
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error().Err(err).Msg("bad room_state payload")
		return
	}
	r.mu.Lock()
	if r.joined || r.left {
		r.mu.Unlock()
		return
	}
	r.joined = true
	fn := r.onJoined
	r.mu.Unlock()
	r.logger.Info().Int("count", p.Count).Msg("room joined")
	if fn != nil {
		fn()
	}
}

func (r *Room) handleLeft() {
	r.mu.Lock()
	if r.left {
		r.mu.Unlock()
		return
	}
	r.left = true
	fn := r.onLeft
	r.mu.Unlock()
	r.closePeer()
	r.logger.Info().Msg("room left")
	if fn != nil {
		fn()
	}
}

// handleError treats a server error before the join completed as a
// rejected join.
func (r *Room) handleError(msg string) {
	r.mu.Lock()
	pending := r.issued && !r.joined
	r.mu.Unlock()
	if pending {
		r.logger.Warn().Str("error", msg).Msg("join rejected")
		r.handleLeft()
	}
}

func (r *Room) handleOffer(data []byte) {
	var p sdpMessage
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error().Err(err).Msg("bad offer payload")
		return
	}
	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		return
	}
	answer, err := peer.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP})
	if err != nil {
		r.logger.Error().Err(err).Msg("apply offer")
		return
	}
	if err := r.conn.sendJSON(sdpMessage{Type: msgAnswer, SDP: answer.SDP}); err != nil {
		r.logger.Error().Err(err).Msg("send answer")
	}
}

func (r *Room) handleAnswer(data []byte) {
	var p sdpMessage
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error().Err(err).Msg("bad answer payload")
		return
	}
	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		return
	}
	if err := peer.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		r.logger.Error().Err(err).Msg("apply answer")
	}
}

func (r *Room) handleCandidate(data []byte) {
	var p candidateMessage
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error().Err(err).Msg("bad candidate payload")
		return
	}
	cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex

	r.mu.Lock()
	peer := r.peer
	r.mu.Unlock()
	if peer == nil {
		r.logger.Warn().Msg("candidate: no media transport")
		return
	}
	if err := peer.AddICECandidate(cand); err != nil {
		r.logger.Error().Err(err).Msg("add ice candidate")
	}
}

// handleMemberLeft drops the tracks the departed member was sending. The
// bridge labels a member's streams with the member id.
func (r *Room) handleMemberLeft(data []byte) {
	var p memberMessage
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error().Err(err).Msg("bad member_left payload")
		return
	}
	r.mu.Lock()
	var gone []*rtc.RemoteTrack
	for id, t := range r.remotes {
		if t.StreamID() == p.User.ID {
			gone = append(gone, t)
			delete(r.remotes, id)
		}
	}
	fn := r.onTrackRemoved
	r.mu.Unlock()

	for _, t := range gone {
		if fn != nil {
			fn(t)
		}
	}
}

func (r *Room) isLeft() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.left
}

// abandon marks the room left without a left event, freeing the connection
// for the next room.
func (r *Room) abandon() {
	r.mu.Lock()
	r.left = true
	r.mu.Unlock()
	r.closePeer()
}

func (r *Room) closePeer() {
	r.mu.Lock()
	peer := r.peer
	r.peer = nil
	r.bridge = nil
	r.mu.Unlock()
	if peer != nil {
		peer.Close()
	}
}
