package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("peer connection closed")

// BridgeChannelLabel names the data channel opened towards the bridge.
const BridgeChannelLabel = "bridge"

type Options struct {
	ICEServers []string
	// Tag identifies the owner in logs.
	Tag string
}

// PeerConnection wraps a pion PeerConnection for the client side of the
// room: it offers, applies answers and surfaces remote tracks.
type PeerConnection struct {
	pc     *webrtc.PeerConnection
	cancel context.CancelFunc
	logger zerolog.Logger

	mu        sync.Mutex
	pending   []webrtc.ICECandidateInit
	hasRemote bool
	closed    bool

	onICE         func(webrtc.ICECandidateInit)
	onTrack       func(*RemoteTrack)
	onNegotiation func()
	onClosed      func()
}

// DefaultWebRTCConfig builds the peer configuration. No servers means host
// candidates only.
func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{
			{
				URLs: iceServers,
			},
		}
	}
	return cfg
}

func newAPI() (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}
	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	), nil
}

func NewPeerConnection(opts Options) (*PeerConnection, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	pc, err := api.NewPeerConnection(DefaultWebRTCConfig(opts.ICEServers))
	if err != nil {
		return nil, err
	}
	return &PeerConnection{
		pc:     pc,
		logger: log.With().Str("module", "webrtc").Str("tag", opts.Tag).Logger(),
	}, nil
}

// Start wires pion callbacks. ctx bounds the lifetime of remote tracks.
func (c *PeerConnection) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Info().Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			cancel()
			if fn := c.closedHandler(); fn != nil {
				fn()
			}
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if cand != nil && fn != nil {
			fn(cand.ToJSON())
		}
	})

	c.pc.OnNegotiationNeeded(func() {
		c.mu.Lock()
		fn := c.onNegotiation
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.Lock()
		fn := c.onTrack
		c.mu.Unlock()
		if fn != nil {
			fn(newRemoteTrack(ctx, track))
		}
	})
}

// AddRecvOnly makes sure offers carry audio and video m-lines even before
// anything is published.
func (c *PeerConnection) AddRecvOnly() error {
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return err
		}
	}
	return nil
}

// OpenDataChannel opens a reliable channel with label.
func (c *PeerConnection) OpenDataChannel(label string) (*webrtc.DataChannel, error) {
	dc, err := c.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	dc.OnOpen(func() {
		c.logger.Info().Str("label", label).Msg("data channel open")
	})
	return dc, nil
}

// AddLocalTrack attaches a local track and drains RTCP from its sender so
// interceptors keep working.
func (c *PeerConnection) AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return sender, nil
}

func (c *PeerConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

// ApplyOfferAndCreateAnswer handles a renegotiation started by the bridge.
func (c *PeerConnection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	c.flushPending()
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

// ApplyAnswer sets the remote description and flushes candidates that
// arrived before it.
func (c *PeerConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	c.flushPending()
	return nil
}

func (c *PeerConnection) flushPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.hasRemote = true
	c.mu.Unlock()

	for _, ci := range pending {
		if err := c.pc.AddICECandidate(ci); err != nil {
			c.logger.Error().Err(err).Msg("add queued ice candidate")
		}
	}
}

// AddICECandidate applies a remote candidate, queueing it until the answer
// is in place.
func (c *PeerConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	if !c.hasRemote {
		c.pending = append(c.pending, ci)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ci)
}

func (c *PeerConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onICE = fn
}

// OnTrack sets the callback for remote tracks.
func (c *PeerConnection) OnTrack(fn func(*RemoteTrack)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrack = fn
}

func (c *PeerConnection) OnNegotiationNeeded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNegotiation = fn
}

// OnClosed sets the callback fired once the transport fails or closes.
func (c *PeerConnection) OnClosed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = fn
}

func (c *PeerConnection) closedHandler() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn := c.onClosed
	c.onClosed = nil
	return fn
}

func (c *PeerConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *PeerConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
	} else {
		c.logger.Info().Msg("closed")
	}
}
