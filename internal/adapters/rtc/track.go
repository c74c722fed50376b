package rtc

import (
	"context"

	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RemoteTrack adapts a received pion track to core.Track.
type RemoteTrack struct {
	ctx   context.Context
	track *webrtc.TrackRemote
}

func newRemoteTrack(ctx context.Context, t *webrtc.TrackRemote) *RemoteTrack {
	return &RemoteTrack{ctx: ctx, track: t}
}

func (t *RemoteTrack) ID() string                 { return t.track.ID() }
func (t *RemoteTrack) StreamID() string           { return t.track.StreamID() }
func (t *RemoteTrack) Kind() domain.TrackKind     { return KindOf(t.track.Kind()) }
func (t *RemoteTrack) Origin() domain.TrackOrigin { return domain.OriginRemote }
func (t *RemoteTrack) MimeType() string           { return t.track.Codec().MimeType }

// ReadRTP reads the next packet from the remote track.
func (t *RemoteTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return t.track.ReadRTP()
}

// Context is done once the owning peer connection goes away.
func (t *RemoteTrack) Context() context.Context { return t.ctx }

// KindOf maps pion codec types onto track kinds; unknown types yield "".
func KindOf(k webrtc.RTPCodecType) domain.TrackKind {
	switch k {
	case webrtc.RTPCodecTypeAudio:
		return domain.KindAudio
	case webrtc.RTPCodecTypeVideo:
		return domain.KindVideo
	}
	return ""
}

// LocalTrack is implemented by local tracks that can be published on a
// peer connection.
type LocalTrack interface {
	TrackLocal() webrtc.TrackLocal
}
