package capture

import (
	"errors"
	"testing"

	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTrack_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		wantKind domain.TrackKind
	}{
		{name: "vp8 is video", mime: webrtc.MimeTypeVP8, wantKind: domain.KindVideo},
		{name: "opus is audio", mime: webrtc.MimeTypeOpus, wantKind: domain.KindAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: tt.mime}, "t-"+tt.name, "local")
			require.NoError(t, err)

			track := NewLocalTrack(pt, nil)
			assert.Equal(t, "t-"+tt.name, track.ID())
			assert.Equal(t, tt.wantKind, track.Kind())
			assert.Equal(t, domain.OriginLocal, track.Origin())
			assert.Same(t, pt, track.TrackLocal())
		})
	}
}

func TestLocalTrack_CloseOnce(t *testing.T) {
	pt, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "cam", "local")
	require.NoError(t, err)

	calls := 0
	boom := errors.New("device busy")
	track := NewLocalTrack(pt, func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, track.Close(), boom)
	assert.NoError(t, track.Close())
	assert.Equal(t, 1, calls)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Video)
	assert.True(t, opts.Audio)
	assert.Equal(t, 640, opts.MaxWidth)
	assert.Equal(t, 480, opts.MaxHeight)
}
