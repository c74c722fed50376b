// Package capture acquires local camera and microphone tracks. Hardware
// capture needs the V4L2 and malgo drivers and is only built on linux.
package capture

import (
	"errors"
	"sync"

	"github.com/dkeye/tabletalk/internal/adapters/rtc"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/pion/webrtc/v4"
)

var (
	ErrCaptureUnavailable = errors.New("local capture is not supported on this platform")
	ErrNoDevices          = errors.New("no capture device could be opened")
)

// Options bound what the capturer asks the devices for.
type Options struct {
	Video        bool
	Audio        bool
	MaxWidth     int
	MaxHeight    int
	VideoBitRate int
}

func DefaultOptions() Options {
	return Options{
		Video:        true,
		Audio:        true,
		MaxWidth:     640,
		MaxHeight:    480,
		VideoBitRate: 1_500_000,
	}
}

// LocalTrack is a captured track. It is publishable on a peer connection.
type LocalTrack struct {
	track webrtc.TrackLocal
	close func() error
	once  sync.Once
}

var _ rtc.LocalTrack = (*LocalTrack)(nil)

// NewLocalTrack wraps a pion local track; closer releases the device and
// may be nil.
func NewLocalTrack(track webrtc.TrackLocal, closer func() error) *LocalTrack {
	return &LocalTrack{track: track, close: closer}
}

func (t *LocalTrack) ID() string                    { return t.track.ID() }
func (t *LocalTrack) Kind() domain.TrackKind        { return rtc.KindOf(t.track.Kind()) }
func (t *LocalTrack) Origin() domain.TrackOrigin    { return domain.OriginLocal }
func (t *LocalTrack) TrackLocal() webrtc.TrackLocal { return t.track }

// Close releases the underlying device once.
func (t *LocalTrack) Close() error {
	var err error
	t.once.Do(func() {
		if t.close != nil {
			err = t.close()
		}
	})
	return err
}
