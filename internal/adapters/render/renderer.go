// Package render holds the headless rendering collaborators: elements that
// consume remote media and an in-memory scene graph for the table.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedKind = errors.New("renderer: unsupported track kind")

// RTPSource is a track whose packets can be pulled. Remote tracks from the
// peer connection satisfy it.
type RTPSource interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
	Context() context.Context
	MimeType() string
}

// Renderer attaches headless elements. With a record directory set, VP8 and
// Opus remote tracks are written to IVF and Ogg files.
type Renderer struct {
	recordDir string
	logger    zerolog.Logger
}

func NewRenderer(recordDir string) *Renderer {
	return &Renderer{
		recordDir: recordDir,
		logger:    log.With().Str("module", "render").Logger(),
	}
}

func (r *Renderer) Attach(track core.Track, autoStart bool) (core.Element, error) {
	kind := track.Kind()
	if kind != domain.KindAudio && kind != domain.KindVideo {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	el := &Element{
		kind:    kind,
		trackID: track.ID(),
		done:    make(chan struct{}),
		logger:  r.logger.With().Str("track_id", track.ID()).Str("kind", string(kind)).Logger(),
	}

	src, ok := track.(RTPSource)
	if !autoStart || !ok {
		close(el.done)
		return el, nil
	}

	w, err := r.writerFor(track.ID(), src.MimeType())
	if err != nil {
		el.logger.Warn().Err(err).Msg("recording disabled")
	}
	ctx, cancel := context.WithCancel(src.Context())
	el.cancel = cancel
	el.writer = w
	el.playing.Store(true)
	go el.drain(ctx, src)
	return el, nil
}

func (r *Renderer) writerFor(trackID, mime string) (media.Writer, error) {
	if r.recordDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(r.recordDir, 0o755); err != nil {
		return nil, err
	}
	base := filepath.Join(r.recordDir, sanitize(trackID))
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeVP8):
		w, err := ivfwriter.New(base + ".ivf")
		if err != nil {
			return nil, err
		}
		return w, nil
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		w, err := oggwriter.New(base+".ogg", 48000, 2)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, nil
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '{', '}', ' ':
			return '_'
		}
		return r
	}, id)
}

// Element is a headless audio or video element.
type Element struct {
	kind    domain.TrackKind
	trackID string
	logger  zerolog.Logger

	cancel  context.CancelFunc
	writer  media.Writer
	done    chan struct{}
	playing atomic.Bool
	packets atomic.Uint64
	bytes   atomic.Uint64
	once    sync.Once
}

func (e *Element) Kind() domain.TrackKind { return e.kind }
func (e *Element) TrackID() string        { return e.trackID }
func (e *Element) Playing() bool          { return e.playing.Load() }

// Stats reports what the element has consumed so far.
func (e *Element) Stats() (packets, bytes uint64) {
	return e.packets.Load(), e.bytes.Load()
}

// Done is closed once the element stopped consuming media.
func (e *Element) Done() <-chan struct{} { return e.done }

func (e *Element) drain(ctx context.Context, src RTPSource) {
	defer close(e.done)
	defer e.playing.Store(false)
	defer e.closeWriter()
	for {
		select {
		case <-ctx.Done():
			e.logger.Debug().Msg("element ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			e.logger.Debug().Err(err).Msg("element read RTP stopped")
			return
		}
		e.packets.Add(1)
		e.bytes.Add(uint64(len(pkt.Payload)))
		if e.writer != nil {
			if err := e.writer.WriteRTP(pkt); err != nil {
				e.logger.Error().Err(err).Msg("record write error, recording stopped")
				e.closeWriter()
			}
		}
	}
}

func (e *Element) closeWriter() {
	if e.writer == nil {
		return
	}
	if err := e.writer.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("record close")
	}
	e.writer = nil
}

// Close stops playback. It does not wait for a blocked read; the source's
// context ends that.
func (e *Element) Close() error {
	e.once.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	return nil
}
