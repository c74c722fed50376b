//go:build linux

package capture

import (
	"context"
	"fmt"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Capturer opens the default camera and microphone through mediadevices.
type Capturer struct {
	opts   Options
	logger zerolog.Logger
}

func NewCapturer(opts Options) *Capturer {
	return &Capturer{
		opts:   opts,
		logger: log.With().Str("module", "capture").Logger(),
	}
}

func (c *Capturer) codecSelector() (*mediadevices.CodecSelector, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	if c.opts.VideoBitRate > 0 {
		vpxParams.BitRate = c.opts.VideoBitRate
	}
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}
	return mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	), nil
}

// Capture asks for video and audio together, then each alone, so one busy
// device does not cost the other.
func (c *Capturer) Capture(ctx context.Context) ([]core.Track, error) {
	if !c.opts.Video && !c.opts.Audio {
		return nil, ErrNoDevices
	}
	selector, err := c.codecSelector()
	if err != nil {
		return nil, fmt.Errorf("codec selector: %w", err)
	}

	devices := mediadevices.EnumerateDevices()
	if len(devices) == 0 {
		c.logger.Warn().Msg("no media devices found")
	}
	for _, d := range devices {
		c.logger.Debug().Str("kind", fmt.Sprint(d.Kind)).Str("label", d.Label).Msg("media device")
	}

	type attempt struct {
		video bool
		audio bool
		label string
	}
	var lastErr error
	for _, a := range []attempt{
		{c.opts.Video, c.opts.Audio, "video+audio"},
		{c.opts.Video, false, "video-only"},
		{false, c.opts.Audio, "audio-only"},
	} {
		if !a.video && !a.audio {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		constraints := mediadevices.MediaStreamConstraints{Codec: selector}
		if a.video {
			constraints.Video = func(mc *mediadevices.MediaTrackConstraints) {
				mc.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatYUYV,
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatRGBA,
				}
				if c.opts.MaxWidth > 0 {
					mc.Width = prop.IntRanged{Max: c.opts.MaxWidth}
				}
				if c.opts.MaxHeight > 0 {
					mc.Height = prop.IntRanged{Max: c.opts.MaxHeight}
				}
			}
		}
		if a.audio {
			constraints.Audio = func(*mediadevices.MediaTrackConstraints) {}
		}

		stream, err := mediadevices.GetUserMedia(constraints)
		if err != nil {
			c.logger.Warn().Err(err).Str("attempt", a.label).Msg("GetUserMedia failed")
			lastErr = err
			continue
		}

		var out []core.Track
		for _, mt := range stream.GetTracks() {
			mt.OnEnded(func(err error) {
				if err != nil {
					c.logger.Warn().Err(err).Str("track_id", mt.ID()).Msg("local track ended")
				}
			})
			out = append(out, NewLocalTrack(mt, mt.Close))
		}
		c.logger.Info().Str("attempt", a.label).Int("tracks", len(out)).Msg("local media captured")
		return out, nil
	}
	if lastErr == nil {
		lastErr = ErrNoDevices
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDevices, lastErr)
}
