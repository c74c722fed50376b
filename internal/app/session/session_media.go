package session

import (
	"context"
	"errors"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

var (
	ErrNoTracks   = errors.New("capture returned no tracks")
	ErrNotLocal   = errors.New("track is not local")
	ErrNoCapturer = errors.New("no capture device configured")
)

// AddLocalTrack holds track for the session, routes it for local rendering
// and, when in a room, publishes it right away. Rendering happens first.
func (s *Session) AddLocalTrack(track core.Track) error {
	if track.Origin() != domain.OriginLocal {
		return ErrNotLocal
	}
	s.tracks = append(s.tracks, track)

	if _, err := s.router.Route(track); err != nil {
		s.logger.Warn().Err(err).Str("track_id", track.ID()).Msg("local track not rendered")
	}
	if s.state.CanPublish() && s.room != nil {
		s.publish(s.room, track)
	}
	return nil
}

// CollectTracks requests local audio and video capture. Tracks are added on
// the scheduler in the order the capturer returns them; failures are
// reported on CaptureFailed and leave the state untouched.
func (s *Session) CollectTracks(ctx context.Context) {
	if s.capture == nil {
		s.events.CaptureFailed.Emit(ErrNoCapturer)
		return
	}
	go func() {
		tracks, err := s.capture.Capture(ctx)
		if err == nil && len(tracks) == 0 {
			err = ErrNoTracks
		}
		s.post(func() { s.finishCollect(tracks, err) })
	}()
}

func (s *Session) finishCollect(tracks []core.Track, err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg("capture failed")
		s.events.CaptureFailed.Emit(err)
		return
	}
	for _, t := range tracks {
		if err := s.AddLocalTrack(t); err != nil {
			s.logger.Warn().Err(err).Str("track_id", t.ID()).Msg("captured track skipped")
		}
	}
	s.logger.Info().Int("tracks", len(tracks)).Msg("local tracks collected")
}

func (s *Session) publish(room core.Room, track core.Track) {
	if err := room.AddTrack(track); err != nil {
		s.logger.Error().Err(err).Str("track_id", track.ID()).Msg("publish track")
		return
	}
	s.logger.Debug().Str("track_id", track.ID()).Str("kind", string(track.Kind())).Msg("track published")
}
