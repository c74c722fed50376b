package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tabletalk/internal/adapters/capture"
	router "github.com/dkeye/tabletalk/internal/adapters/http"
	"github.com/dkeye/tabletalk/internal/adapters/render"
	sig "github.com/dkeye/tabletalk/internal/adapters/signal"
	"github.com/dkeye/tabletalk/internal/app/layout"
	"github.com/dkeye/tabletalk/internal/app/loop"
	"github.com/dkeye/tabletalk/internal/app/session"
	"github.com/dkeye/tabletalk/internal/config"
	"github.com/dkeye/tabletalk/internal/core"
	"github.com/dkeye/tabletalk/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	events := loop.New(128)
	go events.Run(loopCtx)

	scene := render.NewScene()
	sess := session.New(session.Deps{
		Options:   cfg.ConnectionOptions(),
		Signaling: sig.NewConnector(cfg.ICEServers, cfg.PingPeriod),
		Capture:   capture.NewCapturer(capture.DefaultOptions()),
		Renderer:  render.NewRenderer(cfg.RecordDir),
		Scene:     scene,
		Scheduler: events,
	})
	watch(sess, events, cfg)

	var srv *http.Server
	if cfg.StatusAddr != "" {
		ctl := &router.SessionController{Loop: events, Session: sess, Scene: scene}
		srv = &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: router.SetupRouter(cfg, ctl),
		}
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status API started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server error")
			}
		}()
	}

	if cfg.AutoCapture {
		events.Post(func() { sess.CollectTracks(loopCtx) })
	}
	events.Post(func() { sess.Connect() })

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}
	err = events.Do(shutdownCtx, func() {
		sess.Disconnect()
		closeLocal(sess)
	})
	if err != nil {
		log.Error().Err(err).Msg("disconnect")
	}
	stopLoop()
	<-events.Done()
	log.Info().Msg("Client exited gracefully")
}

// watch logs session events and joins the configured room once connected.
func watch(sess *session.Session, events *loop.Loop, cfg *config.Config) {
	ls := sess.Events()
	ls.ConnectionStateChange.On(func(st domain.ConnectionState) {
		log.Info().Stringer("state", st).Msg("connection")
		if st == domain.Connected && cfg.Room != "" {
			events.Post(func() { sess.JoinRoom(cfg.Room, cfg.DisplayName) })
		}
	})
	ls.RoomStateChange.On(func(st domain.RoomState) {
		log.Info().Stringer("state", st).Msg("room")
	})
	logSurface := func(s *core.Surface) {
		log.Info().
			Str("surface", s.ID()).
			Str("track_id", s.Track().ID()).
			Str("category", string(s.Category())).
			Bool("auto_start", s.AutoStart()).
			Msg("surface ready")
	}
	ls.LocalAudio.On(logSurface)
	ls.LocalVideo.On(logSurface)
	ls.RemoteAudio.On(logSurface)
	ls.RemoteVideo.On(logSurface)
	ls.RemoteRemoved.On(func(s *core.Surface) {
		log.Info().Str("surface", s.ID()).Str("track_id", s.Track().ID()).Msg("surface removed")
	})
	ls.CaptureFailed.On(func(err error) {
		log.Warn().Err(err).Msg("local capture failed, continuing receive-only")
	})
	ls.LayoutChange.On(func(l layout.Layout) {
		log.Info().Int("seats", l.SeatCount).Float64("radius", l.Radius).Msg("table rebuilt")
	})
}

func closeLocal(sess *session.Session) {
	for _, t := range sess.LocalTracks() {
		if c, ok := t.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Str("track_id", t.ID()).Msg("close local track")
			}
		}
	}
}
