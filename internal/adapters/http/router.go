// Package http serves the local status and control API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/tabletalk/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 3 * time.Second

// SetupRouter builds the gin engine for ctl.
func SetupRouter(cfg *config.Config, ctl Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handlers{ctl: ctl}
	api := r.Group("/api")
	api.GET("/state", h.state)
	api.GET("/layout", h.layout)
	api.POST("/connect", h.connect)
	api.POST("/disconnect", h.disconnect)
	api.POST("/room/join", h.join)
	api.POST("/room/leave", h.leave)
	api.POST("/tracks/collect", h.collect)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

type JoinRequest struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// ActionResponse reports whether a guarded operation was accepted.
type ActionResponse struct {
	Accepted bool `json:"accepted"`
}

type handlers struct {
	ctl Controller
}

func (h *handlers) state(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	st, err := h.ctl.State(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) layout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	l, err := h.ctl.Layout(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *handlers) connect(c *gin.Context) {
	h.action(c, h.ctl.Connect)
}

func (h *handlers) disconnect(c *gin.Context) {
	h.action(c, h.ctl.Disconnect)
}

func (h *handlers) leave(c *gin.Context) {
	h.action(c, h.ctl.Leave)
}

func (h *handlers) join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room"})
		return
	}
	h.action(c, func(ctx context.Context) (bool, error) {
		return h.ctl.Join(ctx, req.Room, req.Name)
	})
}

func (h *handlers) collect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	if err := h.ctl.Collect(ctx); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ActionResponse{Accepted: true})
}

func (h *handlers) action(c *gin.Context, fn func(context.Context) (bool, error)) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	ok, err := fn(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	c.JSON(status, ActionResponse{Accepted: ok})
}

func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	log.Warn().Str("module", "adapters.http").Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
