// Package diag implements the engine's optional debug/introspection HTTP
// surface: a small Echo app exposing live block-pipeline counts for
// embedding hosts that want a local dashboard, adjacent to the C ABI's
// contextEnableEvents concept (spec §6) but read-only and HTTP-native
// rather than a polled event queue.
//
// Grounded in the teacher's server/internal/httpapi package (an Echo app
// with a health/state JSON endpoint and a request-logging middleware). The
// teacher has no rate-limiting code of its own to generalize from — this
// package reaches directly for golang.org/x/time/rate.Limiter (already an
// indirect dependency of the teacher's own go.mod) to rate-limit the /stats
// endpoint; the /health endpoint is not limited.
package diag

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/rustyguts/bken-engine/engine"
)

// StatsResponse is the /stats JSON payload.
type StatsResponse struct {
	ContextID  string `json:"context_id"`
	BlockIndex int64  `json:"block_index"`
	Sources    int    `json:"sources"`
	Effects    int    `json:"effects"`
	Routes     int    `json:"routes"`
	Handles    int    `json:"handles"`
}

// Server is the Echo application exposing a single context's live stats.
type Server struct {
	echo    *echo.Echo
	ctx     *engine.Context
	logger  *log.Logger
	limiter *rate.Limiter
}

// New constructs a diag Server for ctx. ratePerSecond/burst configure the
// /stats rate limiter (0 ratePerSecond disables limiting entirely). logger
// defaults to log.Default() when nil.
func New(ctx *engine.Context, ratePerSecond float64, burst int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}

	s := &Server{echo: e, ctx: ctx, logger: logger, limiter: limiter}
	e.GET("/stats", s.handleStats)
	e.GET("/health", s.handleHealth)
	return s
}

// Echo exposes the underlying Echo instance, e.g. for tests to call
// ServeHTTP directly without a bound listener.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}
	return c.JSON(http.StatusOK, StatsResponse{
		ContextID:  s.ctx.ID.String(),
		BlockIndex: s.ctx.BlockIndex(),
		Sources:    s.ctx.SourceCount(),
		Effects:    s.ctx.EffectCount(),
		Routes:     s.ctx.RouteCount(),
		Handles:    s.ctx.Handles().Count(),
	})
}

// Run starts the HTTP listener on addr and blocks until ctx is canceled or
// startup fails, matching the teacher's httpapi.Server.Run shutdown
// ordering (stop accepting, wait up to 5s for in-flight requests, return).
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Printf("[diag] shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}
