// Package server exposes the engine over HTTP on a unix socket so the shared
// wallpaper buffer outlives a single command.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/core"
)

// Engine is the part of core.Engine the server calls.
type Engine interface {
	SetBaseWallpaperPath(ctx context.Context, path string) error
	SetBaseWallpaperURL(ctx context.Context, url string) error
	OverlayTextAndReapply(ctx context.Context, text string) error
	Status() core.Status
	Colors(n int) (core.Palette, error)
}

type Server struct {
	echo   *echo.Echo
	engine Engine
	logger *zap.Logger
}

func New(engine Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{echo: e, engine: engine, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/status", s.status)
	s.echo.GET("/colors", s.colors)
	s.echo.POST("/wallpaper/path", s.setPath)
	s.echo.POST("/wallpaper/url", s.setURL)
	s.echo.POST("/wallpaper/text", s.overlay)
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve listens on socketPath until ctx is done. A stale socket file left by
// a previous run is removed first.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	s.echo.Listener = listener
	s.logger.Info("Command server listening", zap.String("socket", socketPath))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.StartServer(s.echo.Server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("socket server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	<-errCh

	s.logger.Info("Command server stopped")
	return nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Debug("Handled request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)))
			return nil
		}
	}
}
