package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/core"
	"github.com/darkawower/wallscribe/internal/detect"
	"github.com/darkawower/wallscribe/internal/pipeline"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is the body of every reply.
type Response struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type PathRequest struct {
	Path string `json:"path"`
}

type URLRequest struct {
	URL string `json:"url"`
}

type TextRequest struct {
	Text string `json:"text"`
}

// GET /status
func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: StatusOK, Data: s.engine.Status()})
}

// GET /colors?n=5
func (s *Server) colors(c echo.Context) error {
	n := core.DefaultPaletteSize
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return badRequest(c, "n must be a positive integer")
		}
		n = v
	}

	palette, err := s.engine.Colors(n)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Status: StatusOK, Data: palette})
}

// POST /wallpaper/path
func (s *Server) setPath(c echo.Context) error {
	var req PathRequest
	if err := c.Bind(&req); err != nil || req.Path == "" {
		return badRequest(c, "expected JSON body with a non-empty \"path\"")
	}

	if err := s.engine.SetBaseWallpaperPath(c.Request().Context(), req.Path); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Status: StatusOK, Data: s.engine.Status()})
}

// POST /wallpaper/url
func (s *Server) setURL(c echo.Context) error {
	var req URLRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return badRequest(c, "expected JSON body with a non-empty \"url\"")
	}

	if err := s.engine.SetBaseWallpaperURL(c.Request().Context(), req.URL); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Status: StatusOK, Data: s.engine.Status()})
}

// POST /wallpaper/text
func (s *Server) overlay(c echo.Context) error {
	var req TextRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "expected JSON body with \"text\"")
	}

	if err := s.engine.OverlayTextAndReapply(c.Request().Context(), req.Text); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Status: StatusOK, Data: s.engine.Status()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, Response{Status: StatusError, Error: msg})
}

func (s *Server) fail(c echo.Context, err error) error {
	code := statusCode(err)
	s.logger.Warn("Request failed",
		zap.String("path", c.Request().URL.Path),
		zap.Int("status", code),
		zap.Error(err))

	return c.JSON(code, Response{
		Status:    StatusError,
		Error:     err.Error(),
		Retryable: core.IsRetryable(err),
	})
}

// statusCode maps engine errors to HTTP statuses: bad input is 422,
// failures of the network or of spawned tools are 502.
func statusCode(err error) int {
	switch {
	case errors.Is(err, detect.ErrNoBackend),
		errors.Is(err, pipeline.ErrUnsupportedExtension),
		errors.Is(err, pipeline.ErrDecode),
		errors.Is(err, core.ErrNoBaseWallpaper):
		return http.StatusUnprocessableEntity
	case core.IsRetryable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
