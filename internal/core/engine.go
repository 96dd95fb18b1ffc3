package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/backend"
	"github.com/darkawower/wallscribe/internal/colors"
	"github.com/darkawower/wallscribe/internal/config"
	"github.com/darkawower/wallscribe/internal/detect"
	"github.com/darkawower/wallscribe/internal/fetch"
	"github.com/darkawower/wallscribe/internal/overlay"
	"github.com/darkawower/wallscribe/internal/pipeline"
	"github.com/darkawower/wallscribe/internal/state"
	"github.com/darkawower/wallscribe/internal/wallpaper"
	"github.com/darkawower/wallscribe/internal/workers"
)

// ErrNoBaseWallpaper is returned by overlays before any wallpaper was set.
var ErrNoBaseWallpaper = errors.New("no base wallpaper set")

// DefaultPaletteSize is the number of colors Colors returns by default.
const DefaultPaletteSize = 5

// Engine owns the shared wallpaper buffer and serves every request against it.
type Engine struct {
	dispatcher *wallpaper.Dispatcher
	pipeline   *pipeline.Pipeline
	renderer   *overlay.Renderer
	shared     *state.Shared
	origin     image.Point
	logger     *zap.Logger

	mu          sync.RWMutex
	lastBackend backend.Kind
}

// Option is a function that configures the Engine.
type Option func(*Engine)

// WithOrigin moves the top-left corner of overlay text.
func WithOrigin(p image.Point) Option {
	return func(e *Engine) {
		e.origin = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithShared replaces the buffer the engine starts with.
func WithShared(s *state.Shared) Option {
	return func(e *Engine) {
		if s != nil {
			e.shared = s
		}
	}
}

// New creates an Engine from its collaborators.
func New(d *wallpaper.Dispatcher, p *pipeline.Pipeline, r *overlay.Renderer, opts ...Option) *Engine {
	e := &Engine{
		dispatcher: d,
		pipeline:   p,
		renderer:   r,
		shared:     state.New(),
		origin:     overlay.DefaultOrigin,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig wires an Engine with real processes, HTTP and codecs.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	detectOpts := []detect.Option{
		detect.WithSessionEnv(cfg.Backend.SessionEnv),
		detect.WithLogger(logger.Named("detect")),
	}
	if cfg.Backend.Force != "" {
		kind, err := backend.ParseKind(cfg.Backend.Force)
		if err != nil {
			return nil, fmt.Errorf("failed to configure backend: %w", err)
		}
		detectOpts = append(detectOpts, detect.WithForce(kind))
	}

	textColor, err := overlay.ParseColor(cfg.Overlay.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to configure overlay: %w", err)
	}
	renderer, err := overlay.NewRenderer(overlay.Style{
		FontPath: cfg.Overlay.Font,
		Size:     cfg.Overlay.Size,
		Color:    textColor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure overlay: %w", err)
	}

	pool := workers.New(cfg.Workers.Size)

	client := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout.Duration),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		fetch.WithLogger(logger.Named("fetch")),
	)
	downloader := fetch.NewDownloader(client, config.GetTempDir(), logger.Named("fetch"))

	dispatcher := wallpaper.NewDispatcher(
		detect.New(detectOpts...),
		backend.NewProcessSpawner(logger.Named("spawn")),
		wallpaper.WithDownloader(downloader),
		wallpaper.WithPool(pool),
		wallpaper.WithLogger(logger.Named("dispatch")),
	)

	pipe := pipeline.New(pool, downloader, logger.Named("pipeline"))

	logger.Debug("Engine configured",
		zap.Int("workers", pool.Size()),
		zap.String("downloads", downloader.Dir()))

	return New(dispatcher, pipe, renderer,
		WithOrigin(image.Pt(cfg.Overlay.X, cfg.Overlay.Y)),
		WithLogger(logger),
	), nil
}

// SetBaseWallpaperPath shows the image at path and loads it into the buffer.
// The image is decoded first so an unreadable file never reaches the desktop.
func (e *Engine) SetBaseWallpaperPath(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	img, err := e.pipeline.LoadFromPath(ctx, absPath)
	if err != nil {
		return err
	}

	kind, err := e.dispatcher.Apply(ctx, absPath)
	if err != nil {
		return err
	}

	e.shared.Load(img, state.PathSource(absPath))
	e.setBackend(kind)

	e.logger.Info("Base wallpaper set",
		zap.String("path", absPath),
		zap.String("backend", string(kind)))
	return nil
}

// SetBaseWallpaperURL downloads url, shows it and loads it into the buffer.
func (e *Engine) SetBaseWallpaperURL(ctx context.Context, url string) error {
	img, local, err := e.pipeline.LoadFromURL(ctx, url)
	if err != nil {
		if local != "" {
			os.Remove(local)
		}
		return err
	}

	kind, err := e.dispatcher.Apply(ctx, local)
	if err != nil {
		return err
	}

	e.shared.Load(img, state.URLSource(url, local))
	e.setBackend(kind)

	e.logger.Info("Base wallpaper set",
		zap.String("url", url),
		zap.String("path", local),
		zap.String("backend", string(kind)))
	return nil
}

// OverlayTextAndReapply draws text onto the buffer, writes the buffer over
// the base wallpaper file and shows it again. The edit is committed only
// once the desktop shows it; on a failed re-apply the file is rewritten
// from the unedited buffer.
func (e *Engine) OverlayTextAndReapply(ctx context.Context, text string) error {
	var path string
	err := e.shared.WithMutable(func(img *image.NRGBA, src state.Source) error {
		if src.LocalPath == "" {
			return ErrNoBaseWallpaper
		}
		path = src.LocalPath

		before := imaging.Clone(img)
		e.renderer.DrawText(img, text, e.origin)
		if err := e.pipeline.Save(ctx, img, path); err != nil {
			return err
		}

		kind, err := e.dispatcher.Apply(ctx, path)
		if err != nil {
			if rerr := e.pipeline.Save(context.WithoutCancel(ctx), before, path); rerr != nil {
				e.logger.Error("Failed to restore base wallpaper",
					zap.String("path", path),
					zap.Error(rerr))
			}
			return err
		}
		e.setBackend(kind)
		return nil
	})
	if err != nil {
		return err
	}

	box := e.renderer.Measure(text)
	e.logger.Info("Overlay applied",
		zap.String("path", path),
		zap.Int("chars", len(text)),
		zap.Int("width", box.X),
		zap.Int("height", box.Y))
	return nil
}

// Apply shows target once without touching the buffer. target may be a
// path or an http(s) URL. With dryRun nothing is downloaded or spawned.
func (e *Engine) Apply(ctx context.Context, target string, dryRun bool) (ApplyResult, error) {
	if isURL(target) {
		if dryRun {
			return ApplyResult{Path: target, DryRun: true}, nil
		}
		local, kind, err := e.dispatcher.ApplyFromURL(ctx, target)
		if err != nil {
			return ApplyResult{Path: local}, err
		}
		return ApplyResult{Path: local, Backend: string(kind)}, nil
	}

	plan, err := e.dispatcher.Resolve(ctx, target)
	if err != nil {
		return ApplyResult{}, err
	}
	result := ApplyResult{
		Path:    plan.Path,
		Backend: string(plan.Backend.Kind),
		DryRun:  dryRun,
	}
	if !plan.Command.IsZero() {
		result.Command = plan.Command.String()
	}
	if dryRun {
		return result, nil
	}

	if _, err := e.dispatcher.Apply(ctx, plan.Path); err != nil {
		return result, err
	}
	return result, nil
}

// Detect reports the backend that would be used right now.
func (e *Engine) Detect(ctx context.Context) (wallpaper.Plan, error) {
	return e.dispatcher.Resolve(ctx, "wallpaper.png")
}

func (e *Engine) Status() Status {
	b := e.shared.Bounds()
	return statusFrom(e.shared.Source(), b.Dx(), b.Dy(), string(e.backend()))
}

// Colors returns the n dominant colors of the buffer.
func (e *Engine) Colors(n int) (Palette, error) {
	if n <= 0 {
		n = DefaultPaletteSize
	}
	swatches, err := colors.Dominant(e.shared.Snapshot(), n)
	if err != nil {
		return Palette{}, err
	}
	return Palette{Colors: swatches}, nil
}

// Snapshot returns a copy of the buffer.
func (e *Engine) Snapshot() *image.NRGBA {
	return e.shared.Snapshot()
}

func (e *Engine) setBackend(kind backend.Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastBackend = kind
}

func (e *Engine) backend() backend.Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastBackend
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsRetryable reports whether resubmitting the same request may succeed.
// Network and spawn failures are transient; everything else needs new input.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, fetch.ErrNetwork) || errors.Is(err, backend.ErrSpawnFailed)
}
