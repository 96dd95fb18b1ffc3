// Package wallpaper applies an image file as the desktop background.
package wallpaper

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/backend"
	"github.com/darkawower/wallscribe/internal/platform"
	"github.com/darkawower/wallscribe/internal/workers"
)

// Detector picks the backend for the running desktop.
type Detector interface {
	Detect(ctx context.Context) (backend.Kind, error)
}

// Downloader stores a remote image locally.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Plan is what Apply would do for a path.
type Plan struct {
	Backend backend.Backend
	Path    string
	Command backend.Command
}

// Dispatcher turns "show this file" into the right OS call.
type Dispatcher struct {
	detector   Detector
	spawner    backend.Spawner
	native     func() platform.WallpaperService
	downloader Downloader
	pool       *workers.Pool
	logger     *zap.Logger
}

type Option func(*Dispatcher)

func WithDownloader(d Downloader) Option {
	return func(w *Dispatcher) { w.downloader = d }
}

func WithPool(p *workers.Pool) Option {
	return func(w *Dispatcher) {
		if p != nil {
			w.pool = p
		}
	}
}

// WithNative overrides the native wallpaper service.
func WithNative(svc platform.WallpaperService) Option {
	return func(w *Dispatcher) {
		w.native = func() platform.WallpaperService { return svc }
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Dispatcher) {
		if l != nil {
			w.logger = l
		}
	}
}

func NewDispatcher(detector Detector, spawner backend.Spawner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		detector: detector,
		spawner:  spawner,
		native:   func() platform.WallpaperService { return platform.Current().Wallpaper() },
		pool:     workers.New(1),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve detects the backend and formats its command for path without
// running anything.
func (d *Dispatcher) Resolve(ctx context.Context, path string) (Plan, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	kind, err := d.detector.Detect(ctx)
	if err != nil {
		return Plan{}, err
	}

	b, err := backend.Lookup(kind)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Backend: b,
		Path:    absPath,
		Command: b.FormatCommand(absPath),
	}, nil
}

// Apply makes path the desktop background. Each call is one attempt.
func (d *Dispatcher) Apply(ctx context.Context, path string) (backend.Kind, error) {
	plan, err := d.Resolve(ctx, path)
	if err != nil {
		return "", err
	}

	err = d.pool.Do(ctx, func() error {
		if plan.Backend.Strategy == backend.StrategyNative {
			return d.native().Set(plan.Path)
		}
		return plan.Backend.Execute(d.spawner, plan.Command)
	})
	if err != nil {
		d.logger.Error("Failed to apply wallpaper",
			zap.String("backend", string(plan.Backend.Kind)),
			zap.String("path", plan.Path),
			zap.Error(err))
		return plan.Backend.Kind, fmt.Errorf("failed to set wallpaper with %s: %w", plan.Backend.Kind, err)
	}

	d.logger.Info("Wallpaper applied",
		zap.String("backend", string(plan.Backend.Kind)),
		zap.String("path", plan.Path))

	return plan.Backend.Kind, nil
}

// ApplyFromURL downloads url to a temp file and applies it.
// It returns the temp file path and the backend that showed it.
func (d *Dispatcher) ApplyFromURL(ctx context.Context, url string) (string, backend.Kind, error) {
	if d.downloader == nil {
		return "", "", fmt.Errorf("no downloader configured")
	}

	var local string
	err := d.pool.Do(ctx, func() error {
		var err error
		local, err = d.downloader.Download(ctx, url)
		return err
	})
	if err != nil {
		return "", "", err
	}

	kind, err := d.Apply(ctx, local)
	if err != nil {
		return local, "", err
	}
	return local, kind, nil
}
