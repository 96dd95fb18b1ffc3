// Package detect decides which wallpaper backend the running desktop understands.
package detect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/darkawower/wallscribe/internal/backend"
	"github.com/darkawower/wallscribe/internal/platform"
)

// DefaultSessionEnv is the variable that names the desktop session.
const DefaultSessionEnv = "XDG_CURRENT_DESKTOP"

// ErrNoBackend means neither the session nor the installed tools matched.
var ErrNoBackend = errors.New("no usable wallpaper backend found")

var sessionTable = map[string]backend.Kind{
	"GNOME":        backend.SystemSettingsKeyValue,
	"ubuntu:GNOME": backend.SystemSettingsKeyValue,
	"XFCE":         backend.XfceConfigQuery,
	"KDE":          backend.PlasmaShellScript,
	"sway":         backend.SwayBackgroundDaemon,
	"Hyprland":     backend.SwayBackgroundDaemon,
}

// probeOrder lists the standalone tools tried when the session is unknown.
var probeOrder = []struct {
	program string
	kind    backend.Kind
}{
	{"nitrogen", backend.NitrogenTool},
	{"feh", backend.FehTool},
}

// FromSession maps a session identifier to a backend. Matching is exact.
func FromSession(session string) (backend.Kind, bool) {
	kind, ok := sessionTable[session]
	return kind, ok
}

// Prober reports whether a tool can be started.
type Prober interface {
	Probe(ctx context.Context, program string) bool
}

// ExecProber runs "<program> --version" and only cares whether it started.
type ExecProber struct{}

func (ExecProber) Probe(ctx context.Context, program string) bool {
	err := exec.CommandContext(ctx, program, "--version").Run()
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// Detector resolves the backend for the current machine.
type Detector struct {
	getenv     func(string) string
	prober     Prober
	platform   func() platform.Platform
	force      backend.Kind
	sessionEnv string
	logger     *zap.Logger
}

type Option func(*Detector)

func WithGetenv(fn func(string) string) Option {
	return func(d *Detector) { d.getenv = fn }
}

func WithProber(p Prober) Option {
	return func(d *Detector) { d.prober = p }
}

func WithPlatform(p platform.Platform) Option {
	return func(d *Detector) {
		d.platform = func() platform.Platform { return p }
	}
}

// WithForce skips detection and always returns kind.
func WithForce(kind backend.Kind) Option {
	return func(d *Detector) { d.force = kind }
}

func WithSessionEnv(name string) Option {
	return func(d *Detector) {
		if name != "" {
			d.sessionEnv = name
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{
		getenv:     os.Getenv,
		prober:     ExecProber{},
		platform:   platform.Current,
		sessionEnv: DefaultSessionEnv,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the backend to use. It never caches: every call re-reads
// the environment and re-probes.
func (d *Detector) Detect(ctx context.Context) (backend.Kind, error) {
	if p := d.platform(); p != nil && p.IsSupported() {
		d.logger.Debug("Using native wallpaper API", zap.String("platform", p.Name()))
		return backend.NativeOSApi, nil
	}

	if d.force != "" {
		d.logger.Debug("Using forced backend", zap.String("backend", string(d.force)))
		return d.force, nil
	}

	session := d.getenv(d.sessionEnv)
	if kind, ok := FromSession(session); ok {
		d.logger.Debug("Matched desktop session",
			zap.String("session", session),
			zap.String("backend", string(kind)))
		return kind, nil
	}

	for _, p := range probeOrder {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if d.prober.Probe(ctx, p.program) {
			d.logger.Debug("Found wallpaper tool", zap.String("program", p.program))
			return p.kind, nil
		}
	}

	return "", fmt.Errorf("%w (session %q)", ErrNoBackend, session)
}
