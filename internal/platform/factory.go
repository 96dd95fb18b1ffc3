package platform

import (
	"errors"
	"runtime"
	"sync"
)

var ErrUnsupported = errors.New("operation not supported on this platform")

type platformBuilder func() Platform

var (
	registry     = make(map[string]platformBuilder)
	registryLock sync.RWMutex
)

// Register makes a native platform available for osName (a runtime.GOOS value).
func Register(osName string, builder platformBuilder) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[osName] = builder
}

var (
	current     Platform
	currentOnce sync.Once
	currentLock sync.RWMutex
)

// Current returns the platform for the running OS.
func Current() Platform {
	currentOnce.Do(func() {
		p := newPlatform(runtime.GOOS)
		currentLock.Lock()
		current = p
		currentLock.Unlock()
	})
	currentLock.RLock()
	defer currentLock.RUnlock()
	return current
}

func newPlatform(osName string) Platform {
	registryLock.RLock()
	defer registryLock.RUnlock()

	if builder, ok := registry[osName]; ok {
		return builder()
	}

	return &unsupportedPlatform{name: osName}
}

type unsupportedPlatform struct {
	name string
}

func (p *unsupportedPlatform) Name() string                { return p.name }
func (p *unsupportedPlatform) IsSupported() bool           { return false }
func (p *unsupportedPlatform) Wallpaper() WallpaperService { return &unsupportedWallpaper{} }

type unsupportedWallpaper struct{}

func (s *unsupportedWallpaper) Set(path string) error { return ErrUnsupported }
func (s *unsupportedWallpaper) Get() (string, error)  { return "", ErrUnsupported }

// SetPlatform overrides the current platform, mostly for tests.
func SetPlatform(p Platform) {
	currentOnce.Do(func() {})
	currentLock.Lock()
	current = p
	currentLock.Unlock()
}

// ResetPlatform forgets any override so Current detects again.
func ResetPlatform() {
	currentLock.Lock()
	currentOnce = sync.Once{}
	current = nil
	currentLock.Unlock()
}
