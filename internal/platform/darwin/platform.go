//go:build darwin

package darwin

import "github.com/darkawower/wallscribe/internal/platform"

func init() {
	platform.Register("darwin", func() platform.Platform {
		return New()
	})
}

// Platform implements platform.Platform for macOS.
type Platform struct {
	wallpaper *WallpaperService
}

// New creates a new macOS platform instance.
func New() *Platform {
	return &Platform{
		wallpaper: NewWallpaperService(),
	}
}

// Name returns the platform identifier.
func (p *Platform) Name() string {
	return "darwin"
}

// IsSupported returns true as macOS sets wallpapers natively.
func (p *Platform) IsSupported() bool {
	return true
}

// Wallpaper returns the wallpaper management service.
func (p *Platform) Wallpaper() platform.WallpaperService {
	return p.wallpaper
}

// Compile-time check that Platform implements platform.Platform.
var _ platform.Platform = (*Platform)(nil)
