//go:build windows

package winapi

import "github.com/darkawower/wallscribe/internal/platform"

func init() {
	platform.Register("windows", func() platform.Platform {
		return New()
	})
}

// Platform implements platform.Platform for Windows.
type Platform struct {
	wallpaper *WallpaperService
}

// New creates a new Windows platform instance.
func New() *Platform {
	return &Platform{wallpaper: NewWallpaperService()}
}

func (p *Platform) Name() string                         { return "windows" }
func (p *Platform) IsSupported() bool                    { return true }
func (p *Platform) Wallpaper() platform.WallpaperService { return p.wallpaper }

var _ platform.Platform = (*Platform)(nil)
