//go:build windows

package winapi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	spiGetDeskWallpaper = 0x0073
	spiSetDeskWallpaper = 0x0014

	spifUpdateIniFile = 0x01
	spifSendChange    = 0x02
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
)

// WallpaperService calls SystemParametersInfoW directly; no process is spawned.
type WallpaperService struct{}

// NewWallpaperService creates a new Windows wallpaper service.
func NewWallpaperService() *WallpaperService {
	return &WallpaperService{}
}

// Set sets the desktop wallpaper and persists it to the user profile.
func (s *WallpaperService) Set(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("invalid wallpaper path: %w", err)
	}

	r, _, callErr := procSystemParametersInfoW.Call(
		spiSetDeskWallpaper,
		0,
		uintptr(unsafe.Pointer(p)),
		spifUpdateIniFile|spifSendChange,
	)
	if r == 0 {
		return fmt.Errorf("failed to set wallpaper: %w", callErr)
	}
	return nil
}

// Get returns the current desktop wallpaper path.
func (s *WallpaperService) Get() (string, error) {
	buf := make([]uint16, windows.MAX_PATH)

	r, _, callErr := procSystemParametersInfoW.Call(
		spiGetDeskWallpaper,
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&buf[0])),
		0,
	)
	if r == 0 {
		return "", fmt.Errorf("failed to get wallpaper: %w", callErr)
	}
	return windows.UTF16ToString(buf), nil
}
