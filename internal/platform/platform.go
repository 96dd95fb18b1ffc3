// Package platform provides OS-agnostic access to native wallpaper APIs.
package platform

// Platform provides access to OS-specific services.
type Platform interface {
	// Name returns the platform identifier (e.g., "darwin", "linux", "windows").
	Name() string

	// IsSupported returns true if the OS offers a native wallpaper API.
	// When false, the desktop session decides which backend is used.
	IsSupported() bool

	// Wallpaper returns the native wallpaper service.
	Wallpaper() WallpaperService
}

// WallpaperService manages desktop wallpaper through an OS API.
type WallpaperService interface {
	// Set sets the desktop wallpaper to the specified image path.
	Set(path string) error

	// Get returns the current desktop wallpaper path.
	Get() (string, error)
}
