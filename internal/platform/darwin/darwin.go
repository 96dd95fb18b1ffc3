// Package darwin provides the macOS native wallpaper implementation.
package darwin
