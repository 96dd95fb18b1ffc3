// Package winapi provides the Windows native wallpaper implementation.
package winapi
