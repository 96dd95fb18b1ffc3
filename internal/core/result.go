// Package core ties detection, dispatch, the image pipeline and the shared
// wallpaper buffer into the operations exposed to clients.
package core

import (
	"github.com/darkawower/wallscribe/internal/colors"
	"github.com/darkawower/wallscribe/internal/state"
)

// Status describes the current base wallpaper.
type Status struct {
	// SourceKind is "none", "path" or "url".
	SourceKind string `json:"source_kind"`

	// Source is the path or URL the wallpaper was set from.
	Source string `json:"source,omitempty"`

	// LocalPath is the file shown on the desktop and rewritten by overlays.
	LocalPath string `json:"local_path,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Backend is the backend used by the last successful apply.
	Backend string `json:"backend,omitempty"`
}

// ApplyResult is returned by the one-shot apply command.
type ApplyResult struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
	Command string `json:"command,omitempty"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// Palette lists the dominant colors of the shared buffer.
type Palette struct {
	Colors []colors.Swatch `json:"colors"`
}

func statusFrom(src state.Source, width, height int, backend string) Status {
	return Status{
		SourceKind: src.Kind.String(),
		Source:     src.Value,
		LocalPath:  src.LocalPath,
		Width:      width,
		Height:     height,
		Backend:    backend,
	}
}
