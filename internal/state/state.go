// Package state holds the in-memory copy of the current wallpaper.
package state

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// PlaceholderSize is the edge of the transparent image held before any load.
const PlaceholderSize = 100

// SourceKind tells whether the base wallpaper came from disk or the network.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourcePath
	SourceURL
)

func (k SourceKind) String() string {
	switch k {
	case SourcePath:
		return "path"
	case SourceURL:
		return "url"
	default:
		return "none"
	}
}

// Source describes the base wallpaper.
type Source struct {
	Kind  SourceKind
	Value string
	// LocalPath is the file the OS shows. For a URL source it is the
	// downloaded temp file.
	LocalPath string
}

// Shared is the single pixel buffer every request reads and edits, paired
// with the source it was loaded from. Both are guarded by one lock so a
// buffer is never written back over another source's file.
type Shared struct {
	mu     sync.Mutex
	img    *image.NRGBA
	source Source
}

// New creates a Shared holding a transparent placeholder.
func New() *Shared {
	return &Shared{
		img: image.NewNRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize)),
	}
}

// Load swaps in a freshly loaded image together with its source.
func (s *Shared) Load(img *image.NRGBA, src Source) {
	if img == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = img
	s.source = src
}

// WithMutable runs fn with exclusive access to a working copy of the buffer
// and the source it belongs to. The copy becomes the buffer only when fn
// returns nil.
func (s *Shared) WithMutable(fn func(img *image.NRGBA, src Source) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := imaging.Clone(s.img)
	if err := fn(work, s.source); err != nil {
		return err
	}
	s.img = work
	return nil
}

// Snapshot returns a deep copy of the buffer.
func (s *Shared) Snapshot() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imaging.Clone(s.img)
}

func (s *Shared) Bounds() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.Bounds()
}

// PathSource describes a local file used as the base wallpaper.
func PathSource(path string) Source {
	return Source{Kind: SourcePath, Value: path, LocalPath: path}
}

// URLSource describes a remote image and the temp file it was saved to.
func URLSource(rawURL, localPath string) Source {
	return Source{Kind: SourceURL, Value: rawURL, LocalPath: localPath}
}

func (s *Shared) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}
