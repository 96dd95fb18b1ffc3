package fetch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultExtension is used when the URL path has no recognised image extension.
const DefaultExtension = "jpg"

var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tif":  true,
	"tiff": true,
}

// Extension returns the image extension of rawURL's path, without the dot.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultExtension
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if !imageExtensions[ext] {
		return DefaultExtension
	}
	return ext
}

// TempName returns "wallpaper.<n>.<ext>" for a random 64-bit n.
func TempName(ext string) string {
	return fmt.Sprintf("wallpaper.%d.%s", rand.Uint64(), ext)
}

// Downloader saves remote images under a temp directory.
type Downloader struct {
	fetcher Fetcher
	dir     string
	logger  *zap.Logger
}

// NewDownloader writes into dir, or os.TempDir() when dir is empty.
func NewDownloader(f Fetcher, dir string, logger *zap.Logger) *Downloader {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{fetcher: f, dir: dir, logger: logger}
}

// Dir is where downloads are written.
func (d *Downloader) Dir() string {
	return d.dir
}

// Download fetches rawURL into a new temp file and returns its path.
// The file is flushed to disk before Download returns.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	data, err := d.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(d.dir, TempName(Extension(rawURL)))
	if err := writeSynced(dest, data); err != nil {
		return "", err
	}

	d.logger.Debug("Downloaded wallpaper",
		zap.String("url", rawURL),
		zap.String("path", dest))

	return dest, nil
}

func writeSynced(dest string, data []byte) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("%w: failed to create file: %v", ErrIO, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: failed to write file: %v", ErrIO, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: failed to flush file: %v", ErrIO, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: failed to flush file: %v", ErrIO, err)
	}

	return nil
}
