// Package pipeline loads images into pixel buffers and writes them back to disk.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/darkawower/wallscribe/internal/workers"
)

var (
	ErrDecode               = errors.New("failed to decode image")
	ErrUnsupportedExtension = errors.New("unsupported image extension")
)

// Downloader stores a remote image locally and returns the local path.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Pipeline runs decode, download and encode work on a worker pool.
type Pipeline struct {
	pool       *workers.Pool
	downloader Downloader
	logger     *zap.Logger
}

func New(pool *workers.Pool, downloader Downloader, logger *zap.Logger) *Pipeline {
	if pool == nil {
		pool = workers.New(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		pool:       pool,
		downloader: downloader,
		logger:     logger,
	}
}

// LoadFromPath decodes the image at path.
func (p *Pipeline) LoadFromPath(ctx context.Context, path string) (*image.NRGBA, error) {
	var img *image.NRGBA
	err := p.pool.Do(ctx, func() error {
		var err error
		img, err = decodeFile(path)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Loaded image",
		zap.String("path", path),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	return img, nil
}

// LoadFromURL downloads url to a temp file, decodes it and returns both the
// image and the temp file path. The file is on disk before decoding starts.
func (p *Pipeline) LoadFromURL(ctx context.Context, url string) (*image.NRGBA, string, error) {
	if p.downloader == nil {
		return nil, "", fmt.Errorf("no downloader configured")
	}

	var local string
	err := p.pool.Do(ctx, func() error {
		var err error
		local, err = p.downloader.Download(ctx, url)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	img, err := p.LoadFromPath(ctx, local)
	if err != nil {
		return nil, local, err
	}
	return img, local, nil
}

// Save encodes img to path. The encoder is picked from the path suffix:
// ".png" or ".jpg"/".jpeg", matched case-sensitively.
func (p *Pipeline) Save(ctx context.Context, img image.Image, path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	err = p.pool.Do(ctx, func() error {
		return writeAtomic(path, func(w io.Writer) error {
			return Encode(w, img, format)
		})
	})
	if err != nil {
		return err
	}

	p.logger.Debug("Saved image", zap.String("path", path))
	return nil
}

// FormatFor maps a file name to its encoder.
func FormatFor(path string) (imaging.Format, error) {
	switch {
	case strings.HasSuffix(path, ".png"):
		return imaging.PNG, nil
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return imaging.JPEG, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(path))
	}
}

// Encode writes img as PNG, or as JPEG at quality 100.
func Encode(w io.Writer, img image.Image, format imaging.Format) error {
	switch format {
	case imaging.PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case imaging.JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(100))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedExtension, format)
	}
}

// Decode reads any registered format into an NRGBA buffer.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return imaging.Clone(img), nil
}

func decodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// writeAtomic writes through a sibling temp file so a failed encode leaves
// the previous file untouched.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
