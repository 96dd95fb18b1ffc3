package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkawower/wallscribe/internal/fetch"
	"github.com/darkawower/wallscribe/internal/workers"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 40), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func newPipeline(d Downloader) *Pipeline {
	return New(workers.New(2), d, nil)
}

type staticFetcher struct {
	data []byte
}

func (f staticFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.data, nil
}

func TestSaveAndLoad_PNG(t *testing.T) {
	p := newPipeline(nil)
	path := filepath.Join(t.TempDir(), "out.png")
	src := testImage()

	require.NoError(t, p.Save(context.Background(), src, path))

	loaded, err := p.LoadFromPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), loaded.Bounds())
	assert.Equal(t, src.Pix, loaded.Pix, "png must be lossless")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestSaveAndLoad_JPEG(t *testing.T) {
	p := newPipeline(nil)

	for _, name := range []string{"out.jpg", "out.jpeg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			src := testImage()

			require.NoError(t, p.Save(context.Background(), src, path))

			loaded, err := p.LoadFromPath(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), loaded.Bounds())

			got := loaded.NRGBAAt(4, 3)
			want := src.NRGBAAt(4, 3)
			assert.InDelta(t, want.R, got.R, 12)
			assert.InDelta(t, want.G, got.G, 12)
			assert.InDelta(t, want.B, got.B, 12)
		})
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	p := newPipeline(nil)
	dir := t.TempDir()

	for _, name := range []string{"a.PNG", "a.JPG", "a.gif", "a.webp", "noext"} {
		t.Run(name, func(t *testing.T) {
			err := p.Save(context.Background(), testImage(), filepath.Join(dir, name))
			assert.ErrorIs(t, err, ErrUnsupportedExtension)

			_, statErr := os.Stat(filepath.Join(dir, name))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("/x/a.png")
	require.NoError(t, err)
	assert.Equal(t, imaging.PNG, f)

	f, err = FormatFor("/x/a.jpeg")
	require.NoError(t, err)
	assert.Equal(t, imaging.JPEG, f)

	_, err = FormatFor("/x/a.png.bak")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
}

func TestWriteAtomic_KeepsPreviousFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.png")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	err := writeAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encoder exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode image")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestLoadFromPath_Errors(t *testing.T) {
	p := newPipeline(nil)
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := p.LoadFromPath(context.Background(), filepath.Join(dir, "missing.png"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
		assert.False(t, errors.Is(err, ErrDecode))
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.png")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0644))

		_, err := p.LoadFromPath(context.Background(), path)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestDecode_ProducesNRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	gray.SetGray(1, 1, color.Gray{Y: 200})

	img, err := Decode(bytes.NewReader(pngBytes(t, gray)))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, img.NRGBAAt(1, 1))
}

func TestLoadFromURL(t *testing.T) {
	dir := t.TempDir()
	d := fetch.NewDownloader(staticFetcher{data: pngBytes(t, testImage())}, dir, nil)
	p := newPipeline(d)

	img, local, err := p.LoadFromURL(context.Background(), "http://x/y.png")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(local))
	assert.Regexp(t, `^wallpaper\.\d+\.png$`, filepath.Base(local))
	assert.Equal(t, testImage().Pix, img.Pix)
}

func TestLoadFromURL_TempFileExistsBeforeDecode(t *testing.T) {
	dir := t.TempDir()
	d := fetch.NewDownloader(staticFetcher{data: []byte("<html>not an image</html>")}, dir, nil)
	p := newPipeline(d)

	_, local, err := p.LoadFromURL(context.Background(), "http://x/y.unknownext")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	assert.Regexp(t, `^wallpaper\.\d+\.jpg$`, filepath.Base(local))
	_, statErr := os.Stat(local)
	assert.NoError(t, statErr)
}

func TestLoadFromURL_NoDownloader(t *testing.T) {
	_, _, err := newPipeline(nil).LoadFromURL(context.Background(), "http://x/y.png")
	assert.Error(t, err)
}
