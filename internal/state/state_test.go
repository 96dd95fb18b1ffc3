package state

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNew_Placeholder(t *testing.T) {
	s := New()

	assert.Equal(t, image.Rect(0, 0, 100, 100), s.Bounds())
	assert.Equal(t, color.NRGBA{}, s.Snapshot().NRGBAAt(50, 50))
	assert.Equal(t, SourceNone, s.Source().Kind)
}

func TestLoad(t *testing.T) {
	s := New()
	red := filled(4, 3, color.NRGBA{R: 255, A: 255})

	s.Load(red, PathSource("/img/a.png"))
	assert.Equal(t, image.Rect(0, 0, 4, 3), s.Bounds())
	assert.Equal(t, "/img/a.png", s.Source().LocalPath)

	s.Load(nil, PathSource("/img/b.png"))
	assert.Equal(t, image.Rect(0, 0, 4, 3), s.Bounds(), "nil must not clear the buffer")
	assert.Equal(t, "/img/a.png", s.Source().LocalPath, "nil must not change the source")
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New()
	s.Load(filled(2, 2, color.NRGBA{G: 255, A: 255}), PathSource("/a.png"))

	snap := s.Snapshot()
	snap.SetNRGBA(0, 0, color.NRGBA{B: 255, A: 255})

	assert.Equal(t, color.NRGBA{G: 255, A: 255}, s.Snapshot().NRGBAAt(0, 0))
}

func TestWithMutable(t *testing.T) {
	s := New()
	s.Load(filled(2, 2, color.NRGBA{A: 255}), PathSource("/a.png"))

	t.Run("commits on success", func(t *testing.T) {
		err := s.WithMutable(func(img *image.NRGBA, _ Source) error {
			img.SetNRGBA(1, 1, color.NRGBA{R: 9, A: 255})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 9, A: 255}, s.Snapshot().NRGBAAt(1, 1))
	})

	t.Run("discards on error", func(t *testing.T) {
		want := errors.New("encode failed")
		err := s.WithMutable(func(img *image.NRGBA, _ Source) error {
			img.SetNRGBA(0, 0, color.NRGBA{B: 7, A: 255})
			return want
		})
		assert.ErrorIs(t, err, want)
		assert.Equal(t, color.NRGBA{A: 255}, s.Snapshot().NRGBAAt(0, 0))
	})
}

func TestWithMutable_NeverInterleaves(t *testing.T) {
	s := New()
	s.Load(filled(64, 1, color.NRGBA{}), PathSource("/a.png"))

	const writers = 16
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(v uint8) {
			defer wg.Done()
			_ = s.WithMutable(func(img *image.NRGBA, _ Source) error {
				for x := 0; x < 64; x++ {
					img.SetNRGBA(x, 0, color.NRGBA{R: v, A: 255})
				}
				return nil
			})
		}(uint8(i))
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			first := snap.NRGBAAt(0, 0)
			for x := 1; x < 64; x++ {
				if snap.NRGBAAt(x, 0) != first {
					t.Errorf("torn buffer at x=%d", x)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestWithMutable_SequentialEditsAccumulate(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			_ = s.WithMutable(func(img *image.NRGBA, _ Source) error {
				img.SetNRGBA(x, 0, color.NRGBA{R: 255, A: 255})
				return nil
			})
		}(i * 10)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, uint8(255), snap.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), snap.NRGBAAt(10, 0).R)
}

func TestSource(t *testing.T) {
	s := New()
	img := filled(1, 1, color.NRGBA{A: 255})

	s.Load(img, PathSource("/img/a.png"))
	assert.Equal(t, Source{Kind: SourcePath, Value: "/img/a.png", LocalPath: "/img/a.png"}, s.Source())

	s.Load(img, URLSource("http://x/y.png", "/tmp/wallpaper.1.png"))
	assert.Equal(t, Source{Kind: SourceURL, Value: "http://x/y.png", LocalPath: "/tmp/wallpaper.1.png"}, s.Source())

	s.Load(img, PathSource("/img/b.jpg"))
	assert.Equal(t, SourcePath, s.Source().Kind)
	assert.Equal(t, "/img/b.jpg", s.Source().Value)
}

func TestWithMutable_SeesSourceOfBuffer(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			s.Load(filled(w, 1, color.NRGBA{A: 255}), PathSource(fmt.Sprintf("/img/%d.png", w)))
		}(i)
	}
	wg.Wait()

	err := s.WithMutable(func(img *image.NRGBA, src Source) error {
		assert.Equal(t, fmt.Sprintf("/img/%d.png", img.Bounds().Dx()), src.LocalPath)
		return nil
	})
	require.NoError(t, err)
}

func TestSourceKind_String(t *testing.T) {
	assert.Equal(t, "none", SourceNone.String())
	assert.Equal(t, "path", SourcePath.String())
	assert.Equal(t, "url", SourceURL.String())
}
