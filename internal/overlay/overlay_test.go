package overlay

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
)

func blackCanvas(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// inkBounds returns the smallest rectangle containing non-black pixels.
func inkBounds(img *image.NRGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				continue
			}
			r = r.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return r
}

func TestDrawText_DefaultStyle(t *testing.T) {
	r, err := NewRenderer(DefaultStyle())
	require.NoError(t, err)

	img := blackCanvas(400, 120)
	r.DrawText(img, "Hello", DefaultOrigin)

	ink := inkBounds(img)
	require.False(t, ink.Empty(), "text must leave ink")

	assert.GreaterOrEqual(t, ink.Min.X, 10)
	assert.GreaterOrEqual(t, ink.Min.Y, 10)
	assert.Less(t, ink.Min.X, 20, "text starts near the left anchor")
	assert.Less(t, ink.Min.Y, 25, "cap height starts near the top anchor")
	assert.Greater(t, ink.Dy(), 25, "size 50 glyphs are tall")

	var white bool
	for y := ink.Min.Y; y < ink.Max.Y && !white; y++ {
		for x := ink.Min.X; x < ink.Max.X; x++ {
			if img.NRGBAAt(x, y) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				white = true
				break
			}
		}
	}
	assert.True(t, white, "glyph interiors are opaque white")
}

func TestDrawText_MultiLine(t *testing.T) {
	r, err := NewRenderer(Style{Size: 20, Color: color.White})
	require.NoError(t, err)

	one := blackCanvas(200, 200)
	r.DrawText(one, "Ab", image.Pt(5, 5))

	two := blackCanvas(200, 200)
	r.DrawText(two, "Ab\nAb", image.Pt(5, 5))

	assert.Greater(t, inkBounds(two).Dy(), inkBounds(one).Dy()+15)
}

func TestDrawText_Color(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	r, err := NewRenderer(Style{Size: 40, Color: red})
	require.NoError(t, err)

	img := blackCanvas(200, 80)
	r.DrawText(img, "H", image.Pt(10, 10))

	ink := inkBounds(img)
	require.False(t, ink.Empty())
	for y := ink.Min.Y; y < ink.Max.Y; y++ {
		for x := ink.Min.X; x < ink.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			assert.Zero(t, c.G)
			assert.Zero(t, c.B)
		}
	}
}

func TestDrawText_ClipsOutsideCanvas(t *testing.T) {
	r, err := NewRenderer(DefaultStyle())
	require.NoError(t, err)

	img := blackCanvas(20, 20)
	assert.NotPanics(t, func() {
		r.DrawText(img, "a very long line of text", DefaultOrigin)
	})
}

func TestMeasure(t *testing.T) {
	r, err := NewRenderer(DefaultStyle())
	require.NoError(t, err)

	single := r.Measure("Hello")
	assert.Greater(t, single.X, 50)
	assert.Greater(t, single.Y, 40)

	double := r.Measure("Hello\nHello")
	assert.Equal(t, single.X, double.X)
	assert.Greater(t, double.Y, single.Y)
}

func TestNewRenderer_FontFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.ttf")
	require.NoError(t, os.WriteFile(path, gomono.TTF, 0644))

	r, err := NewRenderer(Style{FontPath: path, Size: 30})
	require.NoError(t, err)

	img := blackCanvas(200, 60)
	r.DrawText(img, "x", image.Pt(0, 0))
	assert.False(t, inkBounds(img).Empty())
}

func TestNewRenderer_Errors(t *testing.T) {
	_, err := NewRenderer(Style{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})
	assert.ErrorContains(t, err, "failed to read font file")

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(bad, []byte("not a font"), 0644))
	_, err = NewRenderer(Style{FontPath: bad})
	assert.ErrorContains(t, err, "failed to parse font")
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#ffffff", want: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{in: "#ffffffff", want: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{in: "#10203040", want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{in: "#FF0000", want: color.NRGBA{R: 255, A: 255}},
		{in: "ffffff", wantErr: true},
		{in: "#fff", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
