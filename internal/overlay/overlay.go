// Package overlay draws text onto wallpaper buffers.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSize = 50.0
	DefaultDPI  = 72
)

// DefaultOrigin is the top-left corner of the first line of text.
var DefaultOrigin = image.Pt(10, 10)

// Style controls how text is drawn.
type Style struct {
	FontPath string
	Size     float64
	Color    color.Color
}

// DefaultStyle is opaque white Go Regular at size 50.
func DefaultStyle() Style {
	return Style{
		Size:  DefaultSize,
		Color: color.White,
	}
}

// Renderer draws text with a single font face.
type Renderer struct {
	mu    sync.Mutex
	face  font.Face
	color color.Color
}

// NewRenderer loads the font named by style, or the embedded Go Regular face.
func NewRenderer(style Style) (*Renderer, error) {
	data := goregular.TTF
	if style.FontPath != "" {
		b, err := os.ReadFile(style.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		data = b
	}

	size := style.Size
	if size <= 0 {
		size = DefaultSize
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     DefaultDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	col := style.Color
	if col == nil {
		col = color.White
	}

	return &Renderer{face: face, color: col}, nil
}

// DrawText draws text with its top-left corner at origin.
// Each line of a multi-line string starts one line height lower.
func (r *Renderer) DrawText(dst draw.Image, text string, origin image.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := r.face.Metrics()
	lineHeight := metrics.Height
	if lineHeight <= 0 {
		lineHeight = metrics.Ascent + metrics.Descent
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.color),
		Face: r.face,
	}

	baseline := fixed.I(origin.Y) + metrics.Ascent
	for _, line := range strings.Split(text, "\n") {
		d.Dot = fixed.Point26_6{X: fixed.I(origin.X), Y: baseline}
		d.DrawString(line)
		baseline += lineHeight
	}
}

// Measure returns the size of the box DrawText would cover.
func (r *Renderer) Measure(text string) image.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := r.face.Metrics()
	lineHeight := metrics.Height
	if lineHeight <= 0 {
		lineHeight = metrics.Ascent + metrics.Descent
	}

	lines := strings.Split(text, "\n")
	var width fixed.Int26_6
	for _, line := range lines {
		if w := font.MeasureString(r.face, line); w > width {
			width = w
		}
	}
	height := lineHeight*fixed.Int26_6(len(lines)-1) + metrics.Ascent + metrics.Descent
	return image.Pt(width.Ceil(), height.Ceil())
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 || hex == s {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
