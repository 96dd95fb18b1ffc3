// Package colors finds the dominant colors of a wallpaper buffer.
package colors

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/disintegration/imaging"
)

const (
	sampleEdge    = 200
	maxIterations = 20
)

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Swatch is a dominant color with the share of sampled pixels it covers.
type Swatch struct {
	Color Color   `json:"-"`
	Hex   string  `json:"hex"`
	Share float64 `json:"share"`
}

// Fixed PCG seeds make the palette of an image stable across calls.
const (
	seedHi = 0x77616c6c
	seedLo = 0x73637269
)

// Dominant clusters the visible pixels of img into at most topN colors,
// most common first.
func Dominant(img image.Image, topN int) ([]Swatch, error) {
	if topN < 1 {
		return nil, fmt.Errorf("color count must be at least 1")
	}

	sample := imaging.Fit(img, sampleEdge, sampleEdge, imaging.Box)

	pixels := opaquePixels(sample)
	if len(pixels) == 0 {
		return nil, fmt.Errorf("image has no visible pixels")
	}

	clusters := kmeans(pixels, topN, rand.New(rand.NewPCG(seedHi, seedLo)))
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].count > clusters[j].count
	})

	swatches := make([]Swatch, 0, len(clusters))
	for _, c := range clusters {
		if c.count == 0 {
			continue
		}
		swatches = append(swatches, Swatch{
			Color: c.center,
			Hex:   c.center.Hex(),
			Share: float64(c.count) / float64(len(pixels)),
		})
	}
	return swatches, nil
}

// opaquePixels skips pixels that are more than half transparent.
func opaquePixels(img *image.NRGBA) []Color {
	b := img.Bounds()
	pixels := make([]Color, 0, b.Dx()*b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.A < 128 {
				continue
			}
			pixels = append(pixels, Color{R: c.R, G: c.G, B: c.B})
		}
	}
	return pixels
}

type cluster struct {
	center Color
	count  int
}

func kmeans(pixels []Color, k int, rng *rand.Rand) []cluster {
	if len(pixels) < k {
		k = len(pixels)
	}

	centers := make([]Color, k)
	for i, idx := range rng.Perm(len(pixels))[:k] {
		centers[i] = pixels[idx]
	}

	owner := make([]int, len(pixels))
	for iter := 0; iter < maxIterations; iter++ {
		for i, p := range pixels {
			owner[i] = nearest(p, centers)
		}

		sums := make([][3]int, k)
		counts := make([]int, k)
		for i, p := range pixels {
			c := owner[i]
			counts[c]++
			sums[c][0] += int(p.R)
			sums[c][1] += int(p.G)
			sums[c][2] += int(p.B)
		}

		moved := false
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			next := Color{
				R: uint8(sums[c][0] / counts[c]),
				G: uint8(sums[c][1] / counts[c]),
				B: uint8(sums[c][2] / counts[c]),
			}
			if next != centers[c] {
				centers[c] = next
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	out := make([]cluster, k)
	for c := range centers {
		out[c].center = centers[c]
	}
	for _, p := range pixels {
		out[nearest(p, centers)].count++
	}
	return out
}

func nearest(p Color, centers []Color) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range centers {
		if d := distance(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// distance is the squared Euclidean distance in RGB space.
func distance(a, b Color) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return dr*dr + dg*dg + db*db
}
