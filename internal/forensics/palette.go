package forensics

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
)

const (
	// DefaultPaletteSize is the number of colors kept when callers do not pick one.
	DefaultPaletteSize = 6

	// DefaultPaletteStride samples every 10th pixel.
	DefaultPaletteStride = 10
)

// PaletteEntry is one dominant color.
type PaletteEntry struct {
	// Color is the packed 0xRRGGBB value.
	Color uint32 `json:"color"`

	imaging.ColorResult

	// Count is the number of sampled pixels with this exact color.
	Count int `json:"count"`

	// Percentage is Count relative to all sampled pixels, 0-100.
	Percentage float64 `json:"percentage"`
}

// Palette is ordered by descending Count.
type Palette []PaletteEntry

// Colors returns the packed colors in rank order.
func (p Palette) Colors() []uint32 {
	out := make([]uint32, len(p))
	for i, e := range p {
		out[i] = e.Color
	}
	return out
}

type tally struct {
	color uint32
	count int
	first int
}

// ExtractPalette ranks the distinct RGB colors of b by frequency.
//
// Pixels are visited at row-major indices 0, stride, 2*stride, ... and
// tallied by their exact RGB value; alpha is not part of the key. At most k
// entries are returned, ordered by descending count with ties broken by the
// index at which each color was first seen. When fewer than k distinct colors
// were sampled, all of them are returned.
//
// Returns an error wrapping ErrInvalidDimension if stride or k is below 1.
func ExtractPalette(b imaging.Bitmap, stride, k int) (Palette, error) {
	if stride < 1 {
		return nil, fmt.Errorf("%w: stride %d must be at least 1", ErrInvalidDimension, stride)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: palette size %d must be at least 1", ErrInvalidDimension, k)
	}
	if b == nil {
		return Palette{}, nil
	}

	w := b.Width()
	n := w * b.Height()

	index := make(map[uint32]int)
	var tallies []tally
	sampled := 0
	for i := 0; i < n; i += stride {
		r, g, bl, _ := b.RGBA(i%w, i/w)
		c := imaging.PackRGB(r, g, bl)
		sampled++
		if j, ok := index[c]; ok {
			tallies[j].count++
			continue
		}
		index[c] = len(tallies)
		tallies = append(tallies, tally{color: c, count: 1, first: i})
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		if tallies[i].count != tallies[j].count {
			return tallies[i].count > tallies[j].count
		}
		return tallies[i].first < tallies[j].first
	})
	if len(tallies) > k {
		tallies = tallies[:k]
	}

	palette := make(Palette, len(tallies))
	for i, t := range tallies {
		r, g, bl := imaging.UnpackRGB(t.color)
		palette[i] = PaletteEntry{
			Color:       t.color,
			ColorResult: imaging.DescribeRGB(r, g, bl),
			Count:       t.count,
			Percentage:  math.Round(float64(t.count)/float64(sampled)*10000) / 100,
		}
	}
	return palette, nil
}
