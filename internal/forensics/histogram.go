package forensics

import "github.com/ironsheep/photo-forensics-mcp/internal/imaging"

// Histogram is a luminance distribution: bin i counts the pixels whose
// luminance equals i.
type Histogram [256]int

// Luminance returns the BT.601 luma of an 8-bit RGB triple, rounded down.
//
// Integer weights are used so that grays map to themselves exactly
// (Luminance(v, v, v) == v for every v).
func Luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}

// ComputeHistogram tallies the luminance of every pixel in b. Alpha is
// ignored. A bitmap with no pixels yields an all-zero histogram.
func ComputeHistogram(b imaging.Bitmap) Histogram {
	var h Histogram
	if b == nil {
		return h
	}

	if s, ok := b.(*imaging.ImageSample); ok {
		for i := 0; i+3 < len(s.Pix); i += 4 {
			h[Luminance(s.Pix[i], s.Pix[i+1], s.Pix[i+2])]++
		}
		return h
	}

	w, ht := b.Width(), b.Height()
	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := b.RGBA(x, y)
			h[Luminance(r, g, bl)]++
		}
	}
	return h
}

// Total returns the number of pixels counted.
func (h *Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Mean returns the average luminance, or 0 for an empty histogram.
func (h *Histogram) Mean() float64 {
	var sum, n int
	for i, c := range h {
		sum += i * c
		n += c
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Peak returns the most populated bin, lowest index first on ties.
func (h *Histogram) Peak() int {
	peak := 0
	for i, c := range h {
		if c > h[peak] {
			peak = i
		}
	}
	return peak
}
