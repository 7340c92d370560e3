package forensics

import (
	"image"
	"image/color"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
)

// solidSample creates a sample filled with one color.
func solidSample(w, h int, r, g, b uint8) *imaging.ImageSample {
	s := imaging.NewImageSample(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s.Set(x, y, r, g, b, 255)
		}
	}
	return s
}

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
