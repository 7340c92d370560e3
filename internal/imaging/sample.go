package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultSampleSize is the analysis resolution used when callers do not pick one.
const DefaultSampleSize = 100

// Sample resamples an image to exactly width x height pixels.
//
// Parameters:
//   - src: The decoded source image. It is never modified.
//   - width, height: Target dimensions in pixels. Both must be positive.
//
// Returns:
//   - *ImageSample: A new dense buffer of width*height RGBA pixels.
//   - error: Wraps ErrInvalidDimension if a target dimension is zero or
//     negative, or if the source has no pixels.
//
// # Resampling
//
// Nearest-neighbour resampling is always used. Each output pixel copies one
// source pixel, so no new colors are introduced and results are reproducible
// across runs. The aspect ratio is not preserved; the sample is stretched to
// the requested size.
func Sample(src image.Image, width, height int) (*ImageSample, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: sample size %dx%d must be positive", ErrInvalidDimension, width, height)
	}
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrInvalidDimension)
	}
	if si, ok := src.(*sampleImage); ok {
		src = si.NRGBA
	}

	resized := imaging.Resize(src, width, height, imaging.NearestNeighbor)
	return sampleFromNRGBA(resized), nil
}

// SampleBitmap resamples any Bitmap. See Sample.
func SampleBitmap(b Bitmap, width, height int) (*ImageSample, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrInvalidDimension)
	}
	return Sample(AsImage(b), width, height)
}

// Capture copies an image at full resolution into a dense sample.
func Capture(src image.Image) (*ImageSample, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrInvalidDimension)
	}
	return sampleFromNRGBA(imaging.Clone(src)), nil
}
