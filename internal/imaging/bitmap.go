package imaging

import (
	"image"
	"image/color"
)

// Bitmap is a decoded raster with random access to 8-bit RGBA pixels.
//
// Coordinates are 0-based relative to the bitmap's own origin, regardless of
// the bounds of any underlying image. RGBA returns non-premultiplied values.
type Bitmap interface {
	Width() int
	Height() int
	RGBA(x, y int) (r, g, b, a uint8)
}

// ImageSample is a dense in-memory bitmap: width, height and a row-major
// sequence of non-premultiplied RGBA quadruples.
//
// Pix holds exactly 4*W*H bytes. The pixel at (x, y) starts at
// Pix[(y*W+x)*4]. Analysis functions only read a sample; they never modify it.
type ImageSample struct {
	W   int     `json:"width"`
	H   int     `json:"height"`
	Pix []uint8 `json:"-"`
}

// NewImageSample allocates a zeroed (transparent black) sample of the given size.
func NewImageSample(width, height int) *ImageSample {
	return &ImageSample{
		W:   width,
		H:   height,
		Pix: make([]uint8, 4*width*height),
	}
}

// Width returns the sample width in pixels.
func (s *ImageSample) Width() int { return s.W }

// Height returns the sample height in pixels.
func (s *ImageSample) Height() int { return s.H }

// Len returns the number of pixels in the sample.
func (s *ImageSample) Len() int { return s.W * s.H }

// RGBA returns the pixel at (x, y).
func (s *ImageSample) RGBA(x, y int) (r, g, b, a uint8) {
	return s.Pixel(y*s.W + x)
}

// Pixel returns the i-th pixel in row-major order.
func (s *ImageSample) Pixel(i int) (r, g, b, a uint8) {
	p := s.Pix[i*4 : i*4+4 : i*4+4]
	return p[0], p[1], p[2], p[3]
}

// Set writes the pixel at (x, y).
func (s *ImageSample) Set(x, y int, r, g, b, a uint8) {
	i := (y*s.W + x) * 4
	s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = r, g, b, a
}

// FromImage exposes a decoded image as a Bitmap without copying its pixels.
func FromImage(img image.Image) Bitmap {
	if s, ok := img.(*sampleImage); ok {
		return s.sample
	}
	return &imageBitmap{img: img, bounds: img.Bounds()}
}

type imageBitmap struct {
	img    image.Image
	bounds image.Rectangle
}

func (b *imageBitmap) Width() int  { return b.bounds.Dx() }
func (b *imageBitmap) Height() int { return b.bounds.Dy() }

func (b *imageBitmap) RGBA(x, y int) (r, g, bl, a uint8) {
	c := color.NRGBAModel.Convert(b.img.At(b.bounds.Min.X+x, b.bounds.Min.Y+y)).(color.NRGBA)
	return c.R, c.G, c.B, c.A
}

// AsImage exposes a Bitmap as an image.Image with bounds starting at (0,0).
//
// Samples are wrapped without copying; the returned image shares the sample's
// pixel memory and must be treated as read-only.
func AsImage(b Bitmap) image.Image {
	switch v := b.(type) {
	case *imageBitmap:
		return v.img
	case *ImageSample:
		return &sampleImage{
			NRGBA: &image.NRGBA{
				Pix:    v.Pix,
				Stride: 4 * v.W,
				Rect:   image.Rect(0, 0, v.W, v.H),
			},
			sample: v,
		}
	}
	return &bitmapImage{b}
}

// sampleImage remembers which sample it wraps so FromImage can unwrap it.
type sampleImage struct {
	*image.NRGBA
	sample *ImageSample
}

type bitmapImage struct {
	b Bitmap
}

func (m *bitmapImage) ColorModel() color.Model { return color.NRGBAModel }

func (m *bitmapImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.b.Width(), m.b.Height())
}

func (m *bitmapImage) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.NRGBA{}
	}
	r, g, b, a := m.b.RGBA(x, y)
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// sampleFromNRGBA copies an NRGBA image into a dense sample, dropping any
// stride padding or bounds offset.
func sampleFromNRGBA(src *image.NRGBA) *ImageSample {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	s := NewImageSample(w, h)
	for y := 0; y < h; y++ {
		off := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(s.Pix[y*w*4:(y+1)*w*4], src.Pix[off:off+w*4])
	}
	return s
}
