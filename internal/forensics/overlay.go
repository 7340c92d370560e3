package forensics

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blend"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
)

// Overlay modes.
const (
	// OverlayDifference is the fixed difference blend against a white fill.
	// It is a qualitative visual aid, not a forensic measurement.
	OverlayDifference = "difference"

	// OverlayRecompress is error level analysis: the photo is recompressed
	// and the per-pixel change is amplified.
	OverlayRecompress = "recompress"
)

const (
	// DifferenceOpacity is the weight of the difference layer over the source.
	DifferenceOpacity = 0.3

	// DefaultELAQuality is the JPEG quality used for recompression.
	DefaultELAQuality = 90

	// DefaultELAScale amplifies recompression differences.
	DefaultELAScale = 15
)

// DifferenceOverlay blends the image with the difference between itself and
// an opaque white fill, at DifferenceOpacity. Each channel v (0-1) becomes
// 0.3 + 0.4*v: dark areas lift, bright areas drop, and tonal structure stays
// visible. The result has the same dimensions as img and carries no score.
func DifferenceOverlay(img image.Image) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrInvalidDimension)
	}

	src := imaging.ToNRGBA(img)
	fill := image.NewRGBA(src.Rect)
	draw.Draw(fill, fill.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)

	diff := blend.Difference(src, fill)
	return blend.Opacity(src, diff, DifferenceOpacity), nil
}

// ErrorLevelResult is a recompression overlay with its summary statistics.
type ErrorLevelResult struct {
	Image *image.RGBA

	// MeanError is the mean absolute channel change before amplification.
	MeanError float64

	// MaxError is the largest absolute channel change before amplification.
	MaxError int
}

// ErrorLevel performs error level analysis.
//
// The image is encoded as JPEG at the given quality, decoded again, and the
// absolute per-channel difference against the original is multiplied by
// scale and clamped to 255. Regions edited after the last save tend to
// recompress differently from their surroundings. The output is opaque.
func ErrorLevel(img image.Image, quality, scale int) (*ErrorLevelResult, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrInvalidDimension)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("invalid jpeg quality %d: must be 1-100", quality)
	}
	if scale < 1 {
		return nil, fmt.Errorf("invalid scale %d: must be at least 1", scale)
	}

	src := imaging.ToNRGBA(img)
	raw, err := imaging.EncodeJPEG(src, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReencode, err)
	}
	decoded, _, err := imaging.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReencode, err)
	}
	again := imaging.ToNRGBA(decoded)

	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	var sum, maxDiff int
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := int(src.Pix[i+c]) - int(again.Pix[i+c])
			if d < 0 {
				d = -d
			}
			sum += d
			if d > maxDiff {
				maxDiff = d
			}
			out.Pix[i+c] = uint8(min(d*scale, 255))
		}
		out.Pix[i+3] = 255
	}

	return &ErrorLevelResult{
		Image:     out,
		MeanError: float64(sum) / float64(3*w*h),
		MaxError:  maxDiff,
	}, nil
}

// OverlayOptions selects the overlay mode and its parameters.
type OverlayOptions struct {
	// Mode is OverlayDifference (default) or OverlayRecompress.
	Mode string

	// Quality and Scale apply to OverlayRecompress. Zero selects the default.
	Quality int
	Scale   int
}

// OverlayResult is a rendered overlay.
type OverlayResult struct {
	Mode   string `json:"mode"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Qualitative is true when the overlay carries no measurement.
	Qualitative bool `json:"qualitative"`

	MeanError *float64 `json:"mean_error,omitempty"`
	MaxError  *int     `json:"max_error,omitempty"`

	// MimeType and Data hold the PNG-encoded overlay, base64 encoded.
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`

	Image *image.RGBA `json:"-"`
}

// Overlay renders the overlay selected by opts.
func Overlay(img image.Image, opts OverlayOptions) (*OverlayResult, error) {
	res := &OverlayResult{Mode: opts.Mode, MimeType: imaging.MimePNG}
	if res.Mode == "" {
		res.Mode = OverlayDifference
	}

	switch res.Mode {
	case OverlayDifference:
		out, err := DifferenceOverlay(img)
		if err != nil {
			return nil, err
		}
		res.Image = out
		res.Qualitative = true
	case OverlayRecompress:
		quality, scale := opts.Quality, opts.Scale
		if quality == 0 {
			quality = DefaultELAQuality
		}
		if scale == 0 {
			scale = DefaultELAScale
		}
		ela, err := ErrorLevel(img, quality, scale)
		if err != nil {
			return nil, err
		}
		res.Image = ela.Image
		res.MeanError = &ela.MeanError
		res.MaxError = &ela.MaxError
	default:
		return nil, fmt.Errorf("unknown overlay mode %q", opts.Mode)
	}

	res.Width = res.Image.Rect.Dx()
	res.Height = res.Image.Rect.Dy()

	data, err := imaging.EncodePNGBase64(res.Image)
	if err != nil {
		return nil, err
	}
	res.Data = data
	return res, nil
}
