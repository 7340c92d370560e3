package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// MimePNG and MimeJPEG are the MIME types of the encoded outputs.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// Decode decodes raw image bytes in any registered format.
//
// Returns the decoded image and the format name reported by the decoder
// ("jpeg", "png", "gif", "bmp", "tiff" or "webp"). Failures wrap ErrDecode.
func Decode(raw []byte) (image.Image, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// DecodeOriented decodes raw image bytes and applies the EXIF Orientation tag
// to the pixels, so the result looks upright without any metadata.
func DecodeOriented(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// EncodeJPEG encodes an image as a baseline JPEG at the given quality (1-100).
//
// The output is built from pixel data only and carries no APP segments.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNGBase64 encodes an image as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ToNRGBA returns a copy of img as *image.NRGBA with bounds starting at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
