package forensics

import (
	"fmt"
	"image"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
)

// DefaultStripQuality is the JPEG quality of stripped artifacts.
const DefaultStripQuality = 95

// StrippedArtifact is a freshly encoded copy of a photo with no metadata.
type StrippedArtifact struct {
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Quality  int    `json:"quality"`
	MimeType string `json:"mime_type"`
}

// Size returns the artifact length in bytes.
func (a *StrippedArtifact) Size() int {
	return len(a.Data)
}

// Strip encodes img as a new JPEG built from its pixels alone.
//
// No byte of the original container is copied, so EXIF, XMP, ICC and any
// other embedded segment is dropped. A quality of 0 selects
// DefaultStripQuality. Failures wrap ErrReencode.
func Strip(img image.Image, quality int) (*StrippedArtifact, error) {
	if quality == 0 {
		quality = DefaultStripQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d must be 1-100", ErrReencode, quality)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrReencode)
	}

	data, err := imaging.EncodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReencode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: encoder produced no output", ErrReencode)
	}

	b := img.Bounds()
	return &StrippedArtifact{
		Data:     data,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Quality:  quality,
		MimeType: imaging.MimeJPEG,
	}, nil
}

// StripBytes decodes an uploaded file and strips it.
//
// The EXIF orientation is applied to the pixels before encoding, so the
// stripped photo looks the same even though the tag is gone. Every failure
// wraps ErrReencode; decode failures also wrap ErrDecode.
func StripBytes(raw []byte, quality int) (*StrippedArtifact, error) {
	img, err := imaging.DecodeOriented(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReencode, err)
	}
	return Strip(img, quality)
}
