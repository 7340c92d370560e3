package forensics

import (
	"errors"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
)

var (
	// ErrInvalidDimension reports a bad sampling target, stride or palette size.
	ErrInvalidDimension = imaging.ErrInvalidDimension

	// ErrDecode reports unreadable or corrupt image bytes.
	ErrDecode = imaging.ErrDecode

	// ErrReencode reports a failure producing a stripped artifact.
	ErrReencode = errors.New("reencode error")

	// ErrHash reports a byte source that could not be read for hashing.
	ErrHash = errors.New("hash error")
)

// UserMessage is the message shown for any photo that fails analysis.
const UserMessage = "could not analyze this image"
