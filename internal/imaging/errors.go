package imaging

import "errors"

var (
	// ErrInvalidDimension reports a non-positive sampling target or an empty source.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrDecode reports image bytes that could not be decoded.
	ErrDecode = errors.New("decode error")
)
