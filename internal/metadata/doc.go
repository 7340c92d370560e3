// Package metadata reads embedded EXIF tags from photos.
//
// Tag decoding is delegated to github.com/rwcarlsen/goexif. This package maps
// the decoded tags onto a typed Metadata value: every well-known tag has its
// own optional field, and any other tag lands in the Extra bag keyed by its
// EXIF field name.
//
// A file without an EXIF segment is not an error; Parse returns an empty
// Metadata for it.
package metadata
