// Package imaging provides the raster layer used by the forensics tools.
//
// This package loads and decodes uploaded photos, exposes decoded pixels through
// the Bitmap interface, resamples images to a fixed analysis resolution, and
// encodes derived images back to JPEG or base64 PNG. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at
// the top-left corner, X increases rightward, and Y increases downward.
//
// # Bitmaps and Samples
//
// Bitmap decouples analysis code from any particular raster type. Two
// implementations are provided:
//   - ImageSample: a dense row-major RGBA buffer produced by Sample
//   - FromImage: an adapter over any decoded image.Image
//
// Pixels are always reported non-premultiplied, 8 bits per channel.
//
// # Resampling
//
// Sample uses nearest-neighbour resampling exclusively. The choice is fixed so
// that histograms and palettes computed from a sample are reproducible: a
// solid-color source always yields a solid-color sample of the same value.
//
// # Supported Formats
//
// Decoding supports JPEG, PNG, GIF, BMP, TIFF and WebP. Encoding produces
// JPEG (for stripped artifacts and recompression) and PNG (for overlays).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function is
// stateless and never mutates its input, so different images can be processed
// concurrently without coordination.
//
// # Error Handling
//
// Functions return errors wrapping ErrInvalidDimension for non-positive sample
// sizes or empty sources, and ErrDecode for unreadable or corrupt image bytes.
// Use errors.Is to test for them.
package imaging
