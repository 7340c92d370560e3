// Package forensics implements pixel-level photo analysis.
//
// Each component is a stateless function over a decoded image or the
// original file bytes:
//
//   - ComputeHistogram: 256-bin luminance distribution of a sample
//   - ExtractPalette: dominant colors ranked by sampled frequency
//   - DifferenceOverlay and ErrorLevel: visual overlays for spotting edits
//   - HashBytes and HashReader: content digests of the original bytes
//   - Strip and StripBytes: pixel-only re-encoding that drops all metadata
//   - ScanPhoneNumbers: a low-confidence byte scan for phone-number text
//
// Analyze composes them into a single Report for one photo, and AnalyzeBatch
// runs Analyze over many photos in parallel, recording per-item failures
// instead of aborting.
//
// None of the functions mutate their inputs, so independent photos can be
// processed concurrently without coordination.
package forensics
