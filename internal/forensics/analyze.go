package forensics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
	"github.com/ironsheep/photo-forensics-mcp/internal/metadata"
	"github.com/ironsheep/photo-forensics-mcp/internal/parallel"
)

// MetadataParser extracts embedded tags from original file bytes.
type MetadataParser interface {
	Parse(raw []byte) (*metadata.Metadata, error)
}

// Options configures Analyze and AnalyzeBatch. Zero sizes, strides and
// qualities select the defaults.
type Options struct {
	SampleWidth   int
	SampleHeight  int
	PaletteSize   int
	PaletteStride int
	HashAlgorithm string
	PhoneWindow   int

	// Overlay renders OverlayOptions at full resolution when set.
	Overlay        bool
	OverlayOptions OverlayOptions

	// Strip produces a metadata-free copy when set.
	Strip        bool
	StripQuality int

	// Metadata is the tag parser. Nil skips metadata extraction.
	Metadata MetadataParser

	// Workers bounds AnalyzeBatch parallelism. Zero selects GOMAXPROCS.
	Workers int

	// Logger receives per-file progress. Nil selects slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the standard analysis settings.
func DefaultOptions() Options {
	return Options{
		SampleWidth:   imaging.DefaultSampleSize,
		SampleHeight:  imaging.DefaultSampleSize,
		PaletteSize:   DefaultPaletteSize,
		PaletteStride: DefaultPaletteStride,
		HashAlgorithm: AlgorithmSHA256,
		PhoneWindow:   DefaultPhoneWindow,
		OverlayOptions: OverlayOptions{
			Mode:    OverlayDifference,
			Quality: DefaultELAQuality,
			Scale:   DefaultELAScale,
		},
		StripQuality: DefaultStripQuality,
		Metadata:     metadata.Parser{},
	}
}

// withDefaults fills zero-valued numeric settings from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleWidth == 0 {
		o.SampleWidth = d.SampleWidth
	}
	if o.SampleHeight == 0 {
		o.SampleHeight = d.SampleHeight
	}
	if o.PaletteSize == 0 {
		o.PaletteSize = d.PaletteSize
	}
	if o.PaletteStride == 0 {
		o.PaletteStride = d.PaletteStride
	}
	if o.PhoneWindow == 0 {
		o.PhoneWindow = d.PhoneWindow
	}
	if o.StripQuality == 0 {
		o.StripQuality = d.StripQuality
	}
	return o
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Report is the full analysis of one photo.
type Report struct {
	File   *imaging.ImageInfo `json:"file"`
	Digest Digest             `json:"digest"`

	SampleWidth   int       `json:"sample_width"`
	SampleHeight  int       `json:"sample_height"`
	Histogram     Histogram `json:"histogram"`
	MeanLuminance float64   `json:"mean_luminance"`
	PeakLuminance int       `json:"peak_luminance"`
	Palette       Palette   `json:"palette"`

	Metadata           *metadata.Metadata `json:"metadata,omitempty"`
	MetadataError      string             `json:"metadata_error,omitempty"`
	HasDeviceSignature bool               `json:"has_device_signature"`
	HasGPS             bool               `json:"has_gps"`
	MapsURL            string             `json:"maps_url,omitempty"`

	// PhoneNumbers are low-confidence matches; see ScanPhoneNumbers.
	PhoneNumbers []PhoneMatch `json:"phone_numbers,omitempty"`

	Overlay  *OverlayResult    `json:"overlay,omitempty"`
	Stripped *StrippedArtifact `json:"stripped,omitempty"`

	Sample *imaging.ImageSample `json:"-"`
}

// Compact returns a copy of r without pixel buffers and encoded payloads:
// the sample, the overlay image and PNG data, and the stripped JPEG bytes.
// Scores, dimensions and every other field are kept. r is not modified.
func (r *Report) Compact() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Sample = nil
	if r.Overlay != nil {
		o := *r.Overlay
		o.Image = nil
		o.Data = ""
		c.Overlay = &o
	}
	if r.Stripped != nil {
		st := *r.Stripped
		st.Data = nil
		c.Stripped = &st
	}
	return &c
}

// Analyze runs every component over one uploaded file.
//
// The digest is taken over raw before anything else touches it. Metadata
// failures are recorded in the report rather than returned. The context is
// checked between stages; a cancelled context returns ctx.Err().
func Analyze(ctx context.Context, name string, raw []byte, opts Options) (*Report, error) {
	start := time.Now()
	opts = opts.withDefaults()
	logger := opts.logger().With("file", name)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := HashBytesWith(opts.HashAlgorithm, raw)
	if err != nil {
		return nil, err
	}

	src, err := imaging.NewSource(name, raw)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample, err := imaging.Sample(src.Image, opts.SampleWidth, opts.SampleHeight)
	if err != nil {
		return nil, err
	}
	hist := ComputeHistogram(sample)
	palette, err := ExtractPalette(sample, opts.PaletteStride, opts.PaletteSize)
	if err != nil {
		return nil, err
	}

	report := &Report{
		File:          src.Info(),
		Digest:        digest,
		SampleWidth:   sample.Width(),
		SampleHeight:  sample.Height(),
		Histogram:     hist,
		MeanLuminance: hist.Mean(),
		PeakLuminance: hist.Peak(),
		Palette:       palette,
		PhoneNumbers:  ScanPhoneNumbers(raw, opts.PhoneWindow),
		Sample:        sample,
	}

	if opts.Metadata != nil {
		md, err := opts.Metadata.Parse(raw)
		if err != nil {
			logger.Warn("could not read metadata", "error", err)
			report.MetadataError = err.Error()
		} else {
			report.Metadata = md
			report.HasDeviceSignature = md.HasDeviceSignature()
			report.HasGPS = md.HasGPS()
			report.MapsURL = md.MapsURL()
		}
	}

	if opts.Overlay {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if report.Overlay, err = Overlay(src.Image, opts.OverlayOptions); err != nil {
			return nil, fmt.Errorf("failed to render overlay: %w", err)
		}
	}

	if opts.Strip {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if report.Stripped, err = StripBytes(raw, opts.StripQuality); err != nil {
			return nil, err
		}
	}

	logger.Debug("analyzed",
		"digest", digest.Hex,
		"width", report.File.Width,
		"height", report.File.Height,
		"colors", len(palette),
		"elapsed", time.Since(start))
	return report, nil
}

// Item is one file submitted to AnalyzeBatch. When Data is nil the file is
// read from Path by the worker that processes it.
type Item struct {
	Name string
	Path string
	Data []byte
}

// BatchResult is the outcome for one Item. Exactly one of Report and Err is set.
type BatchResult struct {
	Name   string  `json:"name"`
	Report *Report `json:"report,omitempty"`
	Err    error   `json:"-"`

	// Error and Message describe a failure; Message is the text to show users.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// AnalyzeBatch analyzes items in parallel and returns one result per item,
// in input order. A failing item never stops the others.
func AnalyzeBatch(ctx context.Context, items []Item, opts Options) []BatchResult {
	results := make([]BatchResult, len(items))
	logger := opts.logger()

	var failed atomic.Int64
	pool := parallel.Start(opts.Workers)
	for i, item := range items {
		pool.Do(func() {
			name := item.Name
			if name == "" {
				name = filepath.Base(item.Path)
			}
			res := BatchResult{Name: name}

			report, err := analyzeItem(ctx, name, item, opts)
			if err != nil {
				failed.Add(1)
				logger.Error("could not analyze image", "file", name, "error", err)
				res.Err = err
				res.Error = err.Error()
				res.Message = UserMessage
			} else {
				res.Report = report
			}
			results[i] = res
		})
	}
	pool.Wait(true)

	logger.Info("stats", "analyzed", int64(len(items))-failed.Load(), "errors", failed.Load(),
		"total", len(items))
	return results
}

func analyzeItem(ctx context.Context, name string, item Item, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := item.Data
	if raw == nil {
		var err error
		if raw, err = os.ReadFile(item.Path); err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", item.Path, err)
		}
	}
	return Analyze(ctx, name, raw, opts)
}
