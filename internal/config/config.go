// Package config loads settings shared by the forensics commands.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and FORENSICS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/photo-forensics-mcp/internal/forensics"
	"github.com/ironsheep/photo-forensics-mcp/internal/imaging"
	"github.com/ironsheep/photo-forensics-mcp/internal/metadata"
)

// ErrInvalid reports a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of tunables.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Sample  SampleConfig  `yaml:"sample"`
	Palette PaletteConfig `yaml:"palette"`
	Overlay OverlayConfig `yaml:"overlay"`
	Strip   StripConfig   `yaml:"strip"`

	HashAlgorithm string `yaml:"hash_algorithm"`
	PhoneWindow   int    `yaml:"phone_window"`
	Workers       int    `yaml:"workers"`

	HTTP HTTPConfig `yaml:"http"`
}

type SampleConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type PaletteConfig struct {
	Size   int `yaml:"size"`
	Stride int `yaml:"stride"`
}

type OverlayConfig struct {
	Mode       string `yaml:"mode"`
	ELAQuality int    `yaml:"ela_quality"`
	ELAScale   int    `yaml:"ela_scale"`
}

type StripConfig struct {
	Quality int `yaml:"quality"`
}

type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Sample: SampleConfig{
			Width:  imaging.DefaultSampleSize,
			Height: imaging.DefaultSampleSize,
		},
		Palette: PaletteConfig{
			Size:   forensics.DefaultPaletteSize,
			Stride: forensics.DefaultPaletteStride,
		},
		Overlay: OverlayConfig{
			Mode:       forensics.OverlayDifference,
			ELAQuality: forensics.DefaultELAQuality,
			ELAScale:   forensics.DefaultELAScale,
		},
		Strip:         StripConfig{Quality: forensics.DefaultStripQuality},
		HashAlgorithm: forensics.AlgorithmSHA256,
		PhoneWindow:   forensics.DefaultPhoneWindow,
		HTTP: HTTPConfig{
			Addr:           ":8088",
			MaxUploadBytes: 32 << 20,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FORENSICS_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("FORENSICS_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FORENSICS_WORKERS=%q", ErrInvalid, v)
		}
		c.Workers = n
	}
	if v, ok := lookup("FORENSICS_HTTP_ADDR"); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("FORENSICS_HASH"); ok && v != "" {
		c.HashAlgorithm = strings.ToLower(v)
	}
	return nil
}

// Validate checks every setting and reports the first problem found.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch {
	case c.Sample.Width <= 0 || c.Sample.Height <= 0:
		return fmt.Errorf("%w: sample size %dx%d must be positive", ErrInvalid, c.Sample.Width, c.Sample.Height)
	case c.Palette.Size <= 0:
		return fmt.Errorf("%w: palette size %d must be positive", ErrInvalid, c.Palette.Size)
	case c.Palette.Stride <= 0:
		return fmt.Errorf("%w: palette stride %d must be positive", ErrInvalid, c.Palette.Stride)
	case c.Overlay.Mode != forensics.OverlayDifference && c.Overlay.Mode != forensics.OverlayRecompress:
		return fmt.Errorf("%w: unknown overlay mode %q", ErrInvalid, c.Overlay.Mode)
	case c.Overlay.ELAQuality < 1 || c.Overlay.ELAQuality > 100:
		return fmt.Errorf("%w: ela_quality %d not in [1, 100]", ErrInvalid, c.Overlay.ELAQuality)
	case c.Overlay.ELAScale <= 0:
		return fmt.Errorf("%w: ela_scale %d must be positive", ErrInvalid, c.Overlay.ELAScale)
	case c.Strip.Quality < 1 || c.Strip.Quality > 100:
		return fmt.Errorf("%w: strip quality %d not in [1, 100]", ErrInvalid, c.Strip.Quality)
	case !forensics.KnownAlgorithm(c.HashAlgorithm):
		return fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalid, c.HashAlgorithm)
	case c.PhoneWindow < 0:
		return fmt.Errorf("%w: phone_window %d must not be negative", ErrInvalid, c.PhoneWindow)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalid, c.Workers)
	case c.HTTP.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalid)
	}
	return nil
}

// ForensicsOptions converts the settings into analysis options. Overlay and
// strip generation stay off; callers enable them per request.
func (c *Config) ForensicsOptions(logger *slog.Logger) forensics.Options {
	return forensics.Options{
		SampleWidth:   c.Sample.Width,
		SampleHeight:  c.Sample.Height,
		PaletteSize:   c.Palette.Size,
		PaletteStride: c.Palette.Stride,
		HashAlgorithm: c.HashAlgorithm,
		PhoneWindow:   c.PhoneWindow,
		OverlayOptions: forensics.OverlayOptions{
			Mode:    c.Overlay.Mode,
			Quality: c.Overlay.ELAQuality,
			Scale:   c.Overlay.ELAScale,
		},
		StripQuality: c.Strip.Quality,
		Metadata:     metadata.Parser{},
		Workers:      c.Workers,
		Logger:       logger,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalid, name)
}

// NewLogger returns a text logger writing to w at the configured level.
// Unknown levels fall back to info.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
