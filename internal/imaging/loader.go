package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
)

// Source is an uploaded photo: its original bytes and the decoded image.
//
// Raw is kept verbatim so digests are computed over the file as uploaded,
// never over re-encoded pixels.
type Source struct {
	// Path is the file path the source was loaded from, if any.
	Path string

	// Name is the base file name shown to users.
	Name string

	// Raw holds the complete original file bytes.
	Raw []byte

	// Image is the decoded image.
	Image image.Image

	// Format is the decoder-reported format name ("jpeg", "png", ...).
	Format string
}

// NewSource decodes raw bytes into a Source.
//
// Returns an error wrapping ErrDecode if the bytes are not a supported image.
func NewSource(name string, raw []byte) (*Source, error) {
	img, format, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return &Source{
		Name:   name,
		Raw:    raw,
		Image:  img,
		Format: format,
	}, nil
}

// ImageCache provides thread-safe caching of loaded sources to avoid redundant
// disk reads and decodes.
//
// The cache stores Source values keyed by their file path. Once a file is
// loaded, subsequent Load() calls for the same path return the cached copy
// without disk I/O.
//
// # Memory Management
//
// Cached sources keep both the raw bytes and the decoded pixels in memory
// until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	src, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    return err
//	}
//	// Use src.Raw and src.Image...
//	cache.Evict("/path/to/photo.jpg") // Optional: free memory
type ImageCache struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		sources: make(map[string]*Source),
	}
}

// Load retrieves a source from the cache or reads and decodes it from disk.
//
// The source is cached using the exact path string provided. Different paths
// to the same file (e.g., relative vs absolute) result in separate entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error wrapping ErrDecode if the file is not a supported image
func (c *ImageCache) Load(path string) (*Source, error) {
	c.mu.RLock()
	if src, ok := c.sources[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	src, err := NewSource(filepath.Base(path), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	src.Path = path

	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

// Clear removes all sources from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a specific source from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// Len returns the number of cached sources.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// ImageInfo contains file-level facts about a loaded photo.
type ImageInfo struct {
	// Name is the base file name.
	Name string `json:"name"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder-reported format: "jpeg", "png", "gif", "bmp",
	// "tiff" or "webp". Detection is based on file contents, not extension.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image type carries alpha.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the original file in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// FileSize is the size formatted for display, e.g. "12.34 KB".
	FileSize string `json:"file_size"`
}

// Info describes a source.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func (s *Source) Info() *ImageInfo {
	bounds := s.Image.Bounds()

	hasAlpha := false
	colorDepth := "8-bit"
	switch s.Image.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Name:          s.Name,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        s.Format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: int64(len(s.Raw)),
		FileSize:      FormatSize(int64(len(s.Raw))),
	}
}

// LoadImageInfo loads a file into the cache and returns facts about it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	src, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return src.Info(), nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	src, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := src.Image.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// FormatSize renders a byte count in kilobytes with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}
