package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	exifTimeLayout = "2006:01:02 15:04:05"
	maxExtraLen    = 256
)

// Parser reads metadata with goexif. The zero value is ready to use.
type Parser struct{}

// Parse implements the metadata collaborator used by the analysis pipeline.
func (Parser) Parse(raw []byte) (*Metadata, error) {
	return Parse(raw)
}

// typed lists the tags mapped onto Metadata fields, plus the IFD pointers,
// none of which are repeated in Extra.
var typed = map[exif.FieldName]bool{
	exif.Make:                       true,
	exif.Model:                      true,
	exif.Software:                   true,
	exif.LensModel:                  true,
	exif.ISOSpeedRatings:            true,
	exif.FNumber:                    true,
	exif.ExposureTime:               true,
	exif.FocalLength:                true,
	exif.DateTimeOriginal:           true,
	exif.PixelXDimension:            true,
	exif.PixelYDimension:            true,
	exif.Orientation:                true,
	exif.GPSLatitude:                true,
	exif.GPSLatitudeRef:             true,
	exif.GPSLongitude:               true,
	exif.GPSLongitudeRef:            true,
	exif.GPSAltitude:                true,
	exif.GPSAltitudeRef:             true,
	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

// Parse decodes the EXIF block of a JPEG, PNG, WebP or TIFF file.
//
// Data without any EXIF block, including formats that cannot carry one,
// yields an empty Metadata and a nil error. An EXIF block that is present
// but unreadable is an error. Damaged sub-directories are skipped; whatever
// was readable is returned.
func Parse(raw []byte) (*Metadata, error) {
	m := &Metadata{}
	block := locateExif(raw)
	if len(block) == 0 {
		return m, nil
	}

	x, err := exif.Decode(bytes.NewReader(block))
	if x == nil {
		if err == nil {
			err = errors.New("no exif data")
		}
		return nil, fmt.Errorf("failed to decode exif: %w", err)
	}
	if err != nil && exif.IsCriticalError(err) {
		return nil, fmt.Errorf("failed to decode exif: %w", err)
	}

	m.Make = stringTag(x, exif.Make)
	m.Model = stringTag(x, exif.Model)
	m.Software = stringTag(x, exif.Software)
	m.LensModel = stringTag(x, exif.LensModel)
	m.ISO = intTag(x, exif.ISOSpeedRatings)
	m.FNumber = ratTag(x, exif.FNumber)
	m.ExposureTime = ratTag(x, exif.ExposureTime)
	m.FocalLength = ratTag(x, exif.FocalLength)
	m.PixelWidth = intTag(x, exif.PixelXDimension)
	m.PixelHeight = intTag(x, exif.PixelYDimension)
	m.Orientation = intTag(x, exif.Orientation)

	if s := stringTag(x, exif.DateTimeOriginal); s != nil {
		if t, err := time.ParseInLocation(exifTimeLayout, *s, time.UTC); err == nil {
			m.DateTimeOriginal = &t
		}
	}

	if lat, long, err := x.LatLong(); err == nil {
		m.GPS = &GPS{Latitude: lat, Longitude: long}
		if alt := ratTag(x, exif.GPSAltitude); alt != nil {
			if ref := intTag(x, exif.GPSAltitudeRef); ref != nil && *ref == 1 {
				*alt = -*alt
			}
			m.GPS.Altitude = alt
		}
	}

	extras := extraWalker{}
	if err := x.Walk(extras); err != nil {
		return nil, fmt.Errorf("failed to walk exif tags: %w", err)
	}
	if len(extras) > 0 {
		m.Extra = extras
	}
	return m, nil
}

type extraWalker map[string]string

func (w extraWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if typed[name] || tag == nil {
		return nil
	}
	w[string(name)] = tagText(tag)
	return nil
}

func tagText(tag *tiff.Tag) string {
	var s string
	if tag.Format() == tiff.StringVal {
		s, _ = tag.StringVal()
	} else {
		s = strings.Trim(tag.String(), `"`)
	}
	s = strings.TrimSpace(s)
	if len(s) > maxExtraLen {
		s = s[:maxExtraLen]
	}
	return s
}

func stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.StringVal {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func intTag(x *exif.Exif, name exif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 || tag.Format() != tiff.IntVal {
		return nil
	}
	v, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &v
}

func ratTag(x *exif.Exif, name exif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 || tag.Format() != tiff.RatVal {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}
