package metadata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// GPS is a capture location in decimal degrees. South and west are negative.
type GPS struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Metadata holds the tags recovered from one photo.
//
// Nil pointer fields mean the tag was not present.
type Metadata struct {
	Make             *string    `json:"make,omitempty"`
	Model            *string    `json:"model,omitempty"`
	Software         *string    `json:"software,omitempty"`
	LensModel        *string    `json:"lens_model,omitempty"`
	ISO              *int       `json:"iso,omitempty"`
	FNumber          *float64   `json:"f_number,omitempty"`
	ExposureTime     *float64   `json:"exposure_time,omitempty"`
	FocalLength      *float64   `json:"focal_length,omitempty"`
	DateTimeOriginal *time.Time `json:"date_time_original,omitempty"`
	PixelWidth       *int       `json:"pixel_width,omitempty"`
	PixelHeight      *int       `json:"pixel_height,omitempty"`
	Orientation      *int       `json:"orientation,omitempty"`
	GPS              *GPS       `json:"gps,omitempty"`

	// Extra holds every other decoded tag, rendered as text.
	Extra map[string]string `json:"extra,omitempty"`
}

// Empty reports whether no tag at all was recovered.
func (m *Metadata) Empty() bool {
	return m.Make == nil && m.Model == nil && m.Software == nil && m.LensModel == nil &&
		m.ISO == nil && m.FNumber == nil && m.ExposureTime == nil && m.FocalLength == nil &&
		m.DateTimeOriginal == nil && m.PixelWidth == nil && m.PixelHeight == nil &&
		m.Orientation == nil && m.GPS == nil && len(m.Extra) == 0
}

// HasDeviceSignature reports whether the photo names the device that took it.
func (m *Metadata) HasDeviceSignature() bool {
	return m.Make != nil || m.Model != nil || m.LensModel != nil
}

// HasGPS reports whether the photo carries a capture location.
func (m *Metadata) HasGPS() bool {
	return m.GPS != nil
}

// MapsURL links the capture location on Google Maps, or returns "" when
// there is no location.
func (m *Metadata) MapsURL() string {
	if m.GPS == nil {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s",
		strconv.FormatFloat(m.GPS.Latitude, 'f', 6, 64),
		strconv.FormatFloat(m.GPS.Longitude, 'f', 6, 64))
}

// Aperture renders the f-number, e.g. "f/2.8".
func (m *Metadata) Aperture() string {
	if m.FNumber == nil {
		return ""
	}
	return "f/" + strconv.FormatFloat(*m.FNumber, 'f', -1, 64)
}

// Shutter renders the exposure time, e.g. "1/125s" or "2s".
func (m *Metadata) Shutter() string {
	if m.ExposureTime == nil || *m.ExposureTime <= 0 {
		return ""
	}
	t := *m.ExposureTime
	if t < 1 {
		return fmt.Sprintf("1/%ds", int(math.Round(1/t)))
	}
	return strconv.FormatFloat(t, 'f', -1, 64) + "s"
}

// Focal renders the focal length, e.g. "50mm".
func (m *Metadata) Focal() string {
	if m.FocalLength == nil {
		return ""
	}
	return strconv.FormatFloat(*m.FocalLength, 'f', -1, 64) + "mm"
}

// Resolution renders the recorded pixel dimensions, e.g. "4032 x 3024".
func (m *Metadata) Resolution() string {
	if m.PixelWidth == nil || m.PixelHeight == nil {
		return ""
	}
	return fmt.Sprintf("%d x %d", *m.PixelWidth, *m.PixelHeight)
}

// Field is one labelled, display-ready metadata value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fields lists the present tags in display order, followed by the extra
// tags sorted by name.
func (m *Metadata) Fields() []Field {
	var out []Field
	add := func(label, value string) {
		if value != "" {
			out = append(out, Field{Label: label, Value: value})
		}
	}

	add("Make", deref(m.Make))
	add("Model", deref(m.Model))
	add("Lens", deref(m.LensModel))
	add("Software", deref(m.Software))
	if m.ISO != nil {
		add("ISO", strconv.Itoa(*m.ISO))
	}
	add("Aperture", m.Aperture())
	add("Shutter", m.Shutter())
	add("Focal length", m.Focal())
	if m.DateTimeOriginal != nil {
		add("Taken", m.DateTimeOriginal.Format("2006-01-02 15:04:05"))
	}
	add("Resolution", m.Resolution())
	if m.GPS != nil {
		add("Location", fmt.Sprintf("%.6f, %.6f", m.GPS.Latitude, m.GPS.Longitude))
	}

	names := make([]string, 0, len(m.Extra))
	for name := range m.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(name, m.Extra[name])
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
