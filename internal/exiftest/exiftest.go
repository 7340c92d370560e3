// Package exiftest builds JPEG files carrying hand-assembled EXIF segments,
// for tests that need tagged photos without shipping binary fixtures.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
	"sort"
	"testing"
)

// Tags selects what goes into the EXIF segment. Zero values are omitted.
type Tags struct {
	Make             string
	Model            string
	Software         string
	LensModel        string
	DateTimeOriginal string // "2006:01:02 15:04:05"
	ISO              uint16
	Orientation      uint16
	FNumber          [2]uint32 // numerator, denominator
	ExposureTime     [2]uint32
	FocalLength      [2]uint32

	// GPS is written when HasGPS is set. South and west are negative.
	HasGPS    bool
	Latitude  float64
	Longitude float64
}

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5

	tagMake             = 0x010F
	tagModel            = 0x0110
	tagOrientation      = 0x0112
	tagSoftware         = 0x0131
	tagExposureTime     = 0x829A
	tagFNumber          = 0x829D
	tagExifIFD          = 0x8769
	tagGPSIFD           = 0x8825
	tagISO              = 0x8827
	tagDateTimeOriginal = 0x9003
	tagFocalLength      = 0x920A
	tagLensModel        = 0xA434

	tagGPSLatRef  = 0x0001
	tagGPSLat     = 0x0002
	tagGPSLongRef = 0x0003
	tagGPSLong    = 0x0004
)

var order = binary.LittleEndian

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func ascii(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func short(tag uint16, v uint16) entry {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return entry{tag: tag, typ: typeShort, count: 1, data: b}
}

func long(tag uint16, v uint32) entry {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return entry{tag: tag, typ: typeLong, count: 1, data: b}
}

func rationals(tag uint16, vals ...[2]uint32) entry {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		order.PutUint32(b[i*8:], v[0])
		order.PutUint32(b[i*8+4:], v[1])
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), data: b}
}

// degrees splits an absolute decimal angle into degree, minute and
// second rationals.
func degrees(v float64) entry {
	v = math.Abs(v)
	d := math.Floor(v)
	m := math.Floor((v - d) * 60)
	s := ((v-d)*60 - m) * 60
	return rationals(0,
		[2]uint32{uint32(d), 1},
		[2]uint32{uint32(m), 1},
		[2]uint32{uint32(math.Round(s * 10000)), 10000},
	)
}

// ifdSize is the encoded size of a directory including its value area.
func ifdSize(entries []entry) uint32 {
	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += uint32(len(e.data) + len(e.data)%2)
		}
	}
	return n
}

// writeIFD appends a directory that starts at offset base within the TIFF.
func writeIFD(buf *bytes.Buffer, base uint32, entries []entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	var values bytes.Buffer
	valueBase := base + uint32(2+12*len(entries)+4)

	_ = binary.Write(buf, order, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, order, e.tag)
		_ = binary.Write(buf, order, e.typ)
		_ = binary.Write(buf, order, e.count)
		if len(e.data) <= 4 {
			field := make([]byte, 4)
			copy(field, e.data)
			buf.Write(field)
			continue
		}
		_ = binary.Write(buf, order, valueBase+uint32(values.Len()))
		values.Write(e.data)
		if len(e.data)%2 == 1 {
			values.WriteByte(0)
		}
	}
	_ = binary.Write(buf, order, uint32(0)) // no next IFD
	buf.Write(values.Bytes())
}

// TIFF returns a little-endian TIFF structure holding the tags.
func TIFF(tags Tags) []byte {
	var ifd0, exifIFD, gpsIFD []entry

	if tags.Make != "" {
		ifd0 = append(ifd0, ascii(tagMake, tags.Make))
	}
	if tags.Model != "" {
		ifd0 = append(ifd0, ascii(tagModel, tags.Model))
	}
	if tags.Software != "" {
		ifd0 = append(ifd0, ascii(tagSoftware, tags.Software))
	}
	if tags.Orientation != 0 {
		ifd0 = append(ifd0, short(tagOrientation, tags.Orientation))
	}

	if tags.ISO != 0 {
		exifIFD = append(exifIFD, short(tagISO, tags.ISO))
	}
	if tags.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, ascii(tagDateTimeOriginal, tags.DateTimeOriginal))
	}
	if tags.LensModel != "" {
		exifIFD = append(exifIFD, ascii(tagLensModel, tags.LensModel))
	}
	if tags.FNumber[1] != 0 {
		exifIFD = append(exifIFD, rationals(tagFNumber, tags.FNumber))
	}
	if tags.ExposureTime[1] != 0 {
		exifIFD = append(exifIFD, rationals(tagExposureTime, tags.ExposureTime))
	}
	if tags.FocalLength[1] != 0 {
		exifIFD = append(exifIFD, rationals(tagFocalLength, tags.FocalLength))
	}

	if tags.HasGPS {
		latRef, longRef := "N", "E"
		if tags.Latitude < 0 {
			latRef = "S"
		}
		if tags.Longitude < 0 {
			longRef = "W"
		}
		lat, lng := degrees(tags.Latitude), degrees(tags.Longitude)
		lat.tag, lng.tag = tagGPSLat, tagGPSLong
		gpsIFD = append(gpsIFD, ascii(tagGPSLatRef, latRef), lat, ascii(tagGPSLongRef, longRef), lng)
	}

	// Pointer entries are fixed size, so placeholders give the final layout.
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, long(tagExifIFD, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, long(tagGPSIFD, 0))
	}

	ifd0Off := uint32(8)
	exifOff := ifd0Off + ifdSize(ifd0)
	gpsOff := exifOff
	if len(exifIFD) > 0 {
		gpsOff += ifdSize(exifIFD)
	}
	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifIFD:
			ifd0[i] = long(tagExifIFD, exifOff)
		case tagGPSIFD:
			ifd0[i] = long(tagGPSIFD, gpsOff)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	_ = binary.Write(&buf, order, ifd0Off)
	writeIFD(&buf, ifd0Off, ifd0)
	if len(exifIFD) > 0 {
		writeIFD(&buf, exifOff, exifIFD)
	}
	if len(gpsIFD) > 0 {
		writeIFD(&buf, gpsOff, gpsIFD)
	}
	return buf.Bytes()
}

// APP1 wraps the tags in a JPEG APP1 "Exif" segment, marker included.
func APP1(tags Tags) []byte {
	return segment(0xE1, append([]byte("Exif\x00\x00"), TIFF(tags)...))
}

// XMP returns a JPEG APP1 segment holding an XMP packet and no EXIF.
func XMP(packet string) []byte {
	return segment(0xE1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...))
}

func segment(marker byte, payload []byte) []byte {
	seg := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(2+len(payload)))
	return append(seg, payload...)
}

// Splice inserts an APP1 segment directly after the SOI marker of a JPEG.
func Splice(jpegData, app1 []byte) []byte {
	out := make([]byte, 0, len(jpegData)+len(app1))
	out = append(out, jpegData[:2]...)
	out = append(out, app1...)
	return append(out, jpegData[2:]...)
}

// SolidJPEG encodes a width x height JPEG of a single color and embeds tags.
func SolidJPEG(t testing.TB, width, height int, c color.Color, tags Tags) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return JPEG(t, img, tags)
}

// JPEG encodes img at quality 95 and embeds tags.
func JPEG(t testing.TB, img image.Image, tags Tags) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return Splice(buf.Bytes(), APP1(tags))
}

// PNG encodes img and, unless tags is the zero value, adds an eXIf chunk
// after the header chunk.
func PNG(t testing.TB, img image.Image, tags Tags) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	data := buf.Bytes()
	if tags == (Tags{}) {
		return data
	}

	// signature (8) + IHDR chunk (4 length + 4 type + 13 data + 4 crc)
	const afterIHDR = 8 + 25
	out := make([]byte, 0, len(data)+64)
	out = append(out, data[:afterIHDR]...)
	out = append(out, chunk("eXIf", TIFF(tags))...)
	return append(out, data[afterIHDR:]...)
}

func chunk(typ string, data []byte) []byte {
	out := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], typ)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[4:]))
}

// NoisyPNG encodes a size x size image of seeded random pixels. The
// compressed stream of a photo-sized image almost always contains byte
// pairs that look like JPEG markers.
func NoisyPNG(t testing.TB, size int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return PNG(t, img, Tags{})
}
