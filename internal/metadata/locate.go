package metadata

import (
	"bytes"
	"encoding/binary"
)

var (
	exifHeader   = []byte("Exif\x00\x00")
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

// locateExif returns the TIFF block holding the EXIF tags of a JPEG, PNG,
// WebP or TIFF file, or nil when the container has none.
//
// Only container framing is checked here. Damage inside the returned block
// is left for the decoder to report.
func locateExif(raw []byte) []byte {
	switch {
	case isTIFF(raw):
		return raw
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xD8:
		return jpegExif(raw)
	case bytes.HasPrefix(raw, pngSignature):
		return pngExif(raw)
	case len(raw) >= 12 && string(raw[:4]) == "RIFF" && string(raw[8:12]) == "WEBP":
		return webpExif(raw)
	}
	return nil
}

func isTIFF(b []byte) bool {
	return len(b) >= 4 && (string(b[:4]) == "II*\x00" || string(b[:4]) == "MM\x00*")
}

// jpegExif walks the marker segments up to the start of scan and returns
// the payload of the first APP1 segment carrying the Exif header. Other
// APP1 segments, such as XMP, are skipped.
func jpegExif(raw []byte) []byte {
	i := 2
	for i+4 <= len(raw) {
		if raw[i] != 0xFF {
			return nil
		}
		marker := raw[i+1]
		switch {
		case marker == 0xFF:
			i++
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8):
			i += 2
			continue
		case marker == 0xD9 || marker == 0xDA:
			return nil
		}

		n := int(binary.BigEndian.Uint16(raw[i+2:]))
		if n < 2 {
			return nil
		}
		end := min(i+2+n, len(raw))
		seg := raw[i+4 : end]
		if marker == 0xE1 && bytes.HasPrefix(seg, exifHeader) {
			return seg[len(exifHeader):]
		}
		i += 2 + n
	}
	return nil
}

// pngExif returns the contents of the eXIf chunk.
func pngExif(raw []byte) []byte {
	i := len(pngSignature)
	for i+8 <= len(raw) {
		n := int(binary.BigEndian.Uint32(raw[i:]))
		typ := string(raw[i+4 : i+8])
		start := i + 8
		if n < 0 || start+n > len(raw) {
			return nil
		}
		switch typ {
		case "eXIf":
			return bytes.TrimPrefix(raw[start:start+n], exifHeader)
		case "IEND":
			return nil
		}
		i = start + n + 4 // crc
	}
	return nil
}

// webpExif returns the contents of the EXIF chunk of a RIFF WebP file.
func webpExif(raw []byte) []byte {
	i := 12
	for i+8 <= len(raw) {
		fourCC := string(raw[i : i+4])
		n := int(binary.LittleEndian.Uint32(raw[i+4:]))
		start := i + 8
		if n < 0 || start+n > len(raw) {
			return nil
		}
		if fourCC == "EXIF" {
			return bytes.TrimPrefix(raw[start:start+n], exifHeader)
		}
		i = start + n + n%2
	}
	return nil
}
