package forensics

import (
	"regexp"
	"strings"
)

// DefaultPhoneWindow is the number of leading bytes scanned for phone numbers.
const DefaultPhoneWindow = 64 * 1024

const minPrintableRun = 8

var phonePattern = regexp.MustCompile(`\+?[0-9][0-9 .()\-]{6,18}[0-9]`)

// PhoneMatch is a span of text that looks like a phone number.
type PhoneMatch struct {
	// Offset is the byte offset of the match within the scanned data.
	Offset int `json:"offset"`

	// Text is the matched text as it appears in the file.
	Text string `json:"text"`

	// Digits is Text with everything but digits and a leading '+' removed.
	Digits string `json:"digits"`
}

// ScanPhoneNumbers looks for phone-number-like text in the first window bytes
// of data. A window of 0 or less selects DefaultPhoneWindow.
//
// This is best-effort pattern matching with high false positive and false
// negative rates. Only runs of at least 8 printable ASCII bytes are
// considered, a candidate must hold 8 to 15 digits, and repeated numbers are
// reported once, at their first offset.
func ScanPhoneNumbers(data []byte, window int) []PhoneMatch {
	if window <= 0 {
		window = DefaultPhoneWindow
	}
	if len(data) > window {
		data = data[:window]
	}

	var matches []PhoneMatch
	seen := make(map[string]bool)

	start := -1
	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] >= 0x20 && data[i] <= 0x7E {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minPrintableRun {
			run := data[start:i]
			for _, loc := range phonePattern.FindAllIndex(run, -1) {
				text := string(run[loc[0]:loc[1]])
				digits := phoneDigits(text)
				n := len(strings.TrimPrefix(digits, "+"))
				if n < 8 || n > 15 || seen[digits] {
					continue
				}
				seen[digits] = true
				matches = append(matches, PhoneMatch{
					Offset: start + loc[0],
					Text:   text,
					Digits: digits,
				})
			}
		}
		start = -1
	}
	return matches
}

func phoneDigits(s string) string {
	var b strings.Builder
	for i, r := range s {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
