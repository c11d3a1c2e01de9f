// Package encfix detects the character encoding of downloaded price
// files and repairs the Croatian diacritics that chains publish in
// legacy Windows code pages. Files declared UTF-8 pass through
// untouched; everything else is decoded as windows-1252 and run
// through the substitution table below, which covers the byte
// positions where windows-1250 content shows up mangled.
package encfix

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// EncodingError is fatal for the file it occurred on.
type EncodingError struct {
	File   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %s", e.File, e.Reason)
}

// Detection is the result of sniffing a document's encoding.
type Detection struct {
	Encoding   string
	Confidence float64
}

// Detect sniffs the encoding of a raw document.
func Detect(b []byte) Detection {
	if utf8.Valid(b) {
		high := false
		for _, c := range b {
			if c >= 0x80 {
				high = true
				break
			}
		}
		if !high {
			return Detection{Encoding: "ascii", Confidence: 1.0}
		}
		return Detection{Encoding: "utf-8", Confidence: 0.99}
	}

	var highBytes, croatian int
	for _, c := range b {
		if c < 0x80 {
			continue
		}
		highBytes++
		if _, ok := croatianBytes[c]; ok {
			croatian++
		}
	}
	conf := 0.6
	if highBytes > 0 {
		conf += 0.4 * float64(croatian) / float64(highBytes)
	}
	return Detection{Encoding: "windows-1252", Confidence: conf}
}

// croatianBytes are the code-page positions Croatian diacritics occupy
// in windows-1250/1252 content.
var croatianBytes = map[byte]struct{}{
	0x8A: {}, 0x8C: {}, 0x8E: {}, 0x9A: {}, 0x9C: {}, 0x9E: {},
	0x90: {}, 0xC8: {}, 0xC6: {}, 0xD0: {}, 0xE6: {}, 0xE8: {},
	0xD9: {}, 0xB9: {}, 0xBE: {}, 0xA9: {}, 0xAE: {},
}

// diacritics maps the codepoints produced by a windows-1252 decode of
// mangled Croatian text to the intended letters. Case is not
// preserved; downstream validation uppercases everything anyway.
var diacritics = strings.NewReplacer(
	"\u008a", "š",
	"\u008c", "ć",
	"\u008e", "ž",
	"\u009a", "š",
	"\u009c", "ć",
	"\u009e", "ž",
	"\u0090", "đ",
	"È", "č",
	"Æ", "ć",
	"Ð", "đ",
	"æ", "ć",
	"è", "č",
	"Ù", "Č",
	"¹", "š",
	"¾", "ž",
	"©", "š",
	"®", "ž",
)

// FixCroatian repairs mangled Croatian diacritics in decoded text.
func FixCroatian(s string) string {
	return diacritics.Replace(s)
}

// Normalize returns the document as UTF-8. corrected reports whether a
// transcode-and-repair pass was needed; callers persist the corrected
// copy for audit when it was.
func Normalize(name string, b []byte) (out []byte, det Detection, corrected bool, err error) {
	if len(b) == 0 {
		return nil, Detection{}, false, &EncodingError{File: name, Reason: "empty document"}
	}
	det = Detect(b)
	if det.Encoding == "utf-8" || det.Encoding == "ascii" {
		return b, det, false, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return nil, det, false, &EncodingError{File: name, Reason: err.Error()}
	}
	return []byte(FixCroatian(string(decoded))), det, true, nil
}
