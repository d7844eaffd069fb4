package core

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// pdfDocEncoding maps each PDFDocEncoding byte to its rune. It agrees with
// Latin-1 except for the diacritics at 0x18-0x1F, the punctuation and
// ligatures at 0x80-0x9E and the euro sign at 0xA0.
var pdfDocEncoding = func() (t [256]rune) {
	for i := range t {
		t[i] = rune(i)
	}
	copy(t[0x18:], []rune{'\u02D8', '\u02C7', '\u02C6', '\u02D9', '\u02DD', '\u02DB', '\u02DA', '\u02DC'})
	copy(t[0x80:], []rune{
		'\u2022', '\u2020', '\u2021', '\u2026', '\u2014', '\u2013', '\u0192', '\u2044',
		'\u2039', '\u203A', '\u2212', '\u2030', '\u201E', '\u201C', '\u201D', '\u2018',
		'\u2019', '\u201A', '\u2122', '\uFB01', '\uFB02', '\u0141', '\u0152', '\u0160',
		'\u0178', '\u017D', '\u0131', '\u0142', '\u0153', '\u0161', '\u017E',
	})
	t[0xA0] = '\u20AC'
	return t
}()

// DecodeTextString interprets a PDF text string such as a layer name or a
// document title. Strings with a UTF-16BE or UTF-8 byte order mark are
// decoded accordingly; anything else is PDFDocEncoding.
func DecodeTextString(s String) string {
	raw := []byte(s)
	switch {
	case bytes.HasPrefix(raw, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, _, err := transform.Bytes(dec, raw); err == nil {
			return string(out)
		}
	case bytes.HasPrefix(raw, bomUTF8):
		if utf8.Valid(raw[len(bomUTF8):]) {
			return string(raw[len(bomUTF8):])
		}
	}
	out := make([]rune, len(raw))
	for i, b := range raw {
		out[i] = pdfDocEncoding[b]
	}
	return string(out)
}

// EncodeTextString returns s as a PDF text string: unchanged when it is
// plain ASCII, UTF-16BE with a byte order mark otherwise.
func EncodeTextString(s string) String {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return String(s)
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		return String(s)
	}
	return String(out)
}
