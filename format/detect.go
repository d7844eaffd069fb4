// Package format classifies input files so that only PDF documents are
// handed to the checks.
package format

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is the detected kind of an input file.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PDF indicates a PDF document.
	PDF
	// ZIP indicates a ZIP container, which covers DOCX, XLSX, PPTX and ODT.
	ZIP
	// HTML indicates an HTML document.
	HTML
	// PNG indicates a PNG image.
	PNG
	// JPEG indicates a JPEG image.
	JPEG
)

func (f Format) String() string {
	switch f {
	case PDF:
		return "PDF"
	case ZIP:
		return "ZIP"
	case HTML:
		return "HTML"
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return "Unknown"
	}
}

// Detect determines the format from the filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDF
	case ".zip", ".docx", ".xlsx", ".pptx", ".odt":
		return ZIP
	case ".html", ".htm":
		return HTML
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	default:
		return Unknown
	}
}

// magicWindow is how far into a file the %PDF- marker may appear; readers
// tolerate a little junk before the header.
const magicWindow = 1024

// DetectFromMagic determines the format from the first bytes of a file.
// It returns Unknown when the bytes are not conclusive.
func DetectFromMagic(data []byte) Format {
	if len(data) > magicWindow {
		data = data[:magicWindow]
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return PDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return ZIP
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG
	case looksLikeHTML(data):
		return HTML
	case bytes.Contains(data, []byte("%PDF-")):
		return PDF
	}
	return Unknown
}

func looksLikeHTML(data []byte) bool {
	upper := strings.ToUpper(strings.TrimLeft(string(data), " \t\r\n"))
	return strings.HasPrefix(upper, "<!DOCTYPE HTML") || strings.HasPrefix(upper, "<HTML")
}

// DetectFile classifies a file on disk. Content wins over the name: a PDF
// with any extension is a PDF, while a file named .pdf whose content is
// not conclusive is still classified by its name so that a damaged PDF
// reaches the checks and is reported rather than skipped.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	buf := make([]byte, magicWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, err
	}
	if got := DetectFromMagic(buf[:n]); got != Unknown {
		return got, nil
	}
	return Detect(path), nil
}
