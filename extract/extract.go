// Package extract pulls plain text out of uploaded documents.
//
// PDF, DOCX and PPTX are supported. Each format has its own extractor; they
// share nothing beyond the sentinel errors below.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest upload accepted for extraction.
const MaxFileSize = 10 << 20 // 10MB

var (
	ErrFileTooLarge    = errors.New("file too large (max 10MB)")
	ErrUnsupportedType = errors.New("unsupported file type: upload a PDF, DOCX or PPTX file")
	ErrNoText          = errors.New("no extractable text found in file")
	ErrCorrupt         = errors.New("file could not be read")
)

// Text extracts plain text from data, choosing the extractor by the extension
// of filename.
func Text(filename string, data []byte) (string, error) {
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}
	var (
		text string
		err  error
	)
	switch Kind(filename) {
	case "pdf":
		text, err = PDF(data)
	case "docx":
		text, err = DOCX(data)
	case "pptx":
		text, err = PPTX(data)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}
	text = Sanitize(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Kind returns the lower-case extension of filename without the dot.
func Kind(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Sanitize drops NUL bytes and non-printing control characters other than
// common whitespace, then trims the result.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			b.WriteRune(ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		b.WriteRune(ch)
	}
	return strings.TrimSpace(b.String())
}

func corrupt(format string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, format, err)
}
