package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF returns the plain text of a PDF document.
func PDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", corrupt("pdf", panicError{r})
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", corrupt("pdf", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", corrupt("pdf", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", corrupt("pdf", err)
	}
	return buf.String(), nil
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	if s, ok := p.v.(string); ok {
		return s
	}
	return "malformed document"
}
