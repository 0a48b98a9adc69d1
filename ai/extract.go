package ai

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/scribeline/extract"
	"github.com/eringen/scribeline/usage"
)

// ExtractResponse is the body returned by POST /api/ai/extract.
type ExtractResponse struct {
	Text       string `json:"text"`
	Filename   string `json:"filename"`
	Characters int    `json:"characters"`
}

// Extract returns the plain text of an uploaded PDF, DOCX or PPTX file.
func (h *Handler) Extract(c echo.Context) error {
	const route = "extract"
	fh, err := c.FormFile("file")
	if tooLarge(err) {
		return h.jsonError(c, route, http.StatusRequestEntityTooLarge, extract.ErrFileTooLarge.Error())
	}
	if err != nil {
		return h.jsonError(c, route, http.StatusBadRequest, "No file uploaded")
	}
	if fh.Size > extract.MaxFileSize {
		return h.jsonError(c, route, http.StatusBadRequest, extract.ErrFileTooLarge.Error())
	}
	switch extract.Kind(fh.Filename) {
	case "pdf", "docx", "pptx":
	default:
		return h.jsonError(c, route, http.StatusBadRequest, extract.ErrUnsupportedType.Error())
	}
	if ok, err := h.reserve(c, route, usage.FeatureExtract); !ok {
		return err
	}
	extracted := false
	defer func() {
		if !extracted {
			h.release(c, usage.FeatureExtract)
		}
	}()

	src, err := fh.Open()
	if err != nil {
		c.Logger().Errorf("extract: open upload: %v", err)
		return h.jsonError(c, route, http.StatusInternalServerError, "Failed to read the uploaded file")
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, extract.MaxFileSize+1))
	if err != nil {
		c.Logger().Errorf("extract: read upload: %v", err)
		return h.jsonError(c, route, http.StatusInternalServerError, "Failed to read the uploaded file")
	}

	text, err := extract.Text(fh.Filename, data)
	switch {
	case err == nil:
	case errors.Is(err, extract.ErrFileTooLarge),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrNoText):
		return h.jsonError(c, route, http.StatusBadRequest, err.Error())
	case errors.Is(err, extract.ErrCorrupt):
		return h.jsonError(c, route, http.StatusBadRequest, "The file could not be read. Make sure it is a valid "+extract.Kind(fh.Filename)+" document.")
	default:
		c.Logger().Errorf("extract: %v", err)
		return h.jsonError(c, route, http.StatusInternalServerError, "Failed to extract text from the file")
	}

	extracted = true
	h.metrics.observe(route, http.StatusOK)
	return c.JSON(http.StatusOK, ExtractResponse{
		Text:       text,
		Filename:   fh.Filename,
		Characters: len([]rune(text)),
	})
}
