package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>
    <w:p><w:r><w:t>Fish &amp; chips</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestDOCX(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})
	text, err := Text("essay.DOCX", data)
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nCol A\tCol B\nFish & chips", text)
}

func slideXML(runs ...string) string {
	s := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`
	for _, r := range runs {
		s += `<p:sp><p:txBody><a:p><a:r><a:rPr lang="en-US"/><a:t>` + r + `</a:t></a:r></a:p></p:txBody></p:sp>`
	}
	return s + `</p:spTree></p:cSld></p:sld>`
}

func TestPPTXOrdersSlidesNumerically(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml":            slideXML("Ten"),
		"ppt/slides/slide2.xml":             slideXML("Two", "&lt;b&gt;"),
		"ppt/slides/slide1.xml":             slideXML("One", "Intro"),
		"ppt/slides/_rels/slide1.xml.rels":  `<Relationships/>`,
		"ppt/slideLayouts/slideLayout1.xml": slideXML("Layout"),
	})
	text, err := Text("deck.pptx", data)
	require.NoError(t, err)
	assert.Equal(t, "One Intro\n\nTwo <b>\n\nTen", text)
}

func TestTextErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     error
	}{
		{"unsupported extension", "notes.txt", []byte("hello"), ErrUnsupportedType},
		{"no extension", "README", []byte("hello"), ErrUnsupportedType},
		{"too large", "big.pdf", make([]byte, MaxFileSize+1), ErrFileTooLarge},
		{"docx not a zip", "bad.docx", []byte("not a zip"), ErrCorrupt},
		{"docx missing document", "empty.docx", buildZip(t, map[string]string{"other.xml": "<x/>"}), ErrCorrupt},
		{"pptx without slides", "empty.pptx", buildZip(t, map[string]string{"ppt/presentation.xml": "<x/>"}), ErrCorrupt},
		{"pdf garbage", "bad.pdf", []byte("%PDF-garbage"), ErrCorrupt},
		{"docx with no text", "blank.docx", buildZip(t, map[string]string{"word/document.xml": `<w:document xmlns:w="x"><w:body><w:p/></w:body></w:document>`}), ErrNoText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(tt.filename, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a\tb\nc", Sanitize("  a\tb\x00\nc\x07  "))
	assert.Equal(t, "", Sanitize(""))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "pdf", Kind("Report.PDF"))
	assert.Equal(t, "pptx", Kind("/tmp/a.b.pptx"))
	assert.Equal(t, "", Kind("noext"))
}
