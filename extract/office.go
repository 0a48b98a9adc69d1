package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DOCX returns the paragraphs of a Word document, one per line.
func DOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", corrupt("docx", err)
	}
	doc, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return "", corrupt("docx", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", corrupt("docx", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

var (
	reSlideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	reTextRun   = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// PPTX returns the text runs of a PowerPoint deck, one slide per paragraph,
// slides in presentation order.
func PPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", corrupt("pptx", err)
	}

	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := reSlideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, file: f})
	}
	if len(slides) == 0 {
		return "", corrupt("pptx", fmt.Errorf("no slides found"))
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		content, err := openZipFile(s.file)
		if err != nil {
			return "", corrupt("pptx", err)
		}
		var runs []string
		for _, m := range reTextRun.FindAllSubmatch(content, -1) {
			if run := strings.TrimSpace(html.UnescapeString(string(m[1]))); run != "" {
				runs = append(runs, run)
			}
		}
		if len(runs) > 0 {
			parts = append(parts, strings.Join(runs, " "))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return openZipFile(f)
		}
	}
	return nil, fmt.Errorf("%s not found", name)
}

func openZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	// Decompressed entries are capped at 4x MaxFileSize.
	return io.ReadAll(io.LimitReader(rc, 4*MaxFileSize))
}
