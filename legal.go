package scribeline

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/eringen/scribeline/views"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

type legalPage struct {
	Title string
	Body  template.HTML
}

var (
	legalOnce  sync.Once
	legalPages map[string]legalPage
	legalErr   error
)

// loadLegalPages renders every embedded legal page once.
func loadLegalPages() (map[string]legalPage, error) {
	legalOnce.Do(func() {
		entries, err := legalFS.ReadDir("legal")
		if err != nil {
			legalErr = err
			return
		}
		pages := make(map[string]legalPage, len(entries))
		for _, e := range entries {
			src, err := legalFS.ReadFile("legal/" + e.Name())
			if err != nil {
				legalErr = err
				return
			}
			page, err := renderLegal(src)
			if err != nil {
				legalErr = fmt.Errorf("render %s: %w", e.Name(), err)
				return
			}
			pages[strings.TrimSuffix(e.Name(), ".md")] = page
		}
		legalPages = pages
	})
	return legalPages, legalErr
}

// renderLegal converts Markdown to HTML. The first level-one heading
// becomes the page title.
func renderLegal(src []byte) (legalPage, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return legalPage{}, err
	}
	title := ""
	for _, line := range strings.Split(string(src), "\n") {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}
	return legalPage{Title: title, Body: template.HTML(buf.String())}, nil
}

func (a *App) handleLegal(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		pages, err := loadLegalPages()
		if err != nil {
			return err
		}
		page, ok := pages[name]
		if !ok {
			return echo.ErrNotFound
		}
		return Render(c, views.Legal(views.LegalData{
			Page: a.page(c, views.PageMeta{
				Title: page.Title,
				URL:   views.BuildURL(a.Config.URL, name),
			}),
			Body: page.Body,
		}))
	}
}
