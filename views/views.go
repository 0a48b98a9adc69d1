// Package views renders the site's HTML pages.
//
// Each page is an html/template file under templates/ executed inside the
// shared layout and exposed as a templ.Component, so handlers render them the
// same way they would render generated templ code.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/scribeline/wordpress"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date":        FormatDate,
	"plain":       PlainText,
	"readingTime": ReadingTime,
	"url":         BuildURL,
	"pathEscape":  PathEscape,
	"remaining":   remainingLabel,
	"raw":         func(s string) template.HTML { return template.HTML(s) },
	"year":        func() int { return time.Now().Year() },
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"home", "blog", "post", "legal", "app", "notfound", "error"} {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout", data)
	})
}

// Page is the data every layout needs.
type Page struct {
	Site   SiteConfig
	Meta   PageMeta
	Viewer Viewer
	JsonLD template.JS
}

type HomeData struct {
	Page
	Posts []wordpress.Post
	Tools []Tool
}

type BlogData struct {
	Page
	Posts      []wordpress.Post
	Categories []wordpress.Category
	Languages  []string
	ActiveLang string
	Category   *wordpress.Category // set on category pages
}

type PostData struct {
	Page
	Post    wordpress.Post
	Related []wordpress.Post
}

type LegalData struct {
	Page
	Body template.HTML
}

type AppData struct {
	Page
	Tool  Tool
	Tools []Tool
}

func Home(d HomeData) templ.Component   { return page("home", d) }
func Blog(d BlogData) templ.Component   { return page("blog", d) }
func Post(d PostData) templ.Component   { return page("post", d) }
func Legal(d LegalData) templ.Component { return page("legal", d) }
func App(d AppData) templ.Component     { return page("app", d) }

// NotFound renders the 404 page.
func NotFound(p Page) templ.Component {
	p.Meta.Title = "Page not found"
	return page("notfound", p)
}

// ServerError renders the 500 page.
func ServerError(p Page) templ.Component {
	p.Meta.Title = "Something went wrong"
	return page("error", p)
}
