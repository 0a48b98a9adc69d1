package scribeline

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/scribeline/views"
	"github.com/eringen/scribeline/wordpress"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// staticPages are the non-blog pages listed in the sitemap.
var staticPages = []string{"blog", "app", "privacy", "terms", "cookies"}

// buildSitemap lists the static pages, every post and every category.
// posts supply lastmod dates; slugs not among posts are listed without one.
func buildSitemap(base string, posts []wordpress.Post, slugs []string, categories []wordpress.Category) sitemapURLSet {
	urls := []sitemapURL{
		{Loc: views.BuildURL(base), ChangeFreq: "weekly", Priority: "1.0"},
	}
	for _, p := range staticPages {
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, p), ChangeFreq: "monthly", Priority: "0.5"})
	}
	for _, tool := range views.Tools {
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "app", tool.Slug), ChangeFreq: "monthly", Priority: "0.7"})
	}

	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		seen[p.Slug] = struct{}{}
		u := sitemapURL{Loc: views.BuildURL(base, "blog", p.Slug), ChangeFreq: "monthly", Priority: "0.8"}
		if t := p.ModifiedAt(); !t.IsZero() {
			u.LastMod = t.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "blog", slug), ChangeFreq: "monthly", Priority: "0.8"})
	}
	for _, cat := range categories {
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "blog", "category", cat.Slug), ChangeFreq: "weekly", Priority: "0.6"})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

// writeSitemap encodes the sitemap as XML to w.
func writeSitemap(w io.Writer, sitemap sitemapURLSet) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(sitemap)
}

// GenerateSitemap fetches the blog straight from WordPress and writes the
// sitemap to w. Used by the command line.
func GenerateSitemap(ctx context.Context, cfg SiteConfig, source PostSource, w io.Writer) error {
	cfg.setDefaults()
	posts := source.GetAllPosts(ctx, cfg.BlogPageSize)
	return writeSitemap(w, buildSitemap(cfg.URL, posts, source.GetAllSlugs(ctx), source.GetCategories(ctx)))
}

func (a *App) renderSitemap(c echo.Context, posts []wordpress.Post, slugs []string, categories []wordpress.Category) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeSitemap(c.Response(), buildSitemap(a.Config.URL, posts, slugs, categories))
}
