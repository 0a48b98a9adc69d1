package views

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/eringen/scribeline/wordpress"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// FormatDate renders a WordPress date as "January 2, 2006".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

var reTags = regexp.MustCompile(`<[^>]*>`)

// PlainText strips markup from sanitized HTML.
func PlainText(html string) string {
	s := reTags.ReplaceAllString(html, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&#8217;", "'", "&#8230;", "...", "[&hellip;]", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ReadingTime estimates minutes to read at 200 words per minute.
func ReadingTime(html string) int {
	words := len(strings.Fields(PlainText(html)))
	m := (words + 199) / 200
	if m < 1 {
		m = 1
	}
	return m
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) template.JS {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	return marshalJS(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post wordpress.Post) template.JS {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": PlainText(post.Excerpt),
		"url":         postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if t := post.PublishedAt(); !t.IsZero() {
		data["datePublished"] = t.Format(time.RFC3339)
		data["dateModified"] = post.ModifiedAt().Format(time.RFC3339)
	}
	if post.Author.Name != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  post.Author.Name,
		}
	}
	if post.FeaturedImage != "" {
		data["image"] = post.FeaturedImage
	}
	if tags := post.TagNames(); len(tags) > 0 {
		data["keywords"] = strings.Join(tags, ", ")
	}
	if post.Language != "" {
		data["inLanguage"] = post.Language
	}
	return marshalJS(data)
}

func marshalJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}

func remainingLabel(n int) string {
	if n == 1 {
		return "1 free use left"
	}
	return fmt.Sprintf("%d free uses left", n)
}
