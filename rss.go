package scribeline

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/scribeline/views"
	"github.com/eringen/scribeline/wordpress"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
}

// buildFeed turns posts into an RSS 2.0 document.
func buildFeed(cfg SiteConfig, posts []wordpress.Post) rssXML {
	items := make([]rssItem, 0, len(posts))
	var latest time.Time
	for _, p := range posts {
		postURL := views.BuildURL(cfg.URL, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: views.PlainText(p.Excerpt),
			Author:      p.Author.Name,
			GUID:        postURL,
		}
		for _, cat := range p.Categories {
			item.Categories = append(item.Categories, cat.Name)
		}
		if t := p.PublishedAt(); !t.IsZero() {
			item.PubDate = t.Format(time.RFC1123Z)
			if t.After(latest) {
				latest = t
			}
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        cfg.URL,
			Description: cfg.Description,
			Items:       items,
		},
	}
	if !latest.IsZero() {
		feed.Channel.LastBuildDate = latest.Format(time.RFC1123Z)
	}
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []wordpress.Post) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(buildFeed(a.Config, posts))
}
