package scribeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/scribeline/wordpress"
)

func term(slug string) wordpress.Term { return wordpress.Term{Name: slug, Slug: slug} }

func TestRelatedPostsRanksBySharedTerms(t *testing.T) {
	current := wordpress.Post{
		Slug:       "current",
		Tags:       []wordpress.Term{term("go"), term("writing")},
		Categories: []wordpress.Term{term("guides")},
	}
	posts := []wordpress.Post{
		current,
		{Slug: "one-tag", Tags: []wordpress.Term{term("go")}},
		{Slug: "unrelated", Tags: []wordpress.Term{term("rust")}},
		{Slug: "three", Tags: []wordpress.Term{term("GO"), term("writing")}, Categories: []wordpress.Term{term("guides")}},
		{Slug: "category-only", Categories: []wordpress.Term{term("guides")}},
	}

	related := RelatedPosts(current, posts, 2)
	require.Len(t, related, 2)
	assert.Equal(t, "three", related[0].Slug)
	assert.Equal(t, "one-tag", related[1].Slug, "ties keep source order")

	assert.Len(t, RelatedPosts(current, posts, 10), 3)
}

func TestFilterByLanguage(t *testing.T) {
	posts := []wordpress.Post{{Slug: "a", Language: "en"}, {Slug: "b", Language: "fr"}}
	assert.Len(t, FilterByLanguage(posts, ""), 2)
	fr := FilterByLanguage(posts, "FR")
	require.Len(t, fr, 1)
	assert.Equal(t, "b", fr[0].Slug)
	assert.Empty(t, FilterByLanguage(posts, "de"))
}

func TestLanguages(t *testing.T) {
	assert.Nil(t, Languages([]wordpress.Post{{Language: "en"}, {Language: "en"}}))
	assert.Equal(t, []string{"en", "fr"}, Languages([]wordpress.Post{{Language: "fr"}, {Language: "en"}, {}}))
}

func TestRobotsTxt(t *testing.T) {
	got := RobotsTxt("https://scribeline.test/")
	assert.Contains(t, got, "User-agent: *")
	assert.Contains(t, got, "Disallow: /api/")
	assert.Contains(t, got, "Sitemap: https://scribeline.test/sitemap.xml")
}

func TestBuildSitemap(t *testing.T) {
	posts := []wordpress.Post{{Slug: "hello", Date: "2024-01-01T10:00:00", Modified: "2024-02-03T08:00:00"}}
	set := buildSitemap("https://scribeline.test", posts, []string{"hello", "older"}, []wordpress.Category{{Slug: "guides"}})

	locs := map[string]string{}
	for _, u := range set.URLs {
		locs[u.Loc] = u.LastMod
	}
	assert.Contains(t, locs, "https://scribeline.test")
	assert.Contains(t, locs, "https://scribeline.test/privacy/")
	assert.Contains(t, locs, "https://scribeline.test/app/chat/")
	assert.Equal(t, "2024-02-03", locs["https://scribeline.test/blog/hello/"])
	assert.Contains(t, locs, "https://scribeline.test/blog/older/")
	assert.Contains(t, locs, "https://scribeline.test/blog/category/guides/")

	count := 0
	for _, u := range set.URLs {
		if u.Loc == "https://scribeline.test/blog/hello/" {
			count++
		}
	}
	assert.Equal(t, 1, count, "slugs already listed as posts are not repeated")

	var buf bytes.Buffer
	require.NoError(t, writeSitemap(&buf, set))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
}

func TestBuildFeed(t *testing.T) {
	cfg := SiteConfig{Name: "Scribeline", URL: "https://scribeline.test", Description: "Write better"}
	feed := buildFeed(cfg, []wordpress.Post{{
		Title:      "Hello",
		Slug:       "hello",
		Excerpt:    "<p>Short &amp; sweet</p>",
		Date:       "2024-01-02T10:00:00",
		Author:     wordpress.Author{Name: "Ada"},
		Categories: []wordpress.Term{{Name: "Guides", Slug: "guides"}},
	}})

	require.Len(t, feed.Channel.Items, 1)
	item := feed.Channel.Items[0]
	assert.Equal(t, "https://scribeline.test/blog/hello/", item.Link)
	assert.Equal(t, "Short & sweet", item.Description)
	assert.Equal(t, []string{"Guides"}, item.Categories)
	assert.Equal(t, "Tue, 02 Jan 2024 10:00:00 +0000", item.PubDate)
	assert.Equal(t, item.PubDate, feed.Channel.LastBuildDate)
}

func TestContentSecurityPolicyAllowsSessionOrigin(t *testing.T) {
	assert.Contains(t, contentSecurityPolicy("https://app.example.com"), "frame-src 'self' https://app.example.com")
	assert.True(t, strings.HasSuffix(contentSecurityPolicy(""), "frame-src 'self'"))
}

func TestRenderLegal(t *testing.T) {
	page, err := renderLegal([]byte("# Terms\n\nSome *text*.\n\n| a | b |\n| - | - |\n| 1 | 2 |\n"))
	require.NoError(t, err)
	assert.Equal(t, "Terms", page.Title)
	assert.Contains(t, string(page.Body), "<em>text</em>")
	assert.Contains(t, string(page.Body), "<table>")
}

func TestEmbeddedLegalPages(t *testing.T) {
	pages, err := loadLegalPages()
	require.NoError(t, err)
	for _, name := range []string{"privacy", "terms", "cookies"} {
		require.Contains(t, pages, name)
		assert.NotEmpty(t, pages[name].Title)
	}
}
