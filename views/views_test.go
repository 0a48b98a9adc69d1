package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/scribeline/bridge"
	"github.com/eringen/scribeline/wordpress"
)

func render(t *testing.T, name string, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, page(name, data).Render(context.Background(), &buf))
	return buf.String()
}

func testPage() Page {
	return Page{Site: SiteConfig{Name: "Scribeline", URL: "https://scribeline.test", Description: "Write better"}}
}

func TestAllTemplatesParse(t *testing.T) {
	for _, name := range []string{"home", "blog", "post", "legal", "app", "notfound", "error"} {
		assert.Contains(t, pages, name)
	}
}

func TestPostEscapesTitleButNotContent(t *testing.T) {
	out := render(t, "post", PostData{
		Page: testPage(),
		Post: wordpress.Post{
			Title:   "Tips <b>&</b> tricks",
			Slug:    "tips",
			Content: "<p>Hello <em>world</em></p>",
		},
	})
	assert.Contains(t, out, "Tips &lt;b&gt;&amp;&lt;/b&gt; tricks")
	assert.Contains(t, out, "<p>Hello <em>world</em></p>")
}

func TestLayoutBridgeScript(t *testing.T) {
	p := testPage()
	assert.NotContains(t, render(t, "notfound", p), "bridge.js")

	p.Site.SessionOrigin = "https://app.example.com"
	p.Site.BridgePath = "/auth/bridge"
	out := render(t, "notfound", p)
	assert.Contains(t, out, `data-origin="https://app.example.com"`)
	assert.Contains(t, out, `data-path="/auth/bridge"`)
}

func TestAppShowsRemainingOrName(t *testing.T) {
	tool, ok := FindTool("stealth")
	require.True(t, ok)

	p := testPage()
	p.Viewer.Remaining = map[string]int{"stealth": 1}
	out := render(t, "app", AppData{Page: p, Tool: tool, Tools: Tools})
	assert.Contains(t, out, "1 free use left")

	p.Viewer = Viewer{Session: bridge.Session{IsLoggedIn: true, Email: "ada@example.com"}}
	out = render(t, "app", AppData{Page: p, Tool: tool, Tools: Tools})
	assert.Contains(t, out, "ada")
	assert.NotContains(t, out, "free use")
}

func TestFindTool(t *testing.T) {
	_, ok := FindTool("nope")
	assert.False(t, ok)
	for _, slug := range []string{"simplify", "stealth", "chat", "podcast"} {
		tool, ok := FindTool(slug)
		require.True(t, ok, slug)
		assert.True(t, strings.HasPrefix(tool.Endpoint, "/api/ai/"))
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://scribeline.test", BuildURL("https://scribeline.test"))
	assert.Equal(t, "https://scribeline.test/blog/hello/", BuildURL("https://scribeline.test", "blog", "hello"))
}

func TestPlainTextAndReadingTime(t *testing.T) {
	assert.Equal(t, "Hello world & more", PlainText("<p>Hello <b>world</b></p> &amp; more"))
	assert.Equal(t, 1, ReadingTime("<p>short</p>"))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("word ", 250)))
}

func TestBlogPostingJsonLD(t *testing.T) {
	js := string(BlogPostingJsonLD(testPage().Site, wordpress.Post{
		Title:  "Hello",
		Slug:   "hello",
		Date:   "2024-01-02T10:00:00",
		Author: wordpress.Author{Name: "Ada"},
		Tags:   []wordpress.Term{{Name: "go"}},
	}))
	assert.Contains(t, js, `"headline":"Hello"`)
	assert.Contains(t, js, `"url":"https://scribeline.test/blog/hello/"`)
	assert.Contains(t, js, `"datePublished":"2024-01-02T10:00:00Z"`)
	assert.Contains(t, js, `"keywords":"go"`)
}
