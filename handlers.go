package scribeline

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/scribeline/bridge"
	"github.com/eringen/scribeline/views"
	"github.com/eringen/scribeline/wordpress"
)

// homePostCount is how many recent posts the landing page lists.
const homePostCount = 3

// relatedPostCount caps the related posts shown under an article.
const relatedPostCount = 3

func (a *App) siteView() views.SiteConfig {
	return views.SiteConfig{
		Name:          a.Config.Name,
		URL:           a.Config.URL,
		Description:   a.Config.Description,
		SessionOrigin: a.Config.SessionOrigin,
		BridgePath:    a.Config.BridgePath,
	}
}

func (a *App) page(c echo.Context, meta views.PageMeta) views.Page {
	return views.Page{
		Site:   a.siteView(),
		Meta:   meta,
		Viewer: views.Viewer{Session: CurrentSession(c)},
	}
}

func (a *App) handleHome(c echo.Context) error {
	posts := a.Cache.ListPosts(c.Request().Context(), "")
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	p := a.page(c, views.PageMeta{URL: views.BuildURL(a.Config.URL)})
	p.JsonLD = views.WebsiteJsonLD(p.Site)
	return Render(c, views.Home(views.HomeData{Page: p, Posts: posts, Tools: views.Tools}))
}

func (a *App) handleBlogIndex(c echo.Context) error {
	ctx := c.Request().Context()
	all := a.Cache.ListPosts(ctx, "")
	lang := strings.ToLower(c.QueryParam("lang"))
	return Render(c, views.Blog(views.BlogData{
		Page: a.page(c, views.PageMeta{
			Title: "Blog",
			URL:   views.BuildURL(a.Config.URL, "blog"),
			Lang:  lang,
		}),
		Posts:      FilterByLanguage(all, lang),
		Categories: a.Cache.ListCategories(ctx),
		Languages:  Languages(all),
		ActiveLang: lang,
	}))
}

func (a *App) handleCategory(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	cat, ok := a.Cache.Category(ctx, slug)
	posts := a.Cache.ListPosts(ctx, slug)
	if !ok && len(posts) == 0 {
		return echo.ErrNotFound
	}
	if !ok {
		cat = wordpress.Category{Name: slug, Slug: slug, Count: len(posts)}
	}
	return Render(c, views.Blog(views.BlogData{
		Page: a.page(c, views.PageMeta{
			Title: cat.Name,
			URL:   views.BuildURL(a.Config.URL, "blog", "category", cat.Slug),
		}),
		Posts:      posts,
		Categories: a.Cache.ListCategories(ctx),
		Category:   &cat,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	meta := views.PageMeta{
		Title:       post.Title,
		Description: views.PlainText(post.Excerpt),
		URL:         views.BuildURL(a.Config.URL, "blog", post.Slug),
		OGType:      "article",
		Lang:        post.Language,
	}
	if post.FeaturedImage != "" {
		meta.Image = a.Config.URL + "/blog/" + post.Slug + "/cover.jpg"
	}
	p := a.page(c, meta)
	p.JsonLD = views.BlogPostingJsonLD(p.Site, post)
	return Render(c, views.Post(views.PostData{
		Page:    p,
		Post:    post,
		Related: RelatedPosts(post, a.Cache.ListPosts(ctx, ""), relatedPostCount),
	}))
}

// handleBlogsAPI lists posts as JSON. Query params: category, first.
func (a *App) handleBlogsAPI(c echo.Context) error {
	posts := a.Cache.ListPosts(c.Request().Context(), c.QueryParam("category"))
	if n, err := strconv.Atoi(c.QueryParam("first")); err == nil && n >= 0 && n < len(posts) {
		posts = posts[:n]
	}
	if posts == nil {
		posts = []wordpress.Post{}
	}
	return c.JSON(http.StatusOK, map[string]any{"posts": posts})
}

func handleAppRedirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/app/"+views.Tools[0].Slug+"/")
}

func (a *App) handleApp(c echo.Context) error {
	tool, ok := views.FindTool(c.Param("tool"))
	if !ok {
		return echo.ErrNotFound
	}
	p := a.page(c, views.PageMeta{
		Title: tool.Name,
		URL:   views.BuildURL(a.Config.URL, "app", tool.Slug),
	})
	p.Viewer.Remaining = a.viewerRemaining(c, p.Viewer.Session)
	return Render(c, views.App(views.AppData{Page: p, Tool: tool, Tools: views.Tools}))
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	return a.renderSitemap(c, a.Cache.ListPosts(ctx, ""), a.Cache.Slugs(ctx), a.Cache.ListCategories(ctx))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Cache.ListPosts(c.Request().Context(), ""))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, RobotsTxt(a.Config.URL))
}

func handleBridgeScript(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", bridge.Script)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code == http.StatusRequestEntityTooLarge {
		msg = "Request is too large"
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		msg = "Something went wrong. Please try again."
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}

	p := a.page(c, views.PageMeta{})
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, views.NotFound(p))
	case code >= 500:
		_ = RenderStatus(c, code, views.ServerError(p))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
