// Package scribeline serves the marketing site and AI feature front-end of a
// writing assistant: a blog backed by headless WordPress, a sidebar shell for
// the writing tools, legal pages, feeds, and the /api routes that proxy to
// OpenAI and the product backend.
package scribeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/scribeline/ai"
	"github.com/eringen/scribeline/usage"
	"github.com/eringen/scribeline/wordpress"
)

// App wires together the store, blog cache, AI routes, middleware and views.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Cache     *PostCache
	WordPress *wordpress.Client
	Usage     *usage.Tracker
	AI        *ai.Handler
	Registry  *prometheus.Registry

	metrics       *siteMetrics
	aiLimiter     *RequestLimiter
	customRoutes  []func(*App)
	staticDir     string
	httpClient    *http.Client
	usageStore    usage.Store
	openAIBaseURL string
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)

	a := &App{
		Config:    cfg,
		Echo:      e,
		Registry:  prometheus.NewRegistry(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	return a
}

// Init opens the database, builds the blog cache and AI handler, and
// registers middleware and routes. Start calls it; tests call it directly
// and drive a.Echo with httptest.
func (a *App) Init() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("scribeline: init store: %w", err)
	}
	a.Store = store

	a.metrics = newSiteMetrics(a.Registry)

	a.WordPress = wordpress.NewClient(a.Config.WordPressEndpoint, a.httpClient, a.Echo.Logger)
	a.WordPress.OnFailure = a.metrics.wordpressFailures.Inc
	a.Cache = NewPostCache(a.WordPress, a.Config.BlogRevalidate, a.Config.BlogPageSize)

	if a.usageStore == nil {
		a.usageStore, err = a.openUsageStore()
		if err != nil {
			return fmt.Errorf("scribeline: init usage store: %w", err)
		}
	}
	a.Usage = usage.NewTracker(a.usageStore, usage.GuestPlan)

	a.AI = ai.NewHandler(ai.Config{
		OpenAIKey:     a.Config.OpenAIKey,
		OpenAIBaseURL: a.openAIBaseURL,
		Model:         a.Config.OpenAIModel,
		BackendURL:    a.Config.BackendURL,
		BackendRPS:    a.Config.BackendRPS,
		HTTPClient:    a.httpClient,
	}, &sessionGate{tracker: a.Usage}, ai.NewMetrics(a.Registry))

	a.aiLimiter = NewRequestLimiter(a.Config.AIRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) openUsageStore() (usage.Store, error) {
	if a.Config.RedisURL != "" {
		return usage.NewRedisStore(a.Config.RedisURL, "scribeline:", 30*24*time.Hour)
	}
	return usage.NewSQLiteStore(a.Store.DB())
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	a.Close()
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/public/bridge.js", handleBridgeScript)
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", a.metricsHandler())

	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleBlogIndex)
	e.GET("/blog/category/:slug/", a.handleCategory)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/blog/:slug/cover.jpg", a.handleCover)

	e.GET("/privacy/", a.handleLegal("privacy"))
	e.GET("/terms/", a.handleLegal("terms"))
	e.GET("/cookies/", a.handleLegal("cookies"))

	e.GET("/app/", handleAppRedirect)
	e.GET("/app/:tool/", a.handleApp)

	api := e.Group("/api")
	api.GET("/blogs", a.handleBlogsAPI)
	api.GET("/session", a.handleGetSession)
	api.POST("/session", a.handlePostSession)
	api.GET("/usage", a.handleUsage)

	a.AI.RegisterRoutes(api.Group("/ai", a.aiLimiter.Middleware))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.aiLimiter != nil {
		a.aiLimiter.Stop()
		a.aiLimiter = nil
	}
	if a.usageStore != nil {
		a.usageStore.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}
