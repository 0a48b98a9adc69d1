package scribeline

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/eringen/scribeline/usage"
)

// SiteConfig holds all configuration for the site, read from the environment.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`        // Site name (default "Scribeline")
	URL         string `env:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `env:"SITE_DESCRIPTION"` // Description for RSS and meta tags

	Addr         string `env:"ADDR"`          // Listen address (default ":3000")
	DatabasePath string `env:"DATABASE_PATH"` // SQLite path (default "data/site.db")
	RedisURL     string `env:"REDIS_URL"`     // Optional Redis for usage counters

	WordPressEndpoint string        `env:"NEXT_PUBLIC_WORDPRESS_API_ENDPOINT"`
	BlogRevalidate    time.Duration `env:"BLOG_REVALIDATE"` // Post cache TTL (default 60s)
	BlogPageSize      int           `env:"BLOG_PAGE_SIZE"`  // Posts fetched per listing (default 100)

	OpenAIKey   string  `env:"OPENAI_API_KEY"`
	OpenAIModel string  `env:"OPENAI_MODEL"`
	BackendURL  string  `env:"NEXT_PUBLIC_API_BASE_URL"`
	BackendRPS  float64 `env:"BACKEND_RPS"`   // Outbound backend calls per second (0 = unlimited)
	AIRateLimit int     `env:"AI_RATE_LIMIT"` // AI requests per IP per minute (default 30)

	SessionSecret string `env:"SESSION_SECRET"` // Required: cookie signing secret
	SessionOrigin string `env:"SESSION_ORIGIN"` // Trusted origin of the session bridge iframe
	BridgePath    string `env:"SESSION_BRIDGE_PATH"`
	CookieSecure  bool   `env:"COOKIE_SECURE"`
}

// LoadConfig reads SiteConfig from the environment.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("scribeline: parse config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Validate reports missing required settings.
func (c SiteConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("scribeline: SESSION_SECRET is required")
	}
	return nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Scribeline"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.BlogRevalidate == 0 {
		c.BlogRevalidate = time.Minute
	}
	if c.BlogPageSize == 0 {
		c.BlogPageSize = 100
	}
	if c.AIRateLimit == 0 {
		c.AIRateLimit = 30
	}
	if c.BridgePath == "" {
		c.BridgePath = "/auth/bridge"
	}
	c.SessionOrigin = strings.TrimSuffix(c.SessionOrigin, "/")
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithHTTPClient sets the client used for WordPress, OpenAI, backend and
// image requests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}

// WithUsageStore replaces the usage counter store.
func WithUsageStore(s usage.Store) Option {
	return func(a *App) {
		a.usageStore = s
	}
}

// WithOpenAIBaseURL points the chat routes at a different OpenAI-compatible API.
func WithOpenAIBaseURL(u string) Option {
	return func(a *App) {
		a.openAIBaseURL = u
	}
}
