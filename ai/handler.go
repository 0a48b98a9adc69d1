// Package ai serves the /api/ai/* routes: the streaming document chat, the
// explain stream, file text extraction and the proxies to the writing backend.
package ai

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

// Config holds the upstream settings for the AI routes.
type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string // empty uses the public API
	Model         string
	BackendURL    string
	BackendRPS    float64
	HTTPClient    *http.Client
}

// Request body limits. The extract group limit leaves room for multipart
// framing around the largest accepted upload.
const (
	maxUploadBody = "11M"
	maxChatBody   = "2M"
)

// Gate meters feature uses. Reserve takes one use up front and reports false
// when the caller is over quota; Release hands a reserved use back when the
// work fails.
type Gate interface {
	Reserve(c echo.Context, feature string) (bool, error)
	Release(c echo.Context, feature string) error
}

type openGate struct{}

func (openGate) Reserve(echo.Context, string) (bool, error) { return true, nil }
func (openGate) Release(echo.Context, string) error         { return nil }

// Handler serves the AI routes.
type Handler struct {
	chat    openai.Client
	hasKey  bool
	model   string
	backend *Backend
	gate    Gate
	metrics *Metrics
}

// NewHandler creates a Handler. A nil gate allows every request; a nil metrics
// records nothing.
func NewHandler(cfg Config, gate Gate, metrics *Metrics) *Handler {
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4oMini)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if gate == nil {
		gate = openGate{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(cfg.HTTPClient),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	limit := rate.Inf
	if cfg.BackendRPS > 0 {
		limit = rate.Limit(cfg.BackendRPS)
	}
	return &Handler{
		chat:    openai.NewClient(opts...),
		hasKey:  cfg.OpenAIKey != "",
		model:   cfg.Model,
		backend: NewBackend(cfg.BackendURL, cfg.HTTPClient, rate.NewLimiter(limit, 1)),
		gate:    gate,
		metrics: metrics,
	}
}

// RegisterRoutes mounts the AI routes on g, which is expected to be the
// /api/ai group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.Use(middleware.BodyLimit(maxUploadBody))
	g.POST("/chat", h.Chat, middleware.BodyLimit(maxChatBody))
	g.POST("/explain", h.Explain, middleware.BodyLimit(maxChatBody))
	g.POST("/extract", h.Extract)
	g.POST("/simplify", h.proxy(featureSimplify))
	g.POST("/stealth", h.proxy(featureStealth))
	g.POST("/podcast", h.proxy(featurePodcast))
}

// jsonError writes the {"error": msg} body used by every AI route.
func (h *Handler) jsonError(c echo.Context, route string, code int, msg string) error {
	h.metrics.observe(route, code)
	return c.JSON(code, map[string]string{"error": msg})
}

// reserve takes one use of feature. When it returns false the response has
// already been written and err is what the handler should return.
func (h *Handler) reserve(c echo.Context, route, feature string) (bool, error) {
	ok, err := h.gate.Reserve(c, feature)
	if err != nil {
		c.Logger().Errorf("usage reserve %s: %v", feature, err)
		return false, h.jsonError(c, route, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
	if !ok {
		return false, h.jsonError(c, route, http.StatusTooManyRequests, "Free usage limit reached. Sign up to keep going.")
	}
	return true, nil
}

func (h *Handler) release(c echo.Context, feature string) {
	if err := h.gate.Release(c, feature); err != nil {
		c.Logger().Errorf("usage release %s: %v", feature, err)
	}
}

// tooLarge reports whether err came from the body limit.
func tooLarge(err error) bool {
	return errors.Is(err, echo.ErrStatusRequestEntityTooLarge)
}
