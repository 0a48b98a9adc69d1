package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/eringen/scribeline/usage"
)

const maxProxyBody = 1 << 20

type proxyFeature struct {
	name string // usage feature and metrics route
	path string // backend path
}

var (
	featureSimplify = proxyFeature{name: usage.FeatureSimplify, path: "/simplify"}
	featureStealth  = proxyFeature{name: usage.FeatureStealth, path: "/humanize"}
	featurePodcast  = proxyFeature{name: usage.FeaturePodcast, path: "/podcast"}
)

// ErrBackendUnconfigured is returned when no backend URL is set.
var ErrBackendUnconfigured = errors.New("backend URL is not configured")

// UpstreamError is a non-2xx answer from the backend.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Backend forwards JSON requests to the writing backend. Calls are paced by a
// shared token bucket.
type Backend struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewBackend creates a Backend rooted at baseURL.
func NewBackend(baseURL string, client *http.Client, limiter *rate.Limiter) *Backend {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Backend{baseURL: strings.TrimSuffix(baseURL, "/"), client: client, limiter: limiter}
}

// Post sends payload to path and returns the response body of a 2xx answer.
func (b *Backend) Post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	if b.baseURL == "" {
		return nil, ErrBackendUnconfigured
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for backend slot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*maxProxyBody))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}
	return body, nil
}

// upstreamMessage pulls a human readable message out of a backend error body.
func upstreamMessage(body []byte) string {
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if s, ok := parsed[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	return "The writing service is unavailable. Please try again."
}

func (h *Handler) proxy(f proxyFeature) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := f.name
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxProxyBody+1))
		if err != nil && !tooLarge(err) {
			return h.jsonError(c, route, http.StatusBadRequest, "Invalid request body")
		}
		if err != nil || len(body) > maxProxyBody {
			return h.jsonError(c, route, http.StatusRequestEntityTooLarge, "Text is too long")
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return h.jsonError(c, route, http.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Text) == "" {
			return h.jsonError(c, route, http.StatusBadRequest, "text is required")
		}
		if ok, err := h.reserve(c, route, f.name); !ok {
			return err
		}

		out, err := h.backend.Post(c.Request().Context(), f.path, body)
		if err != nil {
			h.release(c, f.name)
			var upErr *UpstreamError
			if errors.As(err, &upErr) {
				c.Logger().Errorf("%s: %v", route, err)
				return h.jsonError(c, route, http.StatusBadGateway, upErr.Message)
			}
			c.Logger().Errorf("%s: %v", route, err)
			return h.jsonError(c, route, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		h.metrics.observe(route, http.StatusOK)
		return c.JSONBlob(http.StatusOK, out)
	}
}
