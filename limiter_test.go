package scribeline

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewRequestLimiter(2, 200*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.10"

	assert.True(t, limiter.Allow(ip), "first request")
	assert.True(t, limiter.Allow(ip), "second request")
	assert.False(t, limiter.Allow(ip), "third request")
}

func TestRequestLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewRequestLimiter(1, 150*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.20"

	require.True(t, limiter.Allow(ip))
	require.False(t, limiter.Allow(ip))

	time.Sleep(200 * time.Millisecond)
	assert.True(t, limiter.Allow(ip), "request after window")
}

func TestRequestLimiterIsPerIP(t *testing.T) {
	limiter := NewRequestLimiter(1, 200*time.Millisecond)
	defer limiter.Stop()

	assert.True(t, limiter.Allow("203.0.113.30"))
	assert.True(t, limiter.Allow("203.0.113.31"))
	assert.False(t, limiter.Allow("203.0.113.30"))
}

func TestRequestLimiterMiddleware(t *testing.T) {
	limiter := NewRequestLimiter(1, time.Minute)
	defer limiter.Stop()

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limiter.Middleware)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
