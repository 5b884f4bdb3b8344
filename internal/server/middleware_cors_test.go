package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campusOrigin = "http://localhost:5173"

// newCORSTestApp wires the full middleware chain in front of one route so
// the limiter and CORS ordering is exactly what production traffic sees.
func newCORSTestApp(t *testing.T, method, path string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: campusOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Add(method, path, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func saturateLimiter(t *testing.T, app *fiber.App, method, path string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Origin", campusOrigin)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestSetupMiddleware_ThrottledBrowseStillCarriesCORSHeaders(t *testing.T) {
	app := newCORSTestApp(t, http.MethodGet, "/api/posts")
	saturateLimiter(t, app, http.MethodGet, "/api/posts")

	// The browser needs the CORS headers on the 429 too, otherwise the
	// frontend sees an opaque network error instead of a throttle.
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Origin", campusOrigin)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, campusOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSetupMiddleware_PreflightSkipsLimiter(t *testing.T) {
	app := newCORSTestApp(t, http.MethodPost, "/api/contact")
	saturateLimiter(t, app, http.MethodPost, "/api/contact")

	throttled := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	throttled.Header.Set("Origin", campusOrigin)
	throttledResp, err := app.Test(throttled, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, throttledResp.StatusCode)
	_ = throttledResp.Body.Close()

	// OPTIONS never counts against the window; a throttled member could
	// otherwise never recover because preflights keep failing first.
	preflight := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	preflight.Header.Set("Origin", campusOrigin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	resp, err := app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, campusOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
