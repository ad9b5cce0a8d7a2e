package requestcontext

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(opts ...Option) *fiber.App {
	app := fiber.New()
	app.Use(New(opts...))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetClientIP(c.UserContext()) + "|" + GetRequestId(c.UserContext()))
	})
	return app
}

func get(t *testing.T, app *fiber.App, header map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestWithClientIP(t *testing.T) {
	t.Run("trusted_header", func(t *testing.T) {
		app := newApp(WithClientIP(WithClientIPConfig{TrustedHeader: "X-Real-IP"}))
		_, body := get(t, app, map[string]string{"X-Real-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"})
		assert.Equal(t, "203.0.113.7|", body)
	})
	t.Run("invalid_trusted_header_falls_back", func(t *testing.T) {
		app := newApp(WithClientIP(WithClientIPConfig{TrustedHeader: "X-Real-IP"}))
		_, body := get(t, app, map[string]string{"X-Real-IP": "nope", "X-Forwarded-For": "198.51.100.1"})
		assert.Equal(t, "198.51.100.1|", body)
	})
	t.Run("skips_trusted_proxies", func(t *testing.T) {
		app := newApp(WithClientIP(WithClientIPConfig{TrustedProxiesIP: []string{"10.0.0.0/8"}}))
		_, body := get(t, app, map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7, 10.0.0.2"})
		assert.Equal(t, "203.0.113.7|", body)
	})
	t.Run("all_trusted_uses_first", func(t *testing.T) {
		app := newApp(WithClientIP(WithClientIPConfig{TrustedProxiesIP: []string{"10.0.0.0/8"}}))
		_, body := get(t, app, map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.2"})
		assert.Equal(t, "10.1.1.1|", body)
	})
	t.Run("rejects_spoofable", func(t *testing.T) {
		app := newApp(WithClientIP(WithClientIPConfig{EnableRejectMalformedRequest: true}))
		status, _ := get(t, app, map[string]string{"X-Forwarded-For": "203.0.113.7"})
		assert.Equal(t, http.StatusForbidden, status)
	})
	t.Run("invalid_proxy_range_panics", func(t *testing.T) {
		assert.Panics(t, func() { WithClientIP(WithClientIPConfig{TrustedProxiesIP: []string{"10.0.0.0"}}) })
	})
}

func TestWithRequestId(t *testing.T) {
	t.Run("from_header", func(t *testing.T) {
		app := newApp(WithRequestId())
		_, body := get(t, app, map[string]string{fiber.HeaderXRequestID: "req-1"})
		assert.Equal(t, "|req-1", body)
	})
	t.Run("generated", func(t *testing.T) {
		app := newApp(WithRequestId())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	})
	t.Run("missing_value", func(t *testing.T) {
		assert.Empty(t, GetRequestId(context.Background()))
		assert.Empty(t, GetClientIP(context.Background()))
	})
}
