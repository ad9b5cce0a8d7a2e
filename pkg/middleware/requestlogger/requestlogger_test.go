package requestlogger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/errorhandler"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(buf *bytes.Buffer, config Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()})
	app.Use(func(c *fiber.Ctx) error {
		l := slog.New(slog.NewJSONHandler(buf, nil))
		c.SetUserContext(logger.NewContext(c.UserContext(), l))
		return c.Next()
	})
	app.Use(New(config))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return errors.Wrap(errs.NotFound, "no such thing") })
	app.Get("/broken", func(c *fiber.Ctx) error { return errors.New("boom") })
	return app
}

func request(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestRequestLogger(t *testing.T) {
	decode := func(t *testing.T, buf *bytes.Buffer) map[string]any {
		t.Helper()
		var record map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
		return record
	}

	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		status := request(t, newApp(&buf, Config{}), "/ok")
		assert.Equal(t, http.StatusOK, status)

		record := decode(t, &buf)
		assert.Equal(t, "INFO", record["level"])
		assert.Equal(t, "api_request", record["event"])
		assert.EqualValues(t, http.StatusOK, record["response"].(map[string]any)["status"])
		assert.Equal(t, "/ok", record["request"].(map[string]any)["path"])
	})
	t.Run("error_status_is_rendered", func(t *testing.T) {
		var buf bytes.Buffer
		status := request(t, newApp(&buf, Config{}), "/missing")
		assert.Equal(t, http.StatusNotFound, status)

		record := decode(t, &buf)
		assert.Equal(t, "INFO", record["level"])
		assert.EqualValues(t, http.StatusNotFound, record["response"].(map[string]any)["status"])
		assert.Contains(t, record["error"], "no such thing")
	})
	t.Run("disabled_logs_only_errors", func(t *testing.T) {
		var buf bytes.Buffer
		app := newApp(&buf, Config{Disable: true})

		status := request(t, app, "/ok")
		assert.Equal(t, http.StatusOK, status)
		assert.Zero(t, buf.Len())

		status = request(t, app, "/broken")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
	})
}
