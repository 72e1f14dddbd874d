package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dormdesk/maintenance-service/internal/observability"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 5*time.Second)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp, body
}

func TestRequestTimeoutBoundsHandlerContext(t *testing.T) {
	app := newTestApp(t)
	app.Get("/deadline", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.JSON(fiber.Map{"remaining": time.Until(deadline).Seconds()})
	})

	resp, body := doRequest(t, app, http.MethodGet, "/deadline")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	remaining, ok := body["remaining"].(float64)
	require.True(t, ok)
	require.Greater(t, remaining, 0.0)
	require.LessOrEqual(t, remaining, 5.0)
}

func TestErrorMiddlewareMapsDomainErrors(t *testing.T) {
	app := newTestApp(t)
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return apperrors.NewConflict("ticket already rated", map[string]any{"ticket_id": 7})
	})

	resp, body := doRequest(t, app, http.MethodGet, "/conflict")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "CONFLICT", errObj["code"])
	require.Equal(t, "ticket already rated", errObj["message"])
	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(7), details["ticket_id"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	resp, body := doRequest(t, app, http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	errObj := body["error"].(map[string]any)
	require.Equal(t, "INTERNAL_ERROR", errObj["code"])
}

func TestErrorMiddlewareWrapsUnknownErrors(t *testing.T) {
	app := newTestApp(t)
	app.Get("/opaque", func(c *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})

	resp, body := doRequest(t, app, http.MethodGet, "/opaque")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	errObj := body["error"].(map[string]any)
	require.Equal(t, "INTERNAL_ERROR", errObj["code"])
	require.Equal(t, "internal server error", errObj["message"])
}
