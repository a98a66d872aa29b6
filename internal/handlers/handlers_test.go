package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/household/internal/config"
	"github.com/foxxcyber/household/internal/logging"
	"github.com/foxxcyber/household/internal/middleware"
	"github.com/foxxcyber/household/internal/session"
	"github.com/foxxcyber/household/internal/session/sessiontest"
)

var testCfg = &config.Config{
	JWTSecret:     "handler-test-secret",
	JWTCookieName: "token",
	JWTExpiry:     time.Hour,
}

// newTestApp mounts the API the way cmd/server does
func newTestApp(store *sessiontest.Store, catalog Catalog) *fiber.App {
	log := logging.Discard()
	h := New(catalog, session.NewManager(store, log), log)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	h.RegisterRoutes(app.Group("/api", middleware.AuthRequired(testCfg)))
	return app
}

type apiResponse struct {
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// call sends a request as userID (0 means anonymous) and decodes the body
func call(t *testing.T, app *fiber.App, method, path string, userID int, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		token, err := middleware.GenerateToken(testCfg, userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out apiResponse
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func decodeData(t *testing.T, r apiResponse, v interface{}) {
	t.Helper()
	require.NotEmpty(t, r.Data, "response has no data")
	require.NoError(t, json.Unmarshal(r.Data, v))
}
