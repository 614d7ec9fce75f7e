package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/routes"
)

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	srv, err := New(routes.Deps{
		Cfg: config.Config{
			AppName:        "MusicMoon",
			AppEnv:         "test",
			JWTSecret:      "test-secret",
			AccessTokenTTL: time.Minute,
			IdempotencyTTL: time.Minute,
			CallTimeout:    time.Second,
			LoginRateLimit: 5,
			MaxUploadBytes: 1 << 20,
		},
		Cache:  cache,
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	return srv.App()
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestMarketplaceFlow(t *testing.T) {
	app := newTestServer(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "ann@x.com", "password": "secret1", "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["access_token"].(string)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "ann@x.com", "password": "secret1", "name": "Ann",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": "ann@x.com", "password": "wrong!!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ann@x.com", body["email"])

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("title", "Cosmic Journey")
	_ = w.WriteField("description", "A ten minute synth odyssey")
	_ = w.WriteField("price", "1.5")
	_ = w.WriteField("category", "Electronic")
	image, _ := w.CreateFormFile("image", "cover.png")
	_, _ = image.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	audio, _ := w.CreateFormFile("audio", "track.mp3")
	_, _ = audio.Write([]byte("ID3\x03\x00\x00\x00"))
	require.NoError(t, w.Close())

	mint := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/items", bytes.NewReader(buf.Bytes()))
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		req.Header.Set("Idempotency-Key", "mint-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}
	require.Equal(t, http.StatusCreated, mint().StatusCode)
	replay := mint()
	require.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.Equal(t, "true", replay.Header.Get("Idempotent-Replayed"))

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/items?q=COSMIC&min=0&max=10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	creator := items[0].(map[string]any)["creator"].(map[string]any)
	assert.Equal(t, "Ann", creator["name"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/items?q=cosmic&max=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["items"])

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/me/wallet", token, map[string]string{"address": "7dD3MkVhKChenBB34n5QpWYjzQ23v3D2qX3exAcXwd6h"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestServer(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "musicmoon_catalog_loads_total"))
}
