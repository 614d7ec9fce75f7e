package middleware

import (
	"bytes"
	"encoding/json"
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

	"github.com/musicmoon/marketplace/internal/auth"
	"github.com/musicmoon/marketplace/internal/config"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/logging"
)

func TestJWTAuth(t *testing.T) {
	tokens := auth.NewService(config.Config{AppName: "MusicMoon", JWTSecret: "s", AccessTokenTTL: time.Minute})
	app := fiber.New()
	app.Get("/me", JWTAuth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(identity.IdentityIDLocal).(string))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.Issue(identity.Identity{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	assert.Equal(t, "u1", body.String())
}

func TestLoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Post("/signin", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	signIn := func(email string) int {
		payload, _ := json.Marshal(map[string]string{"email": email, "password": "x"})
		req := httptest.NewRequest(http.MethodPost, "/signin", bytes.NewReader(payload))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, signIn("a@x.com"))
	assert.Equal(t, http.StatusOK, signIn("A@x.com "))
	assert.Equal(t, http.StatusTooManyRequests, signIn("a@x.com"))
	assert.Equal(t, http.StatusOK, signIn("b@x.com"))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, signIn("a@x.com"))
}

func TestRequestIDAndAudit(t *testing.T) {
	var logs bytes.Buffer
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Audit(logging.New("info", "json", &logs)))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(requestIDHeader))
	assert.True(t, strings.Contains(logs.String(), `"request_id":"req-1"`))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)
}
