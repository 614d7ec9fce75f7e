package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/logging"
)

func setupTestApp(t *testing.T, required bool) (*fiber.App, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	calls := &atomic.Int32{}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-Identity"); id != "" {
			c.Locals(identity.IdentityIDLocal, id)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, IdempotencyConfig{TTL: time.Minute, Required: required}, logging.Discard()))
	app.Post("/items", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		calls.Add(1)
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})
	return app, calls
}

func post(t *testing.T, app *fiber.App, path, key, who string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if who != "" {
		req.Header.Set("X-Test-Identity", who)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeaderWhenConfigured(t *testing.T) {
	app, _ := setupTestApp(t, true)

	if status, _ := post(t, app, "/items", "", "ann"); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyOptionalHeaderPassesThrough(t *testing.T) {
	app, calls := setupTestApp(t, false)

	post(t, app, "/items", "", "ann")
	post(t, app, "/items", "", "ann")
	if calls.Load() != 2 {
		t.Fatalf("expected handler to run twice, ran %d", calls.Load())
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t, true)

	status, payload := post(t, app, "/items", "abc123", "ann")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Same key, same identity: replayed without invoking the handler.
	status, cached := post(t, app, "/items", "abc123", "ann")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one handler call, got %d", calls.Load())
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}

	// Same key, another identity: executed independently.
	post(t, app, "/items", "abc123", "bob")
	if calls.Load() != 2 {
		t.Fatalf("expected key to be scoped per identity, got %d calls", calls.Load())
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app, calls := setupTestApp(t, true)

	post(t, app, "/broken", "k1", "ann")
	post(t, app, "/broken", "k1", "ann")
	if calls.Load() != 2 {
		t.Fatalf("expected failed request to be retryable, got %d calls", calls.Load())
	}
}
