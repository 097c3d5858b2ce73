package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHTTPSRedirect_PlainRequestGets308(t *testing.T) {
	app := fiber.New()
	app.Use(HTTPSRedirect())
	app.Get("/path", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/path?x=1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusPermanentRedirect {
		t.Fatalf("expected 308, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/path?x=1" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestHTTPSRedirect_ForwardedHTTPSPassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(HTTPSRedirect())
	app.Get("/path", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/path", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected pass-through behind TLS proxy, got %d", resp.StatusCode)
	}
}

func TestHTTPSRedirect_PreservesMethod(t *testing.T) {
	app := fiber.New()
	app.Use(HTTPSRedirect())
	app.Post("/submit", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	// 308 keeps the method on replay, unlike 301.
	if resp.StatusCode != fiber.StatusPermanentRedirect {
		t.Fatalf("expected 308 for POST, got %d", resp.StatusCode)
	}
}
