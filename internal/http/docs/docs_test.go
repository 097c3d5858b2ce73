package docs

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestEnabled(t *testing.T) {
	cases := []struct {
		env  string
		want bool
	}{
		{"dev", true},
		{"staging", true},
		{"", true},
		{"prod", false},
	}
	for _, tc := range cases {
		if got := Enabled(tc.env); got != tc.want {
			t.Errorf("Enabled(%q) = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestRegister_ProdPublishesNothing(t *testing.T) {
	app := fiber.New()
	Register(app, "prod")

	for _, target := range []string{"/openapi.json", "/docs", "/docs/index.html"} {
		req, err := http.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusNotFound {
			t.Errorf("GET %s in prod: status %d, want 404", target, resp.StatusCode)
		}
	}
}

func TestRegister_ServesSpec(t *testing.T) {
	app := fiber.New()
	Register(app, "dev")

	req, err := http.NewRequest(http.MethodGet, "/openapi.json", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("unexpected content type %q", ct)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}
	if v, _ := doc["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		t.Errorf("unexpected openapi version %q", v)
	}
	if _, ok := doc["paths"].(map[string]interface{}); !ok {
		t.Error("spec has no paths object")
	}
}

func TestRegister_DocsRedirect(t *testing.T) {
	app := fiber.New()
	Register(app, "dev")

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/docs/index.html" {
		t.Errorf("unexpected redirect target %q", loc)
	}
}

func TestRegister_ServesUI(t *testing.T) {
	app := fiber.New()
	Register(app, "dev")

	req, err := http.NewRequest(http.MethodGet, "/docs/index.html", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	page := string(body)
	if !strings.Contains(page, "swagger-ui") {
		t.Error("UI page does not reference swagger-ui assets")
	}
	// The UI must load the embedded document, not a generated registry.
	if !strings.Contains(page, "/openapi.json") {
		t.Error("UI page does not point at /openapi.json")
	}
}
