package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"

	"docpress/internal/config"
	"docpress/internal/decks"
	"docpress/internal/http/handlers"
	"docpress/internal/infra/proc"
	"docpress/internal/tokens"
)

func minimalConfig() config.Config {
	var cfg config.Config
	cfg.Env = "dev"
	cfg.PDF.DefaultPaper = "A4"
	cfg.PDF.PaperSizes = map[string]config.PaperSize{"A4": {Width: 8.27, Height: 11.69}}
	cfg.PDF.TimeoutSecs = 1
	cfg.Limits.MaxHTMLBytes = 1024 * 1024
	cfg.Limits.MaxPDFBytes = 5 * 1024 * 1024
	cfg.Limits.MaxDecks = 10
	cfg.Limits.MaxDeckSlides = 10
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config, tok *tokens.Cache) *fiber.App {
	t.Helper()
	svc, err := handlers.NewDocumentService(cfg, nil)
	if err != nil {
		t.Fatalf("failed to build document service: %v", err)
	}
	t.Cleanup(svc.Close)
	mgr := proc.NewManager()
	t.Cleanup(mgr.StopAll)

	return New(Deps{
		Config:    cfg,
		Documents: svc,
		Decks: decks.NewStore(decks.Limits{
			MaxDecks:         cfg.Limits.MaxDecks,
			MaxSlidesPerDeck: cfg.Limits.MaxDeckSlides,
		}),
		Procs:        mgr,
		Tokens:       tok,
		LimiterStore: memoryStorage.New(),
	})
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	app := newTestApp(t, minimalConfig(), nil)

	for _, target := range []string{"/v1/chrome/stats", "/v1/decks", "/v1/services", "/ops/health"} {
		req, _ := http.NewRequest(http.MethodGet, target, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("GET %s failed: %v", target, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected GET %s 200, got %d", target, resp.StatusCode)
		}
	}

	req404, _ := http.NewRequest(http.MethodGet, "/does-not-exist", nil)
	resp404, err := app.Test(req404)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp404.StatusCode)
	}
	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp404.Body).Decode(&body); err != nil {
		t.Fatalf("404 body is not the JSON envelope: %v", err)
	}
	if body.Error.Code != http.StatusNotFound || body.Error.Message != "Not Found" {
		t.Fatalf("unexpected 404 envelope: %+v", body.Error)
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	app := newTestApp(t, minimalConfig(), nil)

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /metrics 200, got %d", resp.StatusCode)
	}
}

func TestNew_DocsOnlyOutsideProd(t *testing.T) {
	dev := newTestApp(t, minimalConfig(), nil)
	req, _ := http.NewRequest(http.MethodGet, "/openapi.json", nil)
	resp, err := dev.Test(req)
	if err != nil {
		t.Fatalf("dev docs request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /openapi.json 200 in dev, got %d", resp.StatusCode)
	}

	prodCfg := minimalConfig()
	prodCfg.Env = "prod"
	prod := newTestApp(t, prodCfg, nil)
	req, _ = http.NewRequest(http.MethodGet, "/openapi.json", nil)
	resp, err = prod.Test(req)
	if err != nil {
		t.Fatalf("prod docs request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected /openapi.json 404 in prod, got %d", resp.StatusCode)
	}
}

func TestNew_DeckFlowThroughRouter(t *testing.T) {
	app := newTestApp(t, minimalConfig(), nil)

	payload, _ := json.Marshal(map[string]string{"title": "Quarterly Review"})
	req, _ := http.NewRequest(http.MethodPost, "/v1/decks", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var deck struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deck); err != nil {
		t.Fatalf("failed to decode deck: %v", err)
	}

	req, _ = http.NewRequest(http.MethodGet, "/v1/decks/"+deck.ID, nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNew_ScopeGuardedServiceRoutes(t *testing.T) {
	cfg := minimalConfig()
	cfg.Auth.RequireScope = true

	tok := tokens.NewCache()
	tok.Replace(map[string]tokens.Entry{
		"admin-key": {Scope: tokens.Scope{"services": true}},
		"plain-key": {},
	})
	app := newTestApp(t, cfg, tok)

	launch := func(key string) *http.Response {
		payload, _ := json.Marshal(map[string]string{"tool": "anything"})
		req, _ := http.NewRequest(http.MethodPost, "/v1/services", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("launch request failed: %v", err)
		}
		return resp
	}

	if resp := launch(""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected anonymous launch 401, got %d", resp.StatusCode)
	}
	if resp := launch("plain-key"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected unscoped launch 403, got %d", resp.StatusCode)
	}
	// The scoped key clears the guard; the undeclared tool then yields 404.
	if resp := launch("admin-key"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected scoped launch to reach the handler, got %d", resp.StatusCode)
	}

	// Reads stay open to unscoped callers.
	req, _ := http.NewRequest(http.MethodGet, "/v1/services", nil)
	req.Header.Set("X-API-Key", "plain-key")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected list 200, got %d", resp.StatusCode)
	}
}
