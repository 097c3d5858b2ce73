// Package server assembles the Fiber application: error handling, the
// middleware chain and the full route surface.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docpress/internal/config"
	"docpress/internal/decks"
	"docpress/internal/http/docs"
	"docpress/internal/http/handlers"
	"docpress/internal/http/middleware"
	"docpress/internal/infra/logging"
	"docpress/internal/infra/proc"
	"docpress/internal/metrics"
	"docpress/internal/tokens"
)

// Deps carries the shared state the routes close over. Tokens may be nil
// when no token store is configured; everything else is required.
type Deps struct {
	Config       config.Config
	Documents    *handlers.DocumentService
	Decks        *decks.Store
	Procs        *proc.Manager
	Tokens       *tokens.Cache
	LimiterStore fiber.Storage
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, middleware.Deps{
		Config: d.Config,
		Tokens: d.Tokens,
		Store:  d.LimiterStore,
	})
	registerRoutes(app, d)
	docs.Register(app, d.Config.Env)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// registerRoutes mounts all route handlers to the app.
func registerRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/v1")

	v1.Post("/pdf", d.Documents.HandleConversion)
	v1.Get("/pdf", d.Documents.HandleURLConversion)
	v1.Get("/chrome/stats", d.Documents.HandleChromeStats)

	dk := &handlers.DeckHandlers{Store: d.Decks, Documents: d.Documents}
	v1.Post("/decks", dk.HandleCreateDeck)
	v1.Get("/decks", dk.HandleListDecks)
	v1.Get("/decks/:id", dk.HandleGetDeck)
	v1.Delete("/decks/:id", dk.HandleDeleteDeck)
	v1.Post("/decks/:id/slides", dk.HandleAddSlide)
	v1.Put("/decks/:id/slides/:pos", dk.HandleUpdateSlide)
	v1.Delete("/decks/:id/slides/:pos", dk.HandleRemoveSlide)
	v1.Get("/decks/:id/export", dk.HandleExportPDF)

	sv := &handlers.ServiceHandlers{Config: d.Config, Manager: d.Procs}
	guard := middleware.RequireScope(d.Tokens, "services", d.Config.Auth.RequireScope)
	v1.Post("/services", guard, sv.HandleLaunch)
	v1.Get("/services", sv.HandleListServices)
	v1.Get("/services/:id", sv.HandleGetService)
	v1.Get("/services/:id/health", sv.HandleServiceHealth)
	v1.Get("/services/:id/logs", sv.HandleServiceLogs)
	v1.Delete("/services/:id", guard, sv.HandleStopService)

	v1.Get("/monitor", monitor.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
		metrics.GetRegistry(), promhttp.HandlerOpts{},
	)))
}
