// Package docs publishes the API reference: the OpenAPI document and a
// Swagger UI browsing it. Publication is gated on the environment; outside
// of prod the routes exist, in prod they fall through to the JSON 404.
package docs

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	httpSwagger "github.com/swaggo/http-swagger"

	"docpress/internal/infra/logging"
)

//go:embed openapi.json
var openapiSpec []byte

// Enabled reports whether the docs routes are published in env.
func Enabled(env string) bool {
	return env != "prod"
}

// Register mounts /openapi.json and the Swagger UI under /docs. The UI is
// pointed at the embedded document, so it needs no generated registry.
func Register(app *fiber.App, env string) {
	if !Enabled(env) {
		logging.Info("API docs disabled", "env", env)
		return
	}

	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "application/json; charset=utf-8")
		return c.Send(openapiSpec)
	})

	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.Redirect("/docs/index.html", fiber.StatusMovedPermanently)
	})
	app.Get("/docs/*", adaptor.HTTPHandlerFunc(httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	)))

	logging.Info("API docs published", "env", env, "path", "/docs")
}
