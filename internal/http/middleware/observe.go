package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docpress/internal/infra/logging"
	"docpress/internal/metrics"
)

// Observe logs each request and feeds the HTTP metrics. It wraps the rest of
// the chain, so the recorded status includes error-handler rewrites.
func Observe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = c.GetRespHeader("X-Request-ID")
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		route := c.Route().Path
		metrics.RecordHTTPRequest(route, c.Method(), strconv.Itoa(status))
		metrics.RecordHTTPRequestDuration(route, c.Method(), time.Since(start).Seconds())
		return err
	}
}
