package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// HTTPSRedirect sends clients that arrived over plain HTTP to the HTTPS
// origin with a 308, preserving method, path and query. TLS usually
// terminates at a proxy, so X-Forwarded-Proto counts as secure alongside a
// direct TLS connection.
func HTTPSRedirect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Secure() || c.Get(fiber.HeaderXForwardedProto) == "https" {
			return c.Next()
		}
		return c.Redirect("https://"+c.Hostname()+c.OriginalURL(), fiber.StatusPermanentRedirect)
	}
}
