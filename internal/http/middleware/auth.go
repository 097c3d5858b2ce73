package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"docpress/internal/domain"
	"docpress/internal/tokens"
)

// APIKeyAuth validates the X-API-Key header against the token cache and
// stores the key under the api_key context local. Requests without the
// header pass through anonymously; route guards decide whether that is
// acceptable.
func APIKeyAuth(cache *tokens.Cache) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !cache.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !cache.Validate(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Keyauth can call ErrorHandler with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return errorJSON(c, status, err.Error())
		},
	})
}

// ScopeChecker reports whether a token carries a named scope.
type ScopeChecker interface {
	HasScope(token, scope string) bool
}

// RequireScope guards a route: anonymous requests get 401 and authenticated
// ones without the scope get 403. With enforce false the guard is inert, so
// route wiring stays identical across configurations.
func RequireScope(checker ScopeChecker, scope string, enforce bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enforce {
			return c.Next()
		}
		token, _ := c.Locals("api_key").(string)
		if token == "" {
			return errorJSON(c, fiber.StatusUnauthorized, "api key required")
		}
		if !checker.HasScope(token, scope) {
			return errorJSON(c, fiber.StatusForbidden, domain.ErrInsufficientScope.Error())
		}
		return c.Next()
	}
}
