// middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware guards the admin routes with the shared bearer token.
// Comparison is constant-time; rejection happens before any handler work.
func AdminAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("ADMIN_API_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ ADMIN_API_TOKEN is not set — admin routes cannot be secured")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [ADMIN_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — accept the raw header value
			token = authHeader
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [ADMIN_AUTH] Invalid admin token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}

		return c.Next()
	}
}

// WebhookAuthMiddleware validates the shared secret the upstream database
// attaches to battle-change deliveries. The secret is mandatory: the
// service refuses to boot without it rather than running an open webhook.
func WebhookAuthMiddleware() fiber.Handler {
	expectedSecret := os.Getenv("WEBHOOK_SECRET")
	if expectedSecret == "" {
		log.Fatal("❌ WEBHOOK_SECRET is not set — webhook endpoint cannot be secured")
	}

	return func(c *fiber.Ctx) error {
		secret := c.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(expectedSecret)) != 1 {
			log.Printf("❌ [WEBHOOK_AUTH] Invalid or missing webhook secret from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook secret",
			})
		}
		return c.Next()
	}
}
