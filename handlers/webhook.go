// handlers/webhook.go
package handlers

import (
	"github.com/CandyToyBox/analytics-wave-warz-sub001/middleware"
	"github.com/CandyToyBox/analytics-wave-warz-sub001/services"
	"github.com/gofiber/fiber/v2"
)

func SetupWebhookRoutes(app *fiber.App, webhookService *services.WebhookService) {
	// 🔐 Shared-secret auth — mandatory, enforced before any parsing
	app.Post("/webhooks/battles", middleware.WebhookAuthMiddleware(), webhookService.HandleBattleWebhook)
}
