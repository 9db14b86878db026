// handlers/battles.go
package handlers

import (
	"github.com/CandyToyBox/analytics-wave-warz-sub001/services"
	"github.com/gofiber/fiber/v2"
)

func SetupBattleRoutes(app *fiber.App, battleService *services.BattleService, frameService *services.FrameService) {
	// 🔓 Public read APIs
	app.Get("/battles", battleService.GetAllBattles)
	app.Get("/battles/:battle_id", battleService.GetBattleByID)
	app.Get("/stats/summary", battleService.GetStatsSummary)

	// Farcaster frames — clients GET the document and POST button clicks
	app.Get("/frames/battles/:battle_id", frameService.GetBattleFrame)
	app.Post("/frames/battles/:battle_id", frameService.GetBattleFrame)
}
