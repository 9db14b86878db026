// handlers/leaderboard.go
package handlers

import (
	"github.com/CandyToyBox/analytics-wave-warz-sub001/services"
	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService) {
	app.Get("/leaderboard/artists", leaderboardService.GetArtistLeaderboard)
	app.Get("/leaderboard/quick", leaderboardService.GetQuickBattleLeaderboard)
	app.Get("/leaderboard/traders", leaderboardService.GetTraderLeaderboard)
}
